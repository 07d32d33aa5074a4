package account

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an account. A nil PasswordHash marks a pending account provisioned from the roster.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsStaff      bool       `json:"is_staff"`
	IsActive     bool       `json:"is_active"`
	DateJoined   time.Time  `json:"date_joined"`
	LastLogin    *time.Time `json:"last_login"`
	Groups       []int64    `json:"groups"`
	Profile      *Profile   `json:"profile"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// HasUsablePassword is false for pending accounts.
func (u *User) HasUsablePassword() bool {
	return len(u.PasswordHash) > 0
}

// Profile holds the verified academic fields of a student.
type Profile struct {
	ID       int64  `json:"-"`
	UserID   int64  `json:"-"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RollNo   string `json:"roll_no"`
	Semester int    `json:"semester"`
	Dob      string `json:"dob"`
	Address  string `json:"address"`
	Image    string `json:"image"`
	Shift    string `json:"shift"`
}

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AdmissionRecord is an authoritative roster row.
type AdmissionRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	RollNo    string `json:"roll_no"`
	Semester  int    `json:"semester"`
	Dob       string `json:"dob"`
	Address   string `json:"address"`
	Shift     string `json:"shift"`
	Programme string `json:"programme"`
	Contact   string `json:"contact"`
	UserID    *int64 `json:"user"`
}

// ProfileInput is the profile block of a registration.
type ProfileInput struct {
	RollNo   string `json:"roll_no" validate:"required,notblank,max=50"`
	Semester int    `json:"semester" validate:"required,gt=0"`
	Dob      string `json:"dob" validate:"required,bsdate"`
	Address  string `json:"address"`
	Image    string `json:"image" validate:"omitempty,url"`
	Shift    string `json:"shift" validate:"required,notblank,max=10"`
}

// Registration is a student's self-registration request.
type Registration struct {
	Email     string       `json:"email" validate:"required,email,max=254"`
	Password  string       `json:"password" validate:"required"`
	Password2 string       `json:"password2" validate:"required"`
	Profile   ProfileInput `json:"profile"`
}

// Registered is returned after a successful registration.
type Registered struct {
	User    *User    `json:"user"`
	Profile *Profile `json:"profile"`
	Refresh string   `json:"refresh"`
	Access  string   `json:"access"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries the fields a student may change on their own profile.
type ProfileUpdate struct {
	Address *string `json:"address"`
	Image   *string `json:"image" validate:"omitempty,url"`
}

// NewUser is an admin-created account.
type NewUser struct {
	Username string `json:"username" validate:"required,notblank,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required"`
	IsStaff  bool   `json:"is_staff"`
}

// ProfileFields is the nested profile of an admin user update.
type ProfileFields struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	RollNo   *string `json:"roll_no" validate:"omitempty,max=50"`
	Semester *int    `json:"semester" validate:"omitempty,gt=0"`
	Dob      *string `json:"dob" validate:"omitempty,bsdate"`
	Address  *string `json:"address"`
	Image    *string `json:"image"`
	Shift    *string `json:"shift" validate:"omitempty,max=10"`
}

// UserUpdate is a partial admin update. Nil fields are left untouched.
type UserUpdate struct {
	Username  *string        `json:"username" validate:"omitempty,notblank,max=150"`
	Email     *string        `json:"email" validate:"omitempty,email,max=254"`
	FirstName *string        `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string        `json:"last_name" validate:"omitempty,max=150"`
	IsStaff   *bool          `json:"is_staff"`
	IsActive  *bool          `json:"is_active"`
	Groups    *[]int64       `json:"groups"`
	Profile   *ProfileFields `json:"profile"`
}

// AdmissionInput creates or replaces a roster row.
type AdmissionInput struct {
	Name      string `json:"name" validate:"required,notblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	RollNo    string `json:"roll_no" validate:"required,notblank,max=50"`
	Semester  int    `json:"semester" validate:"required,gt=0"`
	Dob       string `json:"dob" validate:"required,bsdate"`
	Address   string `json:"address"`
	Shift     string `json:"shift" validate:"required,notblank,max=10"`
	Programme string `json:"programme" validate:"max=100"`
	Contact   string `json:"contact" validate:"max=30"`
}

type GroupInput struct {
	Name string `json:"name" validate:"required,notblank,max=150"`
}

// emailLocalPart returns the part before '@', the base for generated usernames.
func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
