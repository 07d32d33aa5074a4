package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus/internal/auth"
	"campus/internal/store"
	"campus/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid token or already blacklisted")
)

const (
	msgPasswordMismatch = "Passwords do not match."
	msgEmailRegistered  = "This email is already registered."
	msgNoAdmission      = "No admission record found for this roll number."
	msgDobMismatch      = "Date of birth does not match our records."
	msgSemesterMismatch = "Semester does not match our records."
	msgShiftMismatch    = "Shift does not match our records."
	msgRollNoClaimed    = "An account is already registered for this roll number."
	msgUsernameTaken    = "A user with that username already exists."
	msgGroupTaken       = "group with this name already exists."
	msgAdmissionEmail   = "admission record with this email already exists."
	msgAdmissionRollNo  = "admission record with this roll no already exists."
)

// Service coordinates registration, login and the admin account areas.
type Service struct {
	repo    Repository
	tokens  *auth.Tokens
	refresh auth.RefreshStore
	now     func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, tokens *auth.Tokens, refresh auth.RefreshStore) *Service {
	return &Service{repo: repo, tokens: tokens, refresh: refresh, now: time.Now}
}

// Register verifies the submitted profile against the admission roster and provisions the account in one transaction.
func (s *Service) Register(ctx context.Context, in Registration) (*Registered, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Password != in.Password2 {
		return nil, validation.NewError("password", msgPasswordMismatch)
	}
	if msg := validation.Password(in.Password,
		validation.UserAttr{Name: "email", Value: in.Email},
		validation.UserAttr{Name: "username", Value: emailLocalPart(in.Email)},
	); msg != "" {
		return nil, validation.NewError("password", msg)
	}
	taken, err := s.repo.EmailRegistered(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, validation.NewError("email", msgEmailRegistered)
	}

	var (
		user    *User
		profile *Profile
	)
	err = s.repo.InTx(ctx, func(repo Repository) error {
		adm, err := repo.AdmissionByRollNo(ctx, strings.TrimSpace(in.Profile.RollNo))
		if errors.Is(err, store.ErrNotFound) {
			return validation.NewError("roll_no", msgNoAdmission)
		}
		if err != nil {
			return fmt.Errorf("load admission: %w", err)
		}
		if verr := matchAdmission(adm, in.Profile); verr != nil {
			return verr
		}
		user, profile, err = s.provision(ctx, repo, adm, in)
		return err
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	user.Profile = profile
	return &Registered{User: user, Profile: profile, Refresh: pair.RefreshToken, Access: pair.AccessToken}, nil
}

// matchAdmission reports every roster field the submission disagrees with.
func matchAdmission(adm *AdmissionRecord, in ProfileInput) error {
	verr := &validation.Error{}
	if strings.TrimSpace(adm.Dob) != strings.TrimSpace(in.Dob) {
		verr.Add("dob", msgDobMismatch)
	}
	if adm.Semester != in.Semester {
		verr.Add("semester", msgSemesterMismatch)
	}
	if !strings.EqualFold(strings.TrimSpace(adm.Shift), strings.TrimSpace(in.Shift)) {
		verr.Add("shift", msgShiftMismatch)
	}
	return verr.Err()
}

func (s *Service) provision(ctx context.Context, repo Repository, adm *AdmissionRecord, in Registration) (*User, *Profile, error) {
	if adm.UserID != nil {
		return s.claim(ctx, repo, adm, in)
	}

	username, err := UniqueUsername(ctx, repo, in.Email)
	if err != nil {
		return nil, nil, err
	}
	user := &User{Username: username, Email: in.Email, IsActive: true, DateJoined: s.now().UTC()}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	profile := profileFromAdmission(adm, user.ID, in)
	if err := repo.CreateProfile(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("create profile: %w", err)
	}
	if err := repo.LinkAdmission(ctx, adm.ID, user.ID); err != nil {
		return nil, nil, fmt.Errorf("link admission: %w", err)
	}
	return user, profile, nil
}

// profileFromAdmission copies the verified roster fields. Address falls back to the roster when left blank.
func profileFromAdmission(adm *AdmissionRecord, userID int64, in Registration) *Profile {
	address := in.Profile.Address
	if strings.TrimSpace(address) == "" {
		address = adm.Address
	}
	return &Profile{
		UserID:   userID,
		Name:     adm.Name,
		Email:    in.Email,
		RollNo:   adm.RollNo,
		Semester: adm.Semester,
		Dob:      adm.Dob,
		Address:  address,
		Image:    in.Profile.Image,
		Shift:    adm.Shift,
	}
}

// claim activates the pending account the provisioning trigger created for adm.
func (s *Service) claim(ctx context.Context, repo Repository, adm *AdmissionRecord, in Registration) (*User, *Profile, error) {
	user, err := repo.UserByID(ctx, *adm.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load linked account: %w", err)
	}
	if user.HasUsablePassword() {
		return nil, nil, validation.NewError("roll_no", msgRollNoClaimed)
	}
	user.Email = in.Email
	user.IsActive = true
	if err := user.SetPassword(in.Password); err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	if err := repo.UpdateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("activate account: %w", err)
	}

	profile, err := repo.ProfileByUserID(ctx, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		profile = profileFromAdmission(adm, user.ID, in)
		if err := repo.CreateProfile(ctx, profile); err != nil {
			return nil, nil, fmt.Errorf("create profile: %w", err)
		}
	case err != nil:
		return nil, nil, fmt.Errorf("load profile: %w", err)
	default:
		profile.Email = in.Email
		if strings.TrimSpace(in.Profile.Address) != "" {
			profile.Address = in.Profile.Address
		}
		if in.Profile.Image != "" {
			profile.Image = in.Profile.Image
		}
		if err := repo.UpdateProfile(ctx, profile); err != nil {
			return nil, nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return user, profile, nil
}

// UniqueUsername derives a free username from the email local part, appending 1, 2, ... on collision.
func UniqueUsername(ctx context.Context, repo Repository, email string) (string, error) {
	base := emailLocalPart(email)
	username := base
	for counter := 1; ; counter++ {
		exists, err := repo.UsernameExists(ctx, username)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !exists {
			return username, nil
		}
		username = base + strconv.Itoa(counter)
	}
}

// Login authenticates by email and password. Every failure reports the same error.
func (s *Service) Login(ctx context.Context, in Credentials) (auth.TokenPair, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return auth.TokenPair{}, err
	}
	user, err := s.repo.UserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive || !user.HasUsablePassword() || user.CheckPassword(in.Password) != nil {
		return auth.TokenPair{}, ErrInvalidCredentials
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		return auth.TokenPair{}, fmt.Errorf("stamp last login: %w", err)
	}
	return s.issue(ctx, user)
}

func (s *Service) issue(ctx context.Context, user *User) (auth.TokenPair, error) {
	pair, err := s.tokens.Issue(user.ID, auth.Role(user.IsStaff))
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("sign tokens: %w", err)
	}
	if err := s.refresh.Save(ctx, pair.RefreshID, user.ID, pair.RefreshExp); err != nil {
		return auth.TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TypeRefresh)
	if err != nil {
		return "", ErrInvalidRefresh
	}
	active, err := s.refresh.Active(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check refresh token: %w", err)
	}
	if !active {
		return "", ErrInvalidRefresh
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidRefresh
	}
	user, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidRefresh
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return "", ErrInvalidRefresh
	}
	access, _, err := s.tokens.Access(user.ID, auth.Role(user.IsStaff))
	return access, err
}

// Logout blacklists a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.TypeRefresh)
	if err != nil {
		return ErrInvalidRefresh
	}
	revoked, err := s.refresh.Revoke(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		return ErrInvalidRefresh
	}
	return nil
}

// Profile returns the caller's profile, or an empty one when none exists.
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	p, err := s.repo.ProfileByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &Profile{}, nil
	}
	return p, err
}

// UpdateProfile applies a student's own change. Only address and image are writable.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*Profile, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.repo.ProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// mapUniqueViolation turns constraint violations that slipped past the checks into field errors.
func mapUniqueViolation(err error) error {
	constraint, ok := store.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case "users_username_key":
		return validation.NewError("username", msgUsernameTaken)
	case "users_email_key", "profiles_email_key":
		return validation.NewError("email", msgEmailRegistered)
	case "profiles_roll_no_key", "profiles_user_id_key", "admission_records_user_id_key":
		return validation.NewError("roll_no", msgRollNoClaimed)
	case "groups_name_key":
		return validation.NewError("name", msgGroupTaken)
	case "admission_records_email_key":
		return validation.NewError("email", msgAdmissionEmail)
	case "admission_records_roll_no_key":
		return validation.NewError("roll_no", msgAdmissionRollNo)
	default:
		return validation.NewError("non_field_errors", "A record with these values already exists.")
	}
}
