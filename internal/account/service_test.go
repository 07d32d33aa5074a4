package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus/internal/auth"
	"campus/internal/store"
	"campus/internal/validation"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepo, *mockRefreshStore, *auth.Tokens) {
	repo := &mockRepo{}
	refresh := &mockRefreshStore{}
	tokens := auth.NewTokens("secret", "campus-api", time.Minute, time.Hour)
	svc := NewService(repo, tokens, refresh)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, refresh, tokens
}

func validRegistration() Registration {
	return Registration{
		Email:     "ram.sharma@example.com",
		Password:  "Tr1cky-Orbit",
		Password2: "Tr1cky-Orbit",
		Profile: ProfileInput{
			RollNo:   "BCA-001",
			Semester: 3,
			Dob:      "2058/01/15",
			Address:  "Pokhara",
			Shift:    "morning",
		},
	}
}

func admissionRecord() *AdmissionRecord {
	return &AdmissionRecord{
		ID:       10,
		Name:     "Ram Sharma",
		Email:    "ram@college.edu",
		RollNo:   "BCA-001",
		Semester: 3,
		Dob:      "2058/01/15",
		Address:  "Kaski",
		Shift:    "Morning",
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *validation.Error
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.Fields
}

func TestRegister_NewAccount(t *testing.T) {
	ctx := context.Background()
	svc, repo, refresh, tokens := newTestService()
	reg := validRegistration()

	repo.On("EmailRegistered", ctx, reg.Email).Return(false, nil)
	repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(admissionRecord(), nil)
	repo.On("UsernameExists", ctx, "ram.sharma").Return(true, nil)
	repo.On("UsernameExists", ctx, "ram.sharma1").Return(false, nil)
	repo.On("CreateUser", ctx, mock.MatchedBy(func(u *User) bool {
		return u.Username == "ram.sharma1" && u.Email == reg.Email && !u.IsStaff && u.HasUsablePassword()
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*User).ID = 5
	}).Return(nil)
	repo.On("CreateProfile", ctx, mock.MatchedBy(func(p *Profile) bool {
		return p.UserID == 5 && p.Name == "Ram Sharma" && p.Shift == "Morning" && p.Address == "Pokhara" && p.Dob == "2058/01/15"
	})).Return(nil)
	repo.On("LinkAdmission", ctx, int64(10), int64(5)).Return(nil)
	refresh.On("Save", ctx, mock.AnythingOfType("string"), int64(5), mock.AnythingOfType("time.Time")).Return(nil)

	res, err := svc.Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, "ram.sharma1", res.User.Username)
	assert.Equal(t, "BCA-001", res.Profile.RollNo)
	assert.Same(t, res.Profile, res.User.Profile)

	claims, err := tokens.Parse(res.Access, auth.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStudent, claims.Role)
	_, err = tokens.Parse(res.Refresh, auth.TypeRefresh)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
	refresh.AssertExpectations(t)
}

func TestRegister_ClaimsPendingAccount(t *testing.T) {
	ctx := context.Background()
	svc, repo, refresh, _ := newTestService()
	reg := validRegistration()
	adm := admissionRecord()
	pendingID := int64(7)
	adm.UserID = &pendingID

	repo.On("EmailRegistered", ctx, reg.Email).Return(false, nil)
	repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(adm, nil)
	repo.On("UserByID", ctx, pendingID).Return(&User{ID: pendingID, Username: "ram", Email: "ram@college.edu", IsActive: true}, nil)
	repo.On("UpdateUser", ctx, mock.MatchedBy(func(u *User) bool {
		return u.ID == pendingID && u.Email == reg.Email && u.HasUsablePassword() && u.CheckPassword(reg.Password) == nil
	})).Return(nil)
	repo.On("ProfileByUserID", ctx, pendingID).Return(&Profile{UserID: pendingID, Email: "ram@college.edu", RollNo: "BCA-001", Address: "Kaski", Shift: "Morning"}, nil)
	repo.On("UpdateProfile", ctx, mock.MatchedBy(func(p *Profile) bool {
		return p.Email == reg.Email && p.Address == "Pokhara"
	})).Return(nil)
	refresh.On("Save", ctx, mock.AnythingOfType("string"), pendingID, mock.AnythingOfType("time.Time")).Return(nil)

	res, err := svc.Register(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, "ram", res.User.Username)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "LinkAdmission", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestRegister_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid fields", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		reg := validRegistration()
		reg.Email = "nope"
		reg.Profile.Dob = "15-01-2058"
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "profile.dob")
	})

	t.Run("passwords differ", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		reg := validRegistration()
		reg.Password2 = "Other-Pass9"
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, "Passwords do not match.", fields["password"])
	})

	t.Run("weak password", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		reg := validRegistration()
		reg.Password, reg.Password2 = "12345678", "12345678"
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, "This password is entirely numeric.", fields["password"])
	})

	t.Run("email already registered", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		reg := validRegistration()
		repo.On("EmailRegistered", ctx, reg.Email).Return(true, nil)
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, "This email is already registered.", fields["email"])
	})

	t.Run("no admission record", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		reg := validRegistration()
		repo.On("EmailRegistered", ctx, reg.Email).Return(false, nil)
		repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(nil, store.ErrNotFound)
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, "No admission record found for this roll number.", fields["roll_no"])
	})

	t.Run("every mismatch reported", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		reg := validRegistration()
		reg.Profile.Dob = "2058/01/16"
		reg.Profile.Semester = 4
		reg.Profile.Shift = "day"
		repo.On("EmailRegistered", ctx, reg.Email).Return(false, nil)
		repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(admissionRecord(), nil)
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, map[string]string{
			"dob":      "Date of birth does not match our records.",
			"semester": "Semester does not match our records.",
			"shift":    "Shift does not match our records.",
		}, fields)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("roll number already claimed", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		reg := validRegistration()
		adm := admissionRecord()
		owner := int64(3)
		adm.UserID = &owner
		repo.On("EmailRegistered", ctx, reg.Email).Return(false, nil)
		repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(adm, nil)
		repo.On("UserByID", ctx, owner).Return(&User{ID: owner, PasswordHash: []byte("$2a$10$hash")}, nil)
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, "An account is already registered for this roll number.", fields["roll_no"])
	})

	t.Run("unique violation mapped", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		reg := validRegistration()
		repo.On("EmailRegistered", ctx, reg.Email).Return(false, nil)
		repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(admissionRecord(), nil)
		repo.On("UsernameExists", ctx, "ram.sharma").Return(false, nil)
		repo.On("CreateUser", ctx, mock.Anything).Return(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
		fields := fieldErrors(t, mustFail(svc.Register(ctx, reg)))
		assert.Equal(t, "This email is already registered.", fields["email"])
	})
}

func mustFail(_ *Registered, err error) error { return err }

func TestLogin(t *testing.T) {
	ctx := context.Background()
	active := &User{ID: 5, Email: "ram@example.com", IsActive: true}
	require.NoError(t, active.SetPassword("Tr1cky-Orbit"))

	t.Run("success stamps last login", func(t *testing.T) {
		svc, repo, refresh, tokens := newTestService()
		repo.On("UserByEmail", ctx, "ram@example.com").Return(active, nil)
		repo.On("TouchLastLogin", ctx, int64(5), fixedNow).Return(nil)
		refresh.On("Save", ctx, mock.AnythingOfType("string"), int64(5), mock.AnythingOfType("time.Time")).Return(nil)

		pair, err := svc.Login(ctx, Credentials{Email: " ram@example.com ", Password: "Tr1cky-Orbit"})
		require.NoError(t, err)
		_, err = tokens.Parse(pair.AccessToken, auth.TypeAccess)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	pending := &User{ID: 6, Email: "sita@example.com", IsActive: true}
	inactive := &User{ID: 8, Email: "hari@example.com", IsActive: false, PasswordHash: active.PasswordHash}

	tests := []struct {
		name  string
		email string
		pwd   string
		user  *User
		err   error
	}{
		{name: "unknown email", email: "who@example.com", pwd: "x", err: store.ErrNotFound},
		{name: "wrong password", email: "ram@example.com", pwd: "Wrong-Pass1", user: active},
		{name: "pending account", email: "sita@example.com", pwd: "anything", user: pending},
		{name: "inactive account", email: "hari@example.com", pwd: "Tr1cky-Orbit", user: inactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := newTestService()
			if tt.user != nil {
				repo.On("UserByEmail", ctx, tt.email).Return(tt.user, nil)
			} else {
				repo.On("UserByEmail", ctx, tt.email).Return(nil, tt.err)
			}
			_, err := svc.Login(ctx, Credentials{Email: tt.email, Password: tt.pwd})
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			repo.AssertNotCalled(t, "TouchLastLogin", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh issues access", func(t *testing.T) {
		svc, repo, refresh, tokens := newTestService()
		pair, err := tokens.Issue(5, auth.RoleStudent)
		require.NoError(t, err)
		refresh.On("Active", ctx, pair.RefreshID).Return(true, nil)
		repo.On("UserByID", ctx, int64(5)).Return(&User{ID: 5, IsActive: true, IsStaff: true}, nil)

		access, err := svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		claims, err := tokens.Parse(access, auth.TypeAccess)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleStaff, claims.Role)
	})

	t.Run("refresh rejects revoked", func(t *testing.T) {
		svc, _, refresh, tokens := newTestService()
		pair, err := tokens.Issue(5, auth.RoleStudent)
		require.NoError(t, err)
		refresh.On("Active", ctx, pair.RefreshID).Return(false, nil)

		_, err = svc.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("refresh rejects access token", func(t *testing.T) {
		svc, _, _, tokens := newTestService()
		pair, err := tokens.Issue(5, auth.RoleStudent)
		require.NoError(t, err)
		_, err = svc.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("logout once", func(t *testing.T) {
		svc, _, refresh, tokens := newTestService()
		pair, err := tokens.Issue(5, auth.RoleStudent)
		require.NoError(t, err)
		refresh.On("Revoke", ctx, pair.RefreshID).Return(true, nil).Once()
		refresh.On("Revoke", ctx, pair.RefreshID).Return(false, nil).Once()

		assert.NoError(t, svc.Logout(ctx, pair.RefreshToken))
		assert.ErrorIs(t, svc.Logout(ctx, pair.RefreshToken), ErrInvalidRefresh)
		assert.ErrorIs(t, svc.Logout(ctx, "garbage"), ErrInvalidRefresh)
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("missing profile is empty", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		repo.On("ProfileByUserID", ctx, int64(5)).Return(nil, store.ErrNotFound)
		p, err := svc.Profile(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, &Profile{}, p)
	})

	t.Run("update touches address and image only", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		current := &Profile{UserID: 5, RollNo: "BCA-001", Semester: 3, Address: "Kaski", Shift: "Morning"}
		repo.On("ProfileByUserID", ctx, int64(5)).Return(current, nil)
		repo.On("UpdateProfile", ctx, mock.MatchedBy(func(p *Profile) bool {
			return p.Address == "Lalitpur" && p.RollNo == "BCA-001" && p.Semester == 3
		})).Return(nil)

		addr := "Lalitpur"
		p, err := svc.UpdateProfile(ctx, 5, ProfileUpdate{Address: &addr})
		require.NoError(t, err)
		assert.Equal(t, "Lalitpur", p.Address)
		repo.AssertExpectations(t)
	})

	t.Run("update without profile is not found", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		repo.On("ProfileByUserID", ctx, int64(9)).Return(nil, store.ErrNotFound)
		_, err := svc.UpdateProfile(ctx, 9, ProfileUpdate{})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("username taken", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		repo.On("UsernameExists", ctx, "admin").Return(true, nil)
		_, err := svc.CreateUser(ctx, NewUser{Username: "admin", Password: "Sturdy-Lamp7"})
		assert.Equal(t, "A user with that username already exists.", fieldErrors(t, err)["username"])
	})

	t.Run("superuser defaults username", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		repo.On("UsernameExists", ctx, "principal").Return(false, nil)
		repo.On("CreateUser", ctx, mock.MatchedBy(func(u *User) bool {
			return u.Username == "principal" && u.IsStaff && u.IsActive
		})).Return(nil)

		u, err := svc.CreateSuperuser(ctx, "", "principal@college.edu", "Sturdy-Lamp7")
		require.NoError(t, err)
		assert.True(t, u.IsStaff)
	})
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	user := &User{ID: 5, Username: "ram", Email: "ram@example.com", IsActive: true}
	groups := []int64{1, 2}
	semester := 4
	roll := "BCA-009"

	repo.On("UserByID", ctx, int64(5)).Return(user, nil)
	repo.On("UpdateUser", ctx, mock.MatchedBy(func(u *User) bool { return u.IsStaff })).Return(nil)
	repo.On("SetGroups", ctx, int64(5), groups).Return(nil)
	repo.On("ProfileByUserID", ctx, int64(5)).Return(nil, store.ErrNotFound).Once()
	repo.On("CreateProfile", ctx, mock.Anything).Return(nil)

	staff := true
	_, err := svc.UpdateUser(ctx, 5, UserUpdate{
		IsStaff: &staff,
		Groups:  &groups,
		Profile: &ProfileFields{RollNo: &roll, Semester: &semester},
	})
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "profile.dob")
	assert.Contains(t, fields, "profile.shift")
	repo.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything)
}

func TestImportAdmissions(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	rows := []AdmissionInput{
		{Name: "Ram", Email: "ram@college.edu", RollNo: "BCA-001", Semester: 3, Dob: "2058/01/15", Shift: "Morning"},
		{Name: "Sita", Email: "sita@college.edu", RollNo: "BCA-002", Semester: 3, Dob: "2058/02/11", Shift: "Day"},
	}
	repo.On("AdmissionByRollNo", ctx, "BCA-001").Return(admissionRecord(), nil)
	repo.On("AdmissionByRollNo", ctx, "BCA-002").Return(nil, store.ErrNotFound)
	repo.On("CreateAdmission", ctx, mock.MatchedBy(func(a *AdmissionRecord) bool { return a.RollNo == "BCA-002" })).Return(nil)

	created, skipped, err := svc.ImportAdmissions(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, skipped)

	_, _, err = svc.ImportAdmissions(ctx, []AdmissionInput{{Name: "Bad"}})
	assert.ErrorContains(t, err, "row 1")
}

func TestIsActiveStaff(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()

	staff := &User{ID: 1, IsStaff: true, IsActive: true}
	require.NoError(t, staff.SetPassword("Sturdy-Lamp7"))
	demoted := &User{ID: 2, IsStaff: false, IsActive: true, PasswordHash: staff.PasswordHash}
	inactive := &User{ID: 3, IsStaff: true, IsActive: false, PasswordHash: staff.PasswordHash}

	repo.On("UserByID", ctx, int64(1)).Return(staff, nil)
	repo.On("UserByID", ctx, int64(2)).Return(demoted, nil)
	repo.On("UserByID", ctx, int64(3)).Return(inactive, nil)
	repo.On("UserByID", ctx, int64(4)).Return(nil, store.ErrNotFound)
	repo.On("UserByID", ctx, int64(5)).Return(nil, errors.New("db down"))

	for id, want := range map[int64]bool{1: true, 2: false, 3: false, 4: false} {
		got, err := svc.IsActiveStaff(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "user %d", id)
	}
	_, err := svc.IsActiveStaff(ctx, 5)
	assert.EqualError(t, err, "db down")
}
