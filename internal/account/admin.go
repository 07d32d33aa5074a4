package account

import (
	"context"
	"fmt"
	"strings"

	"campus/internal/validation"
)

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// GetUser returns the account with its groups and profile.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p, err := s.Profile(ctx, id); err != nil {
		return nil, err
	} else if p.UserID != 0 {
		u.Profile = p
	}
	return u, nil
}

// IsActiveStaff reports whether id is an active staff account with a usable password.
func (s *Service) IsActiveStaff(ctx context.Context, id int64) (bool, error) {
	u, err := s.repo.UserByID(ctx, id)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsStaff && u.IsActive && u.HasUsablePassword(), nil
}

// CreateUser creates an account on behalf of an administrator.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if msg := validation.Password(in.Password,
		validation.UserAttr{Name: "username", Value: in.Username},
		validation.UserAttr{Name: "email", Value: in.Email},
	); msg != "" {
		return nil, validation.NewError("password", msg)
	}
	exists, err := s.repo.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, validation.NewError("username", msgUsernameTaken)
	}

	u := &User{Username: in.Username, Email: in.Email, IsStaff: in.IsStaff, IsActive: true, DateJoined: s.now().UTC(), Groups: []int64{}}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, mapUniqueViolation(fmt.Errorf("create user: %w", err))
	}
	return u, nil
}

// CreateSuperuser creates an active staff account. The username defaults to the email local part.
func (s *Service) CreateSuperuser(ctx context.Context, username, email, password string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		var err error
		if username, err = UniqueUsername(ctx, s.repo, strings.TrimSpace(email)); err != nil {
			return nil, err
		}
	}
	return s.CreateUser(ctx, NewUser{Username: username, Email: email, Password: password, IsStaff: true})
}

// UpdateUser applies an admin change. A nested profile is upserted and a groups list replaces memberships.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UserUpdate) (*User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	err := s.repo.InTx(ctx, func(repo Repository) error {
		u, err := repo.UserByID(ctx, id)
		if err != nil {
			return err
		}
		if in.Username != nil {
			u.Username = strings.TrimSpace(*in.Username)
		}
		if in.Email != nil {
			u.Email = strings.TrimSpace(*in.Email)
		}
		if in.FirstName != nil {
			u.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			u.LastName = *in.LastName
		}
		if in.IsStaff != nil {
			u.IsStaff = *in.IsStaff
		}
		if in.IsActive != nil {
			u.IsActive = *in.IsActive
		}
		if err := repo.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if in.Groups != nil {
			if err := repo.SetGroups(ctx, id, *in.Groups); err != nil {
				return fmt.Errorf("set groups: %w", err)
			}
		}
		if in.Profile != nil {
			if err := upsertProfile(ctx, repo, u, in.Profile); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return s.GetUser(ctx, id)
}

func upsertProfile(ctx context.Context, repo Repository, u *User, in *ProfileFields) error {
	p, err := repo.ProfileByUserID(ctx, u.ID)
	creating := false
	if err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("load profile: %w", err)
		}
		p = &Profile{UserID: u.ID, Email: u.Email}
		creating = true
	}
	applyProfileFields(p, in)
	if creating {
		verr := &validation.Error{}
		if p.RollNo == "" {
			verr.Add("profile.roll_no", "This field is required.")
		}
		if p.Semester <= 0 {
			verr.Add("profile.semester", "This field is required.")
		}
		if p.Dob == "" {
			verr.Add("profile.dob", "This field is required.")
		}
		if p.Shift == "" {
			verr.Add("profile.shift", "This field is required.")
		}
		if err := verr.Err(); err != nil {
			return err
		}
		if err := repo.CreateProfile(ctx, p); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	}
	if err := repo.UpdateProfile(ctx, p); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func applyProfileFields(p *Profile, in *ProfileFields) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Email != nil {
		p.Email = *in.Email
	}
	if in.RollNo != nil {
		p.RollNo = strings.TrimSpace(*in.RollNo)
	}
	if in.Semester != nil {
		p.Semester = *in.Semester
	}
	if in.Dob != nil {
		p.Dob = *in.Dob
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Shift != nil {
		p.Shift = *in.Shift
	}
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

func (s *Service) GetGroup(ctx context.Context, id int64) (*Group, error) {
	return s.repo.GroupByID(ctx, id)
}

func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (*Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	g := &Group{Name: in.Name}
	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, mapUniqueViolation(err)
	}
	return g, nil
}

func (s *Service) UpdateGroup(ctx context.Context, id int64, in GroupInput) (*Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	g := &Group{ID: id, Name: in.Name}
	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return nil, mapUniqueViolation(err)
	}
	return g, nil
}

func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	return s.repo.DeleteGroup(ctx, id)
}

func (s *Service) ListAdmissions(ctx context.Context) ([]AdmissionRecord, error) {
	return s.repo.ListAdmissions(ctx)
}

func (s *Service) GetAdmission(ctx context.Context, id int64) (*AdmissionRecord, error) {
	return s.repo.AdmissionByID(ctx, id)
}

// CreateAdmission adds a roster row. The database provisions a pending account for it.
func (s *Service) CreateAdmission(ctx context.Context, in AdmissionInput) (*AdmissionRecord, error) {
	a, err := admissionFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateAdmission(ctx, a); err != nil {
		return nil, mapUniqueViolation(err)
	}
	return a, nil
}

func (s *Service) UpdateAdmission(ctx context.Context, id int64, in AdmissionInput) (*AdmissionRecord, error) {
	a, err := admissionFromInput(in)
	if err != nil {
		return nil, err
	}
	a.ID = id
	if err := s.repo.UpdateAdmission(ctx, a); err != nil {
		return nil, mapUniqueViolation(err)
	}
	return s.repo.AdmissionByID(ctx, id)
}

func (s *Service) DeleteAdmission(ctx context.Context, id int64) error {
	return s.repo.DeleteAdmission(ctx, id)
}

// ImportAdmissions inserts roster rows in one transaction. Rows whose roll number already exists are skipped.
func (s *Service) ImportAdmissions(ctx context.Context, rows []AdmissionInput) (created, skipped int, err error) {
	records := make([]*AdmissionRecord, 0, len(rows))
	for i, in := range rows {
		a, err := admissionFromInput(in)
		if err != nil {
			return 0, 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, a)
	}
	err = s.repo.InTx(ctx, func(repo Repository) error {
		for i, a := range records {
			if _, err := repo.AdmissionByRollNo(ctx, a.RollNo); err == nil {
				skipped++
				continue
			} else if !isNotFound(err) {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			if err := repo.CreateAdmission(ctx, a); err != nil {
				return fmt.Errorf("row %d: %w", i+1, mapUniqueViolation(err))
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, skipped, nil
}

func admissionFromInput(in AdmissionInput) (*AdmissionRecord, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.RollNo = strings.TrimSpace(in.RollNo)
	in.Dob = strings.TrimSpace(in.Dob)
	in.Shift = strings.TrimSpace(in.Shift)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return &AdmissionRecord{
		Name:      strings.TrimSpace(in.Name),
		Email:     in.Email,
		RollNo:    in.RollNo,
		Semester:  in.Semester,
		Dob:       in.Dob,
		Address:   in.Address,
		Shift:     in.Shift,
		Programme: in.Programme,
		Contact:   in.Contact,
	}, nil
}
