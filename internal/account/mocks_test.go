package account

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) InTx(_ context.Context, fn func(Repository) error) error {
	return fn(m)
}

func (m *mockRepo) UserByID(ctx context.Context, id int64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockRepo) UserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockRepo) EmailRegistered(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ListUsers(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]User), args.Error(1)
}

func (m *mockRepo) CreateUser(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) UpdateUser(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) SetGroups(ctx context.Context, userID int64, groupIDs []int64) error {
	return m.Called(ctx, userID, groupIDs).Error(0)
}

func (m *mockRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockRepo) ProfileByUserID(ctx context.Context, userID int64) (*Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Profile), args.Error(1)
}

func (m *mockRepo) CreateProfile(ctx context.Context, p *Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) UpdateProfile(ctx context.Context, p *Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) ListGroups(ctx context.Context) ([]Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Group), args.Error(1)
}

func (m *mockRepo) GroupByID(ctx context.Context, id int64) (*Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *mockRepo) CreateGroup(ctx context.Context, g *Group) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockRepo) UpdateGroup(ctx context.Context, g *Group) error {
	return m.Called(ctx, g).Error(0)
}

func (m *mockRepo) DeleteGroup(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) ListAdmissions(ctx context.Context) ([]AdmissionRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AdmissionRecord), args.Error(1)
}

func (m *mockRepo) AdmissionByID(ctx context.Context, id int64) (*AdmissionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AdmissionRecord), args.Error(1)
}

func (m *mockRepo) AdmissionByRollNo(ctx context.Context, rollNo string) (*AdmissionRecord, error) {
	args := m.Called(ctx, rollNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AdmissionRecord), args.Error(1)
}

func (m *mockRepo) CreateAdmission(ctx context.Context, a *AdmissionRecord) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepo) UpdateAdmission(ctx context.Context, a *AdmissionRecord) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRepo) LinkAdmission(ctx context.Context, admissionID, userID int64) error {
	return m.Called(ctx, admissionID, userID).Error(0)
}

func (m *mockRepo) DeleteAdmission(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockRefreshStore struct {
	mock.Mock
}

func (m *mockRefreshStore) Save(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	return m.Called(ctx, jti, userID, expiresAt).Error(0)
}

func (m *mockRefreshStore) Revoke(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func (m *mockRefreshStore) Active(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}
