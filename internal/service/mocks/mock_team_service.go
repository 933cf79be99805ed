package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/service"
)

type MockTeamService struct {
	mock.Mock
}

var _ service.TeamService = (*MockTeamService)(nil)

func (m *MockTeamService) GetTeam(ctx context.Context, manager access.Actor) ([]model.User, error) {
	args := m.Called(ctx, manager)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockTeamService) AvailableUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockTeamService) AddMember(ctx context.Context, manager access.Actor, userID string) (*model.User, error) {
	args := m.Called(ctx, manager, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockTeamService) RemoveMember(ctx context.Context, manager access.Actor, userID string) (*model.User, error) {
	args := m.Called(ctx, manager, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
