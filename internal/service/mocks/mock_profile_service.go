package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/access"
	"docvault/internal/model"
	"docvault/internal/service"
)

type MockProfileService struct {
	mock.Mock
}

var _ service.ProfileService = (*MockProfileService)(nil)

func (m *MockProfileService) Me(ctx context.Context, actor access.Actor) (*model.User, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, actor access.Actor, in service.ProfileInput) (*model.User, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}
