package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	"docvault/internal/service"
)

type MockVersionService struct {
	mock.Mock
}

var _ service.VersionService = (*MockVersionService)(nil)

func (m *MockVersionService) Get(ctx context.Context, versionID string) (*model.DocumentVersion, error) {
	args := m.Called(ctx, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockVersionService) MarkAvailable(ctx context.Context, versionID string) (*model.DocumentVersion, error) {
	args := m.Called(ctx, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}

func (m *MockVersionService) MarkQuarantined(ctx context.Context, versionID, reason string) (*model.DocumentVersion, error) {
	args := m.Called(ctx, versionID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentVersion), args.Error(1)
}
