package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	"docvault/internal/service"
)

type MockNotificationService struct {
	mock.Mock
}

var _ service.NotificationService = (*MockNotificationService)(nil)

func (m *MockNotificationService) NotifyTeamOfNewDocument(ctx context.Context, doc *model.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockNotificationService) NotifyAddedToTeam(ctx context.Context, user, manager *model.User) error {
	args := m.Called(ctx, user, manager)
	return args.Error(0)
}

func (m *MockNotificationService) List(ctx context.Context, userID string, page, limit int) (*service.Page[model.Notification], error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Page[model.Notification]), args.Error(1)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockStatsService mocks service.StatsService.
type MockStatsService struct {
	mock.Mock
}

var _ service.StatsService = (*MockStatsService)(nil)

func (m *MockStatsService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardStats), args.Error(1)
}
