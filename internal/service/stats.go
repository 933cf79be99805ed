package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"docvault/internal/cache"
	"docvault/internal/model"
	"docvault/internal/repository"
)

const (
	dashboardKey      = "dashboard_stats"
	mostDownloadedCap = 5
)

// StatsService serves the admin dashboard aggregates.
type StatsService interface {
	// Dashboard returns cached aggregates, recomputing them once the cache
	// entry has expired.
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

type statsService struct {
	users  repository.UserRepository
	docs   repository.DocumentRepository
	audit  repository.AuditRepository
	cache  *cache.TTL[*model.DashboardStats]
	logger hclog.Logger
}

func NewStatsService(users repository.UserRepository, docs repository.DocumentRepository, audit repository.AuditRepository, c *cache.TTL[*model.DashboardStats], logger hclog.Logger) StatsService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &statsService{users: users, docs: docs, audit: audit, cache: c, logger: logger.Named("stats")}
}

func (s *statsService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	if cached, ok := s.cache.Get(dashboardKey); ok {
		s.logger.Debug("cache hit", "key", dashboardKey)
		return cached, nil
	}
	s.logger.Debug("cache miss", "key", dashboardKey)

	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	docStats, err := s.docs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	byAction, err := s.audit.CountByAction(ctx)
	if err != nil {
		return nil, fmt.Errorf("count audit actions: %w", err)
	}
	top, err := s.audit.MostDownloaded(ctx, mostDownloadedCap)
	if err != nil {
		return nil, fmt.Errorf("most downloaded: %w", err)
	}
	if top == nil {
		top = []model.DownloadCount{}
	}

	total := 0
	for _, n := range byRole {
		total += n
	}
	stats := &model.DashboardStats{
		Users:     model.UserStats{Total: total, ByRole: byRole},
		Documents: *docStats,
		Activity:  model.ActivityStats{ByAction: byAction, MostDownloaded: top},
	}
	s.cache.Set(dashboardKey, stats)
	return stats, nil
}
