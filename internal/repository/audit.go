package repository

import (
	"context"

	"docvault/internal/model"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	CountByAction(ctx context.Context) (map[model.AuditAction]int, error)
	MostDownloaded(ctx context.Context, limit int) ([]model.DownloadCount, error)
}

type NotificationRepository interface {
	CreateMany(ctx context.Context, items []model.Notification) error
	ListByUser(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Notification], error)
	// MarkAllRead returns the number of notifications flipped to read.
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
