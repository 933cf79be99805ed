package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
type AuditPostgres struct {
	db *sql.DB
}

// NewAuditPostgres creates a new AuditPostgres repository.
func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

const (
	qInsertAudit = `
		INSERT INTO audit_logs (id, user_id, document_id, action)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	qCountByAction = `SELECT action, COUNT(*) FROM audit_logs GROUP BY action`
	// Deleted documents drop out of the join, so their download history is
	// not reported.
	qMostDownloaded = `
		SELECT a.document_id, d.original_filename, COUNT(*) AS downloads
		FROM audit_logs a
		JOIN documents d ON d.id = a.document_id
		WHERE a.action = 'download'
		GROUP BY a.document_id, d.original_filename
		ORDER BY downloads DESC, a.document_id
		LIMIT $1
	`
)

func (r *AuditPostgres) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.QueryRowContext(ctx, qInsertAudit,
		entry.ID,
		entry.UserID,
		entry.DocumentID,
		entry.Action,
	).Scan(&entry.CreatedAt)
}

func (r *AuditPostgres) CountByAction(ctx context.Context) (map[model.AuditAction]int, error) {
	rows, err := r.db.QueryContext(ctx, qCountByAction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.AuditAction]int)
	for rows.Next() {
		var (
			action model.AuditAction
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[action] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AuditPostgres) MostDownloaded(ctx context.Context, limit int) ([]model.DownloadCount, error) {
	rows, err := r.db.QueryContext(ctx, qMostDownloaded, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DownloadCount, 0)
	for rows.Next() {
		var c model.DownloadCount
		if err := rows.Scan(&c.DocumentID, &c.Filename, &c.Downloads); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// NotificationPostgres is a PostgreSQL implementation of repository.NotificationRepository.
type NotificationPostgres struct {
	db *sql.DB
}

// NewNotificationPostgres creates a new NotificationPostgres repository.
func NewNotificationPostgres(db *sql.DB) *NotificationPostgres {
	return &NotificationPostgres{db: db}
}

var _ repository.NotificationRepository = (*NotificationPostgres)(nil)

const (
	notificationColumns = `id, user_id, message, link, read, created_at`

	qCountNotifications = `SELECT COUNT(*) FROM notifications WHERE user_id = $1`
	qListNotifications  = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	qMarkAllRead = `UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`
)

// CreateMany inserts all items with one multi-row INSERT.
func (r *NotificationPostgres) CreateMany(ctx context.Context, items []model.Notification) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*4)
	for i, n := range items {
		base := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, n.ID, n.UserID, n.Message, n.Link)
	}
	q := "INSERT INTO notifications (id, user_id, message, link) VALUES " + strings.Join(values, ", ")
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

func (r *NotificationPostgres) ListByUser(ctx context.Context, userID string, pq repository.PageQuery) (*repository.PageResult[model.Notification], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, qCountNotifications, userID).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, qListNotifications, userID, pq.Limit, pq.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Notification]{Items: items, Total: total}, nil
}

func (r *NotificationPostgres) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, qMarkAllRead, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
