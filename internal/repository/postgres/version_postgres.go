package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// VersionPostgres is a PostgreSQL implementation of repository.VersionRepository.
type VersionPostgres struct {
	db *sql.DB
}

// NewVersionPostgres creates a new VersionPostgres repository.
func NewVersionPostgres(db *sql.DB) *VersionPostgres {
	return &VersionPostgres{db: db}
}

var _ repository.VersionRepository = (*VersionPostgres)(nil)

const (
	versionColumns = `id, document_id, version_number, storage_key, size, content_type, uploaded_by, status, created_at, updated_at`

	qFindVersion  = `SELECT ` + versionColumns + ` FROM document_versions WHERE id = $1`
	qListVersions = `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC`
	qTransition   = `
		UPDATE document_versions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending_scan'
		RETURNING ` + versionColumns

	qVersionExists = `SELECT EXISTS (SELECT 1 FROM document_versions WHERE id = $1)`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	if err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.StorageKey,
		&v.Size,
		&v.ContentType,
		&v.UploadedBy,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByID fetches a single version by its ID.
func (r *VersionPostgres) FindByID(ctx context.Context, id string) (*model.DocumentVersion, error) {
	return scanVersion(r.db.QueryRowContext(ctx, qFindVersion, id))
}

// ListByDocument returns the versions of a document, newest first.
func (r *VersionPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	rows, err := r.db.QueryContext(ctx, qListVersions, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DocumentVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Transition is a compare-and-set on status: the row only changes while it
// is still pending_scan, so a late or duplicate scan result cannot
// overwrite a finished one.
func (r *VersionPostgres) Transition(ctx context.Context, id string, status model.VersionStatus) (*model.DocumentVersion, error) {
	if !model.StatusPendingScan.CanTransition(status) {
		return nil, repository.ErrInvalidTransition
	}

	v, err := scanVersion(r.db.QueryRowContext(ctx, qTransition, id, status))
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, qVersionExists, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, sql.ErrNoRows
	}
	return nil, repository.ErrInvalidTransition
}
