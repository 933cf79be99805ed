package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

var (
	qInsertDocument = `
		INSERT INTO documents (id, original_filename, owner_id, access_level, tags, current_version_id, search_vector)
		VALUES ($1, $2, $3, $4, $5, $6, ` + searchVector("$2", "$5") + `)
		RETURNING created_at, updated_at
	`

	qUpdateMetadata = `
		UPDATE documents d
		SET access_level = $2,
		    tags = $3,
		    search_vector = ` + searchVector("d.original_filename", "$3") + `,
		    updated_at = now()
		FROM users o
		WHERE d.id = $1 AND o.id = d.owner_id
		RETURNING d.id, d.original_filename, d.owner_id, d.access_level, d.tags,
		          d.current_version_id, d.created_at, d.updated_at, COALESCE(o.manager_id::text, '')
	`
)

const (
	qInsertVersion = `
		INSERT INTO document_versions (id, document_id, version_number, storage_key, size, content_type, uploaded_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending_scan')
		RETURNING status, created_at, updated_at
	`

	qFindDocument = `
		SELECT d.id, d.original_filename, d.owner_id, d.access_level, d.tags,
		       d.current_version_id, d.created_at, d.updated_at, COALESCE(o.manager_id::text, '')
		FROM documents d
		JOIN users o ON o.id = d.owner_id
		WHERE d.id = $1
	`

	qLockDocument   = `SELECT id FROM documents WHERE id = $1 FOR UPDATE`
	qNextVersion    = `SELECT COALESCE(MAX(version_number), 0) + 1 FROM document_versions WHERE document_id = $1`
	qMoveCurrent    = `UPDATE documents SET current_version_id = $2, updated_at = now() WHERE id = $1`
	qDeleteVersion  = `DELETE FROM document_versions WHERE id = $1 AND document_id = $2`
	qLatestVersion  = `SELECT id FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC LIMIT 1`
	qDeleteVersions = `DELETE FROM document_versions WHERE document_id = $1 RETURNING storage_key`
	qDeleteDocument = `DELETE FROM documents WHERE id = $1`

	// summaryFrom joins a document to its owner and current version.
	summaryFrom = `
		FROM documents d
		JOIN users o ON o.id = d.owner_id
		JOIN document_versions v ON v.id = d.current_version_id
		JOIN users u ON u.id = v.uploaded_by`

	summaryColumns = `d.id, d.original_filename, d.access_level, d.tags, d.created_at, d.updated_at,
		o.id, o.username,
		v.id, v.version_number, v.size, v.content_type, v.status, v.created_at,
		u.id, u.username`

	qCountByAccess = `SELECT access_level, COUNT(*) FROM documents GROUP BY access_level`
	qCountByType   = `
		SELECT v.content_type, v.status, COUNT(*)
		FROM documents d
		JOIN document_versions v ON v.id = d.current_version_id
		GROUP BY v.content_type, v.status
	`
	qStoredBytes = `SELECT COALESCE(SUM(size), 0) FROM document_versions`
)

// CreateWithVersion inserts the document and version 1 in one transaction.
// The current_version_id foreign key is deferred, so the document row can
// point at the version before it exists.
func (r *DocumentPostgres) CreateWithVersion(ctx context.Context, doc *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error) {
	outDoc := *doc
	outDoc.Tags = normalizeTags(doc.Tags)
	outDoc.CurrentVersionID = v.ID
	outVer := *v
	outVer.DocumentID = doc.ID
	outVer.VersionNumber = 1

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, qInsertDocument,
			outDoc.ID,
			outDoc.OriginalFilename,
			outDoc.OwnerID,
			outDoc.AccessLevel,
			outDoc.Tags,
			outDoc.CurrentVersionID,
		).Scan(&outDoc.CreatedAt, &outDoc.UpdatedAt); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return insertVersion(ctx, tx, &outVer)
	})
	if err != nil {
		return nil, nil, err
	}
	return &outDoc, &outVer, nil
}

// AppendVersion locks the document row so concurrent uploads number their
// versions one after another.
func (r *DocumentPostgres) AppendVersion(ctx context.Context, documentID string, v *model.DocumentVersion) (*model.DocumentVersion, error) {
	out := *v
	out.DocumentID = documentID

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id string
		if err := tx.QueryRowContext(ctx, qLockDocument, documentID).Scan(&id); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, qNextVersion, documentID).Scan(&out.VersionNumber); err != nil {
			return fmt.Errorf("next version number: %w", err)
		}
		if err := insertVersion(ctx, tx, &out); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, qMoveCurrent, documentID, out.ID); err != nil {
			return fmt.Errorf("move current version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *model.DocumentVersion) error {
	if err := tx.QueryRowContext(ctx, qInsertVersion,
		v.ID,
		v.DocumentID,
		v.VersionNumber,
		v.StorageKey,
		v.Size,
		v.ContentType,
		v.UploadedBy,
	).Scan(&v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// RemoveVersion deletes a version that never got a scan job and restores
// the current pointer. A document left without versions is deleted with it.
func (r *DocumentPostgres) RemoveVersion(ctx context.Context, documentID, versionID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, qDeleteVersion, versionID, documentID); err != nil {
			return fmt.Errorf("delete version: %w", err)
		}

		var latest string
		err := tx.QueryRowContext(ctx, qLatestVersion, documentID).Scan(&latest)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, qDeleteDocument, documentID); err != nil {
				return fmt.Errorf("delete empty document: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("find latest version: %w", err)
		}

		if _, err := tx.ExecContext(ctx, qMoveCurrent, documentID, latest); err != nil {
			return fmt.Errorf("move current version: %w", err)
		}
		return nil
	})
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return scanDocument(r.db.QueryRowContext(ctx, qFindDocument, id))
}

// UpdateMetadata rewrites access level and tags in place.
func (r *DocumentPostgres) UpdateMetadata(ctx context.Context, id string, level model.AccessLevel, tags []string) (*model.Document, error) {
	return scanDocument(r.db.QueryRowContext(ctx, qUpdateMetadata, id, level, normalizeTags(tags)))
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var (
		d       model.Document
		current sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.OriginalFilename,
		&d.OwnerID,
		&d.AccessLevel,
		textArray(&d.Tags),
		&current,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.OwnerManagerID,
	); err != nil {
		return nil, err
	}
	d.CurrentVersionID = current.String
	d.Tags = normalizeTags(d.Tags)
	return &d, nil
}

// Delete removes every version and then the document. It returns
// sql.ErrNoRows, and changes nothing, when the document does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) ([]string, error) {
	keys := make([]string, 0)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, qDeleteVersions, id)
		if err != nil {
			return fmt.Errorf("delete versions: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, qDeleteDocument, id)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// List returns documents using page/limit pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, q repository.ListQuery) (*repository.PageResult[model.DocumentSummary], error) {
	var conds conditions
	conds.add("v.status = 'available'").addAccess(q.Filter)
	if q.Tag != "" {
		conds.add(placeholder+" = ANY(d.tags)", q.Tag)
	}
	where, args, next := conds.where(1)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+summaryFrom+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf("SELECT %s%s%s ORDER BY d.created_at DESC, d.id DESC LIMIT $%d OFFSET $%d",
		summaryColumns, summaryFrom, where, next, next+1)
	rows, err := r.db.QueryContext(ctx, qList, append(args, q.Page.Limit, q.Page.Offset())...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanSummaries(rows, false)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.DocumentSummary]{Items: items, Total: total}, nil
}

// Search ranks documents matching any word of the query text against
// filename and tags. $1 is always the tsquery; filter parameters follow it.
func (r *DocumentPostgres) Search(ctx context.Context, q repository.SearchQuery) (*repository.PageResult[model.DocumentSummary], error) {
	tsq := anyTermsQuery(q.Text)
	if tsq == "" {
		return &repository.PageResult[model.DocumentSummary]{Items: []model.DocumentSummary{}}, nil
	}

	var conds conditions
	conds.add("v.status = 'available'").
		add("d.search_vector @@ to_tsquery('simple', $1)").
		addAccess(q.Filter)
	where, args, next := conds.where(2)
	args = append([]any{tsq}, args...)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+summaryFrom+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qSearch := fmt.Sprintf(
		"SELECT %s, ts_rank(d.search_vector, to_tsquery('simple', $1)) AS score%s%s ORDER BY score DESC, d.created_at DESC LIMIT $%d OFFSET $%d",
		summaryColumns, summaryFrom, where, next, next+1)
	rows, err := r.db.QueryContext(ctx, qSearch, append(args, q.Page.Limit, q.Page.Offset())...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanSummaries(rows, true)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.DocumentSummary]{Items: items, Total: total}, nil
}

func scanSummaries(rows *sql.Rows, withScore bool) ([]model.DocumentSummary, error) {
	items := make([]model.DocumentSummary, 0)
	for rows.Next() {
		var s model.DocumentSummary
		dest := []any{
			&s.ID,
			&s.OriginalFilename,
			&s.AccessLevel,
			textArray(&s.Tags),
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.Owner.ID,
			&s.Owner.Username,
			&s.CurrentVersion.ID,
			&s.CurrentVersion.VersionNumber,
			&s.CurrentVersion.Size,
			&s.CurrentVersion.ContentType,
			&s.CurrentVersion.Status,
			&s.CurrentVersion.CreatedAt,
			&s.CurrentVersion.UploadedBy.ID,
			&s.CurrentVersion.UploadedBy.Username,
		}
		var score float64
		if withScore {
			dest = append(dest, &score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if withScore {
			s.Score = &score
		}
		s.Tags = normalizeTags(s.Tags)
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats counts documents by access level and by current version type and
// status, and sums the size of every stored version.
func (r *DocumentPostgres) Stats(ctx context.Context) (*model.DocumentStats, error) {
	out := &model.DocumentStats{
		ByAccessLevel: make(map[model.AccessLevel]int),
		ByContentType: make(map[string]int),
		ByStatus:      make(map[model.VersionStatus]int),
	}
	if err := r.countByAccess(ctx, out); err != nil {
		return nil, fmt.Errorf("count by access level: %w", err)
	}
	if err := r.countByType(ctx, out); err != nil {
		return nil, fmt.Errorf("count by content type: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, qStoredBytes).Scan(&out.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("sum stored bytes: %w", err)
	}
	return out, nil
}

func (r *DocumentPostgres) countByAccess(ctx context.Context, out *model.DocumentStats) error {
	rows, err := r.db.QueryContext(ctx, qCountByAccess)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			level model.AccessLevel
			n     int
		)
		if err := rows.Scan(&level, &n); err != nil {
			return err
		}
		out.ByAccessLevel[level] = n
		out.Total += n
	}
	return rows.Err()
}

func (r *DocumentPostgres) countByType(ctx context.Context, out *model.DocumentStats) error {
	rows, err := r.db.QueryContext(ctx, qCountByType)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			contentType string
			status      model.VersionStatus
			n           int
		)
		if err := rows.Scan(&contentType, &status, &n); err != nil {
			return err
		}
		out.ByContentType[contentType] += n
		out.ByStatus[status] += n
	}
	return rows.Err()
}
