package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentRepository persists documents together with their version chain.
// Every method that touches both tables runs in a single transaction.
type DocumentRepository interface {
	// CreateWithVersion inserts doc and its first version. The version number
	// is forced to 1 and doc.CurrentVersionID to v.ID.
	CreateWithVersion(ctx context.Context, doc *model.Document, v *model.DocumentVersion) (*model.Document, *model.DocumentVersion, error)

	// AppendVersion locks the document row, numbers v as max+1 and moves the
	// current version pointer to it.
	AppendVersion(ctx context.Context, documentID string, v *model.DocumentVersion) (*model.DocumentVersion, error)

	// RemoveVersion undoes a version insert: the pointer moves back to the
	// highest remaining version and the document is deleted if none remain.
	RemoveVersion(ctx context.Context, documentID, versionID string) error

	// FindByID returns the document with OwnerManagerID populated.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// UpdateMetadata replaces access level and tags and refreshes the search vector.
	UpdateMetadata(ctx context.Context, id string, level model.AccessLevel, tags []string) (*model.Document, error)

	// Delete removes the document and every version, returning the storage
	// keys of the removed versions.
	Delete(ctx context.Context, id string) ([]string, error)

	// List returns documents whose current version is available, newest first.
	List(ctx context.Context, q ListQuery) (*PageResult[model.DocumentSummary], error)

	// Search returns documents whose current version is available, best match first.
	Search(ctx context.Context, q SearchQuery) (*PageResult[model.DocumentSummary], error)

	// Stats aggregates document counts and stored bytes.
	Stats(ctx context.Context) (*model.DocumentStats, error)
}

// VersionRepository reads versions and is the only writer of their status.
type VersionRepository interface {
	FindByID(ctx context.Context, id string) (*model.DocumentVersion, error)

	// ListByDocument returns versions newest first.
	ListByDocument(ctx context.Context, documentID string) ([]model.DocumentVersion, error)

	// Transition moves a pending_scan version to status. It returns
	// ErrInvalidTransition if the version already left pending_scan and
	// sql.ErrNoRows if it does not exist.
	Transition(ctx context.Context, id string, status model.VersionStatus) (*model.DocumentVersion, error)
}
