package model

import "time"

// VersionStatus is the scan state of a DocumentVersion.
type VersionStatus string

const (
	StatusPendingScan VersionStatus = "pending_scan"
	StatusAvailable   VersionStatus = "available"
	StatusQuarantined VersionStatus = "quarantined"
)

// CanTransition reports whether s may move to next. Only pending_scan has
// outgoing edges; available and quarantined are terminal.
func (s VersionStatus) CanTransition(next VersionStatus) bool {
	if s != StatusPendingScan {
		return false
	}
	return next == StatusAvailable || next == StatusQuarantined
}

// Terminal reports whether the scan pipeline has finished with the version.
func (s VersionStatus) Terminal() bool {
	return s == StatusAvailable || s == StatusQuarantined
}

// DocumentVersion is one uploaded revision of a document's content.
// StorageKey is the object-store locator of the content.
type DocumentVersion struct {
	ID            string        `json:"id"`
	DocumentID    string        `json:"document_id"`
	VersionNumber int           `json:"version_number"`
	StorageKey    string        `json:"storage_key"`
	Size          int64         `json:"size"`
	ContentType   string        `json:"content_type"`
	UploadedBy    string        `json:"uploaded_by"`
	Status        VersionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
