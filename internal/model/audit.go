package model

import "time"

// AuditAction enumerates the mutating (and download) actions recorded
// against a document.
type AuditAction string

const (
	AuditUpload         AuditAction = "upload"
	AuditVersionUpload  AuditAction = "version_upload"
	AuditDelete         AuditAction = "delete"
	AuditAccessChange   AuditAction = "access_change"
	AuditMetadataUpdate AuditAction = "metadata_update"
	AuditDownload       AuditAction = "download"
)

// AuditLog is an append-only entry. DocumentID is kept after the document
// is deleted, so it is not a foreign key.
type AuditLog struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	DocumentID string      `json:"document_id"`
	Action     AuditAction `json:"action"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Notification is an in-app message for a single user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
