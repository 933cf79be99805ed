package model

import (
	"fmt"
	"time"
)

// AccessLevel is the per-document visibility tier.
type AccessLevel string

const (
	AccessPrivate AccessLevel = "private"
	AccessTeam    AccessLevel = "team"
	AccessPublic  AccessLevel = "public"
)

// ParseAccessLevel is the strict form used by metadata updates.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch l := AccessLevel(s); l {
	case AccessPrivate, AccessTeam, AccessPublic:
		return l, nil
	}
	return "", fmt.Errorf("unknown access level %q", s)
}

// CoerceAccessLevel is the lenient form used on upload: empty or unknown
// values become private.
func CoerceAccessLevel(s string) AccessLevel {
	l, err := ParseAccessLevel(s)
	if err != nil {
		return AccessPrivate
	}
	return l
}

// Document is the unit addressed by access control. CurrentVersionID always
// points at the highest numbered version.
type Document struct {
	ID               string      `json:"id"`
	OriginalFilename string      `json:"original_filename"`
	OwnerID          string      `json:"owner_id"`
	AccessLevel      AccessLevel `json:"access_level"`
	Tags             []string    `json:"tags"`
	CurrentVersionID string      `json:"current_version_id"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// OwnerManagerID is the owner's manager, joined from users when the
	// document is loaded for an access check. Empty when the owner has none.
	OwnerManagerID string `json:"-"`
}

// VersionSummary is the current-version part of a DocumentSummary.
type VersionSummary struct {
	ID            string        `json:"id"`
	VersionNumber int           `json:"version_number"`
	Size          int64         `json:"size"`
	ContentType   string        `json:"content_type"`
	Status        VersionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UploadedBy    UserRef       `json:"uploaded_by"`
}

// DocumentSummary is the joined document/owner/version row returned by
// listing and search.
type DocumentSummary struct {
	ID               string         `json:"id"`
	OriginalFilename string         `json:"original_filename"`
	AccessLevel      AccessLevel    `json:"access_level"`
	Tags             []string       `json:"tags"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Owner            UserRef        `json:"owner"`
	CurrentVersion   VersionSummary `json:"current_version"`
	Score            *float64       `json:"score,omitempty"`
}
