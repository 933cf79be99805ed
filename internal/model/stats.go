package model

// DashboardStats is the admin dashboard aggregate.
type DashboardStats struct {
	Users     UserStats     `json:"users"`
	Documents DocumentStats `json:"documents"`
	Activity  ActivityStats `json:"activity"`
}

type UserStats struct {
	Total  int          `json:"total"`
	ByRole map[Role]int `json:"by_role"`
}

// DocumentStats counts documents by their current version. TotalSizeBytes
// sums every stored version.
type DocumentStats struct {
	Total          int                   `json:"total"`
	TotalSizeBytes int64                 `json:"total_size_bytes"`
	ByAccessLevel  map[AccessLevel]int   `json:"by_access_level"`
	ByContentType  map[string]int        `json:"by_content_type"`
	ByStatus       map[VersionStatus]int `json:"by_status"`
}

type ActivityStats struct {
	ByAction       map[AuditAction]int `json:"by_action"`
	MostDownloaded []DownloadCount     `json:"most_downloaded"`
}

type DownloadCount struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Downloads  int    `json:"downloads"`
}
