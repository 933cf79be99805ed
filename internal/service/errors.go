package service

import "errors"

var (
	ErrIDRequired             = errors.New("id is required")
	ErrNotFound               = errors.New("document not found")
	ErrVersionNotFound        = errors.New("document version not found")
	ErrForbidden              = errors.New("access denied")
	ErrInvalidAccessLevel     = errors.New("access level must be one of private, team, public")
	ErrPendingScan            = errors.New("document version is pending a malware scan")
	ErrQuarantined            = errors.New("document version was quarantined by the malware scan")
	ErrReaderNil              = errors.New("reader is nil")
	ErrQueryRequired          = errors.New("search query is required")
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrVersionResolved is returned by VersionService when the version has
	// already left pending_scan. Scan callbacks treat it as a no-op.
	ErrVersionResolved = errors.New("document version already resolved")

	ErrUserNotFound  = errors.New("user not found")
	ErrNotAssignable = errors.New("user cannot be added to a team")
	ErrAlreadyInTeam = errors.New("user is already in your team")
	ErrInAnotherTeam = errors.New("user is already in another team")
	ErrNotTeamMember = errors.New("user is not on your team")

	ErrUsernameTaken   = errors.New("username is already taken")
	ErrEmailTaken      = errors.New("email is already in use")
	ErrInvalidEmail    = errors.New("email address is invalid")
	ErrInvalidUsername = errors.New("username must be at most 64 characters")
)
