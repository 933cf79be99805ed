// Package scanner classifies stored document content as clean or malicious.
//
// Scan returns nil for clean content and a *MaliciousError for a definitive
// detection. Every other error is transient: the job that asked for the scan
// is retried by the queue.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Scanner scans the content stored under locator.
type Scanner interface {
	Scan(ctx context.Context, locator string) error
}

// MaliciousError is a terminal verdict. Rescanning cannot change it.
type MaliciousError struct {
	Reason    string
	Positives int
}

func (e *MaliciousError) Error() string {
	return fmt.Sprintf("malicious content: %s (flagged by %d engines)", e.Reason, e.Positives)
}

// IsMalicious reports whether err carries a malicious verdict.
func IsMalicious(err error) bool {
	var me *MaliciousError
	return errors.As(err, &me)
}

// Skip reports every file as clean. It stands in when no VirusTotal key is
// configured so local environments can upload documents.
type Skip struct {
	logger hclog.Logger
}

// NewSkip returns a Skip scanner and logs a warning that scanning is off.
func NewSkip(logger hclog.Logger) *Skip {
	l := logger.Named("scanner")
	l.Warn("VIRUSTOTAL_API_KEY is not set, file scanning is disabled and every upload will be marked available")
	return &Skip{logger: l}
}

func (s *Skip) Scan(_ context.Context, locator string) error {
	s.logger.Warn("skipping scan", "locator", locator)
	return nil
}
