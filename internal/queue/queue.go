// Package queue defines the scan job contract shared by the enqueuing API
// and the scan worker. The payload is a versioned schema so the two sides
// can be deployed independently; delivery is at least once and the retry
// budget is owned by the queue, not the handler.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobSchemaV1 identifies the current ScanJob layout.
const JobSchemaV1 = "scan-job/v1"

var (
	ErrUnsupportedSchema = errors.New("unsupported scan job schema")
	ErrInvalidJob        = errors.New("invalid scan job")
	// ErrPermanent marks a handler error that retrying cannot fix. Such
	// deliveries are dead-lettered without using the retry budget.
	ErrPermanent = errors.New("permanent failure")
)

// ScanJob asks the worker to scan one stored version.
type ScanJob struct {
	Schema      string `json:"schema"`
	VersionID   string `json:"version_id"`
	FileLocator string `json:"file_locator"`
}

// NewScanJob builds a job in the current schema.
func NewScanJob(versionID, fileLocator string) ScanJob {
	return ScanJob{Schema: JobSchemaV1, VersionID: versionID, FileLocator: fileLocator}
}

// Validate checks the schema tag and required fields.
func (j ScanJob) Validate() error {
	if j.Schema != JobSchemaV1 {
		return fmt.Errorf("%w: %q", ErrUnsupportedSchema, j.Schema)
	}
	if j.VersionID == "" || j.FileLocator == "" {
		return fmt.Errorf("%w: version_id and file_locator are required", ErrInvalidJob)
	}
	return nil
}

// Envelope is one delivery of a job. Attempt starts at 1 and grows with
// every redelivery; NotBefore holds back a retry until its backoff elapses.
type Envelope struct {
	ID         string    `json:"id"`
	Job        ScanJob   `json:"job"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	NotBefore  time.Time `json:"not_before,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// NewEnvelope wraps the first delivery of job.
func NewEnvelope(job ScanJob, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Job:        job,
		Attempt:    1,
		EnqueuedAt: now,
	}
}

// Retry returns the next delivery of e, held back by delay.
func (e Envelope) Retry(cause error, delay time.Duration, now time.Time) Envelope {
	next := e
	next.Attempt++
	next.NotBefore = now.Add(delay)
	if cause != nil {
		next.LastError = cause.Error()
	}
	return next
}

// DeadLetter is a job set aside for an operator after it can no longer be
// retried. Raw carries the original payload when it could not be decoded.
type DeadLetter struct {
	Envelope       Envelope  `json:"envelope"`
	Reason         string    `json:"reason"`
	DeadLetteredAt time.Time `json:"dead_lettered_at"`
	Raw            []byte    `json:"raw,omitempty"`
}

// Kill dead-letters e.
func (e Envelope) Kill(reason string, now time.Time) DeadLetter {
	return DeadLetter{Envelope: e, Reason: reason, DeadLetteredAt: now}
}

// Handler processes one delivery. Returning nil acknowledges it; any other
// error hands it back to the queue's retry policy.
type Handler func(ctx context.Context, env Envelope) error

// Queue accepts scan jobs.
type Queue interface {
	Enqueue(ctx context.Context, job ScanJob) error
}

// Consumer delivers jobs to h until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
}

// Permanent wraps err so the retry policy dead-letters it immediately.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
