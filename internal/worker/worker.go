// Package worker runs the scan pipeline for one delivered job: scan the
// stored content, then resolve the version as available or quarantined.
//
// Jobs are delivered at least once. The pending_scan guard on version status
// makes a redelivery after a completed transition a no-op, so handlers never
// need locks of their own.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/model"
	"docvault/internal/queue"
	"docvault/internal/scanner"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// Outcome labels of scan_jobs_total.
const (
	OutcomeClean     = "clean"
	OutcomeMalicious = "malicious"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
	OutcomeNoop      = "noop"
)

// ErrLocatorMismatch marks a job whose file locator is not the stored key of
// its version. Such a job is dead-lettered without touching any content.
var ErrLocatorMismatch = errors.New("scan job locator mismatch")

// Processor handles scan jobs. Its Handle method is a queue.Handler.
type Processor struct {
	versions service.VersionService
	store    storage.Storage
	scanner  scanner.Scanner
	outcomes *prometheus.CounterVec
	logger   hclog.Logger
}

// NewProcessor registers the outcome counter on reg.
func NewProcessor(versions service.VersionService, store storage.Storage, sc scanner.Scanner, reg prometheus.Registerer, logger hclog.Logger) (*Processor, error) {
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_jobs_total",
			Help: "Scan job deliveries by outcome.",
		},
		[]string{"outcome"},
	)
	if err := reg.Register(outcomes); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Processor{
		versions: versions,
		store:    store,
		scanner:  sc,
		outcomes: outcomes,
		logger:   logger.Named("scan-worker"),
	}, nil
}

// Handle processes one delivery. A nil return acknowledges the job; any
// error hands it back to the queue for retry, or dead-letters it when it
// wraps queue.ErrPermanent.
func (p *Processor) Handle(ctx context.Context, env queue.Envelope) error {
	job := env.Job
	log := p.logger.With("version_id", job.VersionID, "envelope_id", env.ID, "attempt", env.Attempt)

	v, err := p.versions.Get(ctx, job.VersionID)
	if err != nil {
		if errors.Is(err, service.ErrVersionNotFound) {
			log.Info("version no longer exists, dropping job")
			return p.done(OutcomeNoop, nil)
		}
		return p.done(OutcomeTransient, fmt.Errorf("load version: %w", err))
	}

	if job.FileLocator != v.StorageKey {
		log.Error("job locator does not match version content", "locator", job.FileLocator, "storage_key", v.StorageKey)
		return p.done(OutcomePermanent, queue.Permanent(fmt.Errorf("%w: job has %q, version has %q",
			ErrLocatorMismatch, job.FileLocator, v.StorageKey)))
	}

	switch v.Status {
	case model.StatusAvailable:
		log.Info("version already available, skipping duplicate job")
		return p.done(OutcomeNoop, nil)
	case model.StatusQuarantined:
		// An earlier delivery quarantined it but may have failed to remove the content.
		if err := p.store.Delete(ctx, job.FileLocator); err != nil {
			return p.done(OutcomeTransient, fmt.Errorf("delete quarantined content: %w", err))
		}
		log.Info("version already quarantined, skipping duplicate job")
		return p.done(OutcomeNoop, nil)
	}

	err = p.scanner.Scan(ctx, job.FileLocator)
	switch {
	case err == nil:
		return p.markAvailable(ctx, log, job)
	case scanner.IsMalicious(err):
		return p.quarantine(ctx, log, job, err)
	case errors.Is(err, storage.ErrObjectNotFound):
		log.Error("content missing, job cannot succeed", "locator", job.FileLocator)
		return p.done(OutcomePermanent, queue.Permanent(err))
	}
	log.Warn("scan failed, will retry", "error", err)
	return p.done(OutcomeTransient, err)
}

func (p *Processor) markAvailable(ctx context.Context, log hclog.Logger, job queue.ScanJob) error {
	_, err := p.versions.MarkAvailable(ctx, job.VersionID)
	if resolvedOrGone(err) {
		log.Warn("version resolved by another delivery", "error", err)
		return p.done(OutcomeNoop, nil)
	}
	if err != nil {
		return p.done(OutcomeTransient, fmt.Errorf("mark available: %w", err))
	}
	return p.done(OutcomeClean, nil)
}

func (p *Processor) quarantine(ctx context.Context, log hclog.Logger, job queue.ScanJob, verdict error) error {
	_, err := p.versions.MarkQuarantined(ctx, job.VersionID, verdict.Error())
	if resolvedOrGone(err) {
		log.Warn("version resolved by another delivery", "error", err)
		return p.done(OutcomeNoop, nil)
	}
	if err != nil {
		return p.done(OutcomeTransient, fmt.Errorf("mark quarantined: %w", err))
	}
	// Once quarantined, a redelivery only retries this delete.
	if err := p.store.Delete(ctx, job.FileLocator); err != nil {
		return p.done(OutcomeTransient, fmt.Errorf("delete quarantined content: %w", err))
	}
	log.Warn("content quarantined and removed", "locator", job.FileLocator)
	return p.done(OutcomeMalicious, nil)
}

func (p *Processor) done(outcome string, err error) error {
	p.outcomes.WithLabelValues(outcome).Inc()
	return err
}

func resolvedOrGone(err error) bool {
	return errors.Is(err, service.ErrVersionResolved) || errors.Is(err, service.ErrVersionNotFound)
}
