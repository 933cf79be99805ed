// Package memory is an in-process scan queue for single-binary deployments
// and tests. It gives the same at-least-once and retry semantics as the
// Kafka queue but loses pending jobs on restart.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"docvault/internal/queue"
)

// ErrClosed is returned by Enqueue after the consumer has stopped.
var ErrClosed = errors.New("memory queue closed")

// Queue implements queue.Queue and queue.Consumer over a buffered channel.
type Queue struct {
	policy  queue.RetryPolicy
	workers int
	logger  hclog.Logger
	now     func() time.Time

	jobs chan queue.Envelope
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	dead []queue.DeadLetter
	// inflight counts envelopes that are queued, held back for a retry, or
	// being handled. idle is closed whenever inflight is zero.
	inflight int
	idle     chan struct{}
}

var (
	_ queue.Queue    = (*Queue)(nil)
	_ queue.Consumer = (*Queue)(nil)
)

// Options configure New.
type Options struct {
	Policy  queue.RetryPolicy
	Workers int
	Buffer  int
	Logger  hclog.Logger
	Now     func() time.Time
}

// New creates an idle queue; call Consume to start the workers.
func New(opts Options) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Buffer < 1 {
		opts.Buffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		policy:  opts.Policy,
		workers: opts.Workers,
		logger:  opts.Logger.Named("memory-queue"),
		now:     opts.Now,
		jobs:    make(chan queue.Envelope, opts.Buffer),
		done:    make(chan struct{}),
		idle:    idle,
	}
}

func (q *Queue) begin() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight == 0 {
		q.idle = make(chan struct{})
	}
	q.inflight++
}

func (q *Queue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
	}
}

// Enqueue validates and buffers job. It blocks while the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, job queue.ScanJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	env := queue.NewEnvelope(job, q.now().UTC())

	q.begin()
	select {
	case q.jobs <- env:
		q.logger.Debug("job enqueued", "envelope_id", env.ID, "version_id", job.VersionID)
		return nil
	case <-q.done:
		q.finish()
		return ErrClosed
	case <-ctx.Done():
		q.finish()
		return ctx.Err()
	}
}

// Consume runs the configured number of workers until ctx is cancelled.
// Each envelope is handled by exactly one worker at a time.
func (q *Queue) Consume(ctx context.Context, h queue.Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			q.work(ctx, worker, h)
		}(i)
	}
	<-ctx.Done()
	q.once.Do(func() { close(q.done) })
	wg.Wait()
	return ctx.Err()
}

func (q *Queue) work(ctx context.Context, worker int, h queue.Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-q.jobs:
			q.deliver(ctx, worker, env, h)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, worker int, env queue.Envelope, h queue.Handler) {
	err := h(ctx, env)
	if err != nil && ctx.Err() != nil {
		// Shutting down; the job is dropped along with the rest of the buffer.
		q.finish()
		return
	}

	d := q.policy.Decide(env.Attempt, err)
	log := q.logger.With("worker", worker, "envelope_id", env.ID, "version_id", env.Job.VersionID, "attempt", env.Attempt)

	switch d.Action {
	case queue.ActionAck:
		q.finish()
	case queue.ActionRetry:
		log.Warn("job failed, scheduling retry", "error", err, "delay", d.Delay)
		next := env.Retry(err, d.Delay, q.now().UTC())
		time.AfterFunc(d.Delay, func() { q.redeliver(next) })
	case queue.ActionDeadLetter:
		log.Error("job dead-lettered", "reason", d.Reason)
		q.mu.Lock()
		q.dead = append(q.dead, env.Kill(d.Reason, q.now().UTC()))
		q.mu.Unlock()
		q.finish()
	}
}

func (q *Queue) redeliver(env queue.Envelope) {
	select {
	case q.jobs <- env:
	case <-q.done:
		q.finish()
	}
}

// DeadLetters returns a copy of the dead-lettered jobs.
func (q *Queue) DeadLetters() []queue.DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]queue.DeadLetter, len(q.dead))
	copy(out, q.dead)
	return out
}

// Wait blocks until every enqueued job is acked or dead-lettered, or ctx ends.
// Jobs enqueued while Wait runs are waited for too.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.inflight == 0 {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
