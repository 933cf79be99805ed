package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"docvault/internal/config"
)

// Action is what the queue does with a finished delivery.
type Action int

const (
	ActionAck Action = iota
	ActionRetry
	ActionDeadLetter
)

func (a Action) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionRetry:
		return "retry"
	case ActionDeadLetter:
		return "dead_letter"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Decision is the outcome of RetryPolicy.Decide.
type Decision struct {
	Action Action
	Delay  time.Duration
	Reason string
}

// RetryPolicy bounds redelivery with capped exponential backoff.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter is the backoff randomization factor in [0, 1). Zero gives
	// exact delays.
	Jitter float64
}

// DefaultRetryPolicy mirrors the configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     5 * time.Minute,
		Multiplier:     2,
		Jitter:         0.2,
	}
}

// PolicyFromConfig builds the policy from the queue settings, keeping the
// defaults for anything unset.
func PolicyFromConfig(cfg config.QueueConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 {
		p.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		p.MaxBackoff = cfg.MaxBackoff
	}
	return p
}

// Backoff returns the delay before the delivery that follows attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Decide classifies the result of delivery number attempt.
func (p RetryPolicy) Decide(attempt int, err error) Decision {
	switch {
	case err == nil:
		return Decision{Action: ActionAck}
	case errors.Is(err, ErrPermanent):
		return Decision{Action: ActionDeadLetter, Reason: err.Error()}
	case attempt >= p.MaxAttempts:
		return Decision{
			Action: ActionDeadLetter,
			Reason: fmt.Sprintf("retry budget of %d attempts exhausted: %v", p.MaxAttempts, err),
		}
	}
	return Decision{Action: ActionRetry, Delay: p.Backoff(attempt), Reason: err.Error()}
}
