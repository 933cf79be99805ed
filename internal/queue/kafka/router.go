package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"docvault/internal/queue"
)

// router decides what follows one consumed record: nothing (ack), a
// republish to the jobs topic (retry) or a dead letter. It holds no client
// so the retry logic can be exercised without a broker.
type router struct {
	topic    string
	dlqTopic string
	policy   queue.RetryPolicy
	now      func() time.Time
}

// due reports how long rec must still be held back before route may run
// it, capped at MaxBackoff. Undecodable records are due at once so route
// can dead-letter them.
func (r *router) due(rec *kgo.Record) time.Duration {
	var env struct {
		NotBefore time.Time `json:"not_before"`
	}
	if err := json.Unmarshal(rec.Value, &env); err != nil {
		return 0
	}
	delay := env.NotBefore.Sub(r.now())
	if delay <= 0 {
		return 0
	}
	if r.policy.MaxBackoff > 0 && delay > r.policy.MaxBackoff {
		delay = r.policy.MaxBackoff
	}
	return delay
}

// route runs h for rec and returns the follow-up record, if any, together
// with the decision taken. Callers hold rec back until due returns zero.
func (r *router) route(ctx context.Context, rec *kgo.Record, h queue.Handler) (*kgo.Record, queue.Decision, error) {
	var env queue.Envelope
	if err := json.Unmarshal(rec.Value, &env); err != nil {
		return r.malformed(rec, fmt.Errorf("decode envelope: %w", err))
	}
	if err := env.Job.Validate(); err != nil {
		return r.malformed(rec, err)
	}

	herr := h(ctx, env)
	if herr != nil && ctx.Err() != nil {
		return nil, queue.Decision{}, ctx.Err()
	}

	d := r.policy.Decide(env.Attempt, herr)
	switch d.Action {
	case queue.ActionRetry:
		next, err := envelopeRecord(r.topic, env.Retry(herr, d.Delay, r.now().UTC()))
		return next, d, err
	case queue.ActionDeadLetter:
		dl, err := deadLetterRecord(r.dlqTopic, rec.Key, env.Kill(d.Reason, r.now().UTC()))
		return dl, d, err
	}
	return nil, d, nil
}

func (r *router) malformed(rec *kgo.Record, cause error) (*kgo.Record, queue.Decision, error) {
	d := queue.Decision{Action: queue.ActionDeadLetter, Reason: "malformed: " + cause.Error()}
	dl, err := deadLetterRecord(r.dlqTopic, rec.Key, queue.DeadLetter{
		Reason:         d.Reason,
		DeadLetteredAt: r.now().UTC(),
		Raw:            rec.Value,
	})
	return dl, d, err
}
