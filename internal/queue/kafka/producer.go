// Package kafka carries scan jobs over Kafka (or Redpanda) with franz-go.
// Jobs are keyed by version id so every delivery of a version lands on the
// same partition. Retries are republished to the jobs topic with a later
// NotBefore, and exhausted or undecodable jobs go to a dead-letter topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"

	"docvault/internal/config"
	"docvault/internal/queue"
)

const schemaHeader = "schema"

// Producer implements queue.Queue.
type Producer struct {
	client *kgo.Client
	topic  string
	logger hclog.Logger
	now    func() time.Time
}

var _ queue.Queue = (*Producer)(nil)

// NewProducer creates a producer for the jobs topic.
func NewProducer(cfg config.QueueConfig, logger hclog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	client, err := kgo.NewClient(producerOpts(cfg.Brokers)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		topic:  cfg.Topic,
		logger: logger.Named("scan-producer"),
		now:    time.Now,
	}, nil
}

func producerOpts(brokers []string) []kgo.Opt {
	return []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		// Wait for all in-sync replicas; a lost job leaves a version stuck pending.
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.GzipCompression()),
		kgo.RetryBackoffFn(func(tries int) time.Duration {
			backoff := time.Duration(tries) * 100 * time.Millisecond
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			return backoff
		}),
		kgo.RequestRetries(10),
		kgo.ProducerLinger(5 * time.Millisecond),
	}
}

// Enqueue publishes the first delivery of job and waits for the broker ack.
func (p *Producer) Enqueue(ctx context.Context, job queue.ScanJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	env := queue.NewEnvelope(job, p.now().UTC())
	rec, err := envelopeRecord(p.topic, env)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish scan job: %w", err)
	}
	p.logger.Debug("scan job published", "envelope_id", env.ID, "version_id", job.VersionID)
	return nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the producer.
func (p *Producer) Close() {
	p.client.Close()
}

func envelopeRecord(topic string, env queue.Envelope) (*kgo.Record, error) {
	value, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan job: %w", err)
	}
	return &kgo.Record{
		Topic:   topic,
		Key:     []byte(env.Job.VersionID),
		Value:   value,
		Headers: []kgo.RecordHeader{{Key: schemaHeader, Value: []byte(env.Job.Schema)}},
	}, nil
}

func deadLetterRecord(topic string, key []byte, dl queue.DeadLetter) (*kgo.Record, error) {
	value, err := json.Marshal(dl)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	return &kgo.Record{Topic: topic, Key: key, Value: value}, nil
}
