package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"

	"docvault/internal/config"
	"docvault/internal/queue"
)

// Consumer implements queue.Consumer as a member of a consumer group.
// Offsets are committed manually and only after the follow-up record of a
// retry or dead letter has been acknowledged by the broker.
type Consumer struct {
	client *kgo.Client
	router router
	holds  *holder
	logger hclog.Logger
}

var _ queue.Consumer = (*Consumer)(nil)

// NewConsumer joins cfg.ConsumerGroup on the jobs topic.
func NewConsumer(cfg config.QueueConfig, policy queue.RetryPolicy, logger hclog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" || cfg.DLQTopic == "" {
		return nil, fmt.Errorf("topic and dlq topic are required")
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "docvault-scan-workers"
	}

	opts := append(producerOpts(cfg.Brokers),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topic),
		// New groups start from the beginning so jobs published before the
		// first worker joined are not skipped.
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.SessionTimeout(10*time.Second),
		kgo.RebalanceTimeout(30*time.Second),
		kgo.DisableAutoCommit(),
		kgo.FetchMaxWait(500*time.Millisecond),
		kgo.FetchMaxBytes(5<<20),
	)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Consumer{
		client: client,
		router: router{
			topic:    cfg.Topic,
			dlqTopic: cfg.DLQTopic,
			policy:   policy,
			now:      time.Now,
		},
		holds:  newHolder(client),
		logger: logger.Named("scan-consumer"),
	}, nil
}

// Consume polls until ctx is cancelled. Records of a partition are handled
// in order, one at a time. A retry that is not due yet holds back only its
// own partition.
func (c *Consumer) Consume(ctx context.Context, h queue.Handler) error {
	group, _ := c.client.GroupMetadata()
	c.logger.Info("starting scan consumer", "consumer_group", group)
	defer c.holds.stop()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.logger.Info("scan consumer stopped")
			return ctx.Err()
		}
		for _, fe := range fetches.Errors() {
			c.logger.Error("kafka fetch error", "topic", fe.Topic, "partition", fe.Partition, "error", fe.Err)
		}

		var stopErr error
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			for _, rec := range p.Records {
				if stopErr != nil || c.holds.held(rec.Topic, rec.Partition) {
					return
				}
				if d := c.router.due(rec); d > 0 {
					c.logger.Debug("holding partition until retry is due",
						"partition", rec.Partition, "offset", rec.Offset, "delay", d)
					c.holds.hold(rec, d)
					return
				}
				stopErr = c.handle(ctx, rec, h)
			}
		})
		if stopErr != nil {
			// Uncommitted records are redelivered to whichever member owns
			// the partition next.
			return stopErr
		}
	}
}

func (c *Consumer) handle(ctx context.Context, rec *kgo.Record, h queue.Handler) error {
	log := c.logger.With("partition", rec.Partition, "offset", rec.Offset, "key", string(rec.Key))

	next, d, err := c.router.route(ctx, rec, h)
	if err != nil {
		return err
	}

	switch d.Action {
	case queue.ActionRetry:
		log.Warn("scan job failed, republishing", "reason", d.Reason, "delay", d.Delay)
	case queue.ActionDeadLetter:
		log.Error("scan job dead-lettered", "reason", d.Reason)
	}

	if next != nil {
		if err := c.produce(ctx, next); err != nil {
			return fmt.Errorf("publish follow-up record: %w", err)
		}
	}

	if err := c.client.CommitRecords(ctx, rec); err != nil {
		log.Warn("failed to commit Kafka offset", "error", err)
	}
	return nil
}

// produce retries until the broker accepts rec or ctx ends, so an offset is
// never committed ahead of its retry or dead letter.
func (c *Consumer) produce(ctx context.Context, rec *kgo.Record) error {
	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		return c.client.ProduceSync(ctx, rec).FirstErr()
	}, b, func(err error, d time.Duration) {
		c.logger.Warn("follow-up publish failed, retrying", "topic", rec.Topic, "error", err, "delay", d)
	})
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}
