package ingest

import (
	"context"
	"errors"

	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// DropMalformed labels Kafka records whose value is not valid JSON.
const DropMalformed = "malformed"

// ConsumerConfig selects the observation feed.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// fetchClient is the subset of *kgo.Client the consumer uses.
type fetchClient interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	Close()
}

// Consumer reads observation records from Kafka and hands each poll to the
// Processor. Offsets are committed only after the poll was processed, so a
// crash replays at most one poll.
type Consumer struct {
	client    fetchClient
	processor *Processor
	metrics   *metrics.LineageMetrics
	log       *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, processor *Processor, m *metrics.LineageMetrics) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.ClientID("lineage-engine"),
	)
	if err != nil {
		return nil, err
	}
	return newConsumer(client, processor, m), nil
}

func newConsumer(client fetchClient, processor *Processor, m *metrics.LineageMetrics) *Consumer {
	return &Consumer{client: client, processor: processor, metrics: m, log: logger.Named("kafka")}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("observation consumer started")
	defer c.log.Info("observation consumer stopped")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.log.Error("fetch failed", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}

		var batch []Observation
		for _, rec := range records {
			obs, err := DecodeObservations(rec.Value)
			if err != nil {
				c.metrics.Dropped(DropMalformed)
				c.log.Warn("skipping malformed observation record",
					zap.String("topic", rec.Topic),
					zap.Int32("partition", rec.Partition),
					zap.Int64("offset", rec.Offset),
					zap.Error(err),
				)
				continue
			}
			batch = append(batch, obs...)
		}
		if len(batch) > 0 {
			c.processor.Process(ctx, batch)
		}

		if err := c.client.CommitRecords(ctx, records...); err != nil {
			c.log.Error("offset commit failed", zap.Int("records", len(records)), zap.Error(err))
		}
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
