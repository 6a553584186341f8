package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/repository"
)

const (
	DefaultTopic     = "orders-outbox"
	defaultBatchSize = 100
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// OutboxPoller relays order events from the outbox table to Kafka. An event
// is marked processed only after Kafka accepted it, so delivery is
// at-least-once.
type OutboxPoller struct {
	repo      repository.OutboxRepository
	writer    MessageWriter
	tick      time.Duration
	batchSize int
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, cfg Config, log *slog.Logger, m *metrics.Metrics) *OutboxPoller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &OutboxPoller{
		repo:      repo,
		writer:    writer,
		tick:      cfg.PollInterval,
		batchSize: cfg.BatchSize,
		metrics:   m,
		log:       log,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch and returns how many events
// were marked processed.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return 0
	}

	processed := 0
	for _, event := range events {
		errPublish := p.publishToKafka(ctx, event)
		p.metrics.OutboxResult(errPublish)
		if errPublish != nil {
			// keep order per aggregate: later events wait for the next tick
			p.log.ErrorContext(ctx, "failed to publish event", "event_id", event.ID, "error", errPublish)
			return processed
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.log.ErrorContext(ctx, "failed to mark event as processed", "event_id", event.ID, "error", errMark)
			return processed
		}
		processed++
	}
	return processed
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id for ordering
		Value: event.Payload,             // Already JSON from database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}
