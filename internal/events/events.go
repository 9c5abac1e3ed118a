// Package events publishes training snapshots to Kafka for downstream
// consumers (notifications, plan adjustment).
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cyclecoach/internal/config"
	"cyclecoach/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// SnapshotEventType labels snapshot messages
const SnapshotEventType = "training.snapshot"

// SnapshotEvent is emitted after each fitness snapshot
type SnapshotEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	FTP        int       `json:"ftp"`
	FTPSource  string    `json:"ftp_source"`
	TSS        int       `json:"tss"`
	CTL        float64   `json:"ctl"`
	ATL        float64   `json:"atl"`
	TSB        float64   `json:"tsb"`
	Tier       string    `json:"tier"`
}

// Publisher sends snapshot events
type Publisher interface {
	PublishSnapshot(ctx context.Context, e SnapshotEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes snapshot events to a single topic, keyed by user so
// one rider's snapshots stay ordered within a partition.
type KafkaPublisher struct {
	mu      sync.Mutex
	writer  messageWriter
	brokers []string
	topic   string
	metrics metrics.Recorder
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher. The writer is created on first use.
func NewKafkaPublisher(cfg config.EventsConfig, m metrics.Recorder, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		brokers: cfg.Brokers,
		topic:   cfg.Topic,
		metrics: m,
		logger:  logger,
	}
}

func (p *KafkaPublisher) writerForTopic() messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        p.topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
		}
	}
	return p.writer
}

// PublishSnapshot fills in the event ID, type and timestamp when unset and
// writes the event synchronously.
func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, e SnapshotEvent) error {
	msg, err := newMessage(e)
	if err != nil {
		p.metrics.IncEventsPublished("error")
		return err
	}

	if err := p.writerForTopic().WriteMessages(ctx, msg); err != nil {
		p.metrics.IncEventsPublished("error")
		return fmt.Errorf("publish snapshot: %w", err)
	}

	p.metrics.IncEventsPublished("ok")
	p.logger.Debug().Str("user_id", e.UserID).Str("topic", p.topic).Msg("snapshot published")
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}

func newMessage(e SnapshotEvent) (kafka.Message, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Type == "" {
		e.Type = SnapshotEventType
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal snapshot event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID)},
		},
	}, nil
}

// Noop drops events
type Noop struct{}

func (Noop) PublishSnapshot(context.Context, SnapshotEvent) error { return nil }
func (Noop) Close() error                                       { return nil }

// New returns a KafkaPublisher when brokers are configured, otherwise Noop
func New(cfg config.EventsConfig, m metrics.Recorder, logger zerolog.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		return Noop{}
	}
	logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("snapshot events enabled")
	return NewKafkaPublisher(cfg, m, logger)
}
