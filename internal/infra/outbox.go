package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/guard"
	"github.com/atttc/ladder/internal/repository"
)

// OutboxPoller relays event_outbox rows to Kafka and marks them published.
type OutboxPoller struct {
	db        repository.DBTX
	outbox    repository.OutboxRepository
	producer  Publisher
	breaker   *guard.CircuitBreaker
	metrics   *LadderMetrics
	logger    *slog.Logger
	prefix    string
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(db repository.DBTX, outbox repository.OutboxRepository, producer Publisher, metrics *LadderMetrics, cfg *Config, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		db:        db,
		outbox:    outbox,
		producer:  producer,
		breaker:   guard.NewCircuitBreaker(5, 30*time.Second),
		metrics:   metrics,
		logger:    logger,
		prefix:    cfg.KafkaTopicPrefix,
		interval:  cfg.OutboxPollInterval,
		batchSize: cfg.OutboxBatchSize,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) error {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return nil
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				p.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// Topic maps an event onto <prefix>.<aggregate>.<action>.
func (p *OutboxPoller) Topic(evt domain.OutboxDraft) string {
	action := string(evt.EventType)
	if i := strings.LastIndex(action, "."); i >= 0 {
		action = action[i+1:]
	}
	return p.prefix + "." + string(evt.AggregateType) + "." + action
}

// Poll publishes one batch and returns how many events were marked published.
// Events stay unpublished while their topic's circuit is open.
func (p *OutboxPoller) Poll(ctx context.Context) (int, error) {
	events, err := p.outbox.FetchUnpublished(ctx, p.db, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(events))
	for _, e := range events {
		topic := p.Topic(e)
		if res := p.breaker.Check(ctx, topic); !res.Allowed {
			p.logger.Debug("outbox publish skipped", "event_id", e.EventID, "reason", res.Reason)
			p.observe("skipped")
			continue
		}

		msg, err := json.Marshal(map[string]interface{}{
			"event_id":       e.EventID,
			"aggregate_type": e.AggregateType,
			"aggregate_id":   e.AggregateID,
			"event_type":     e.EventType,
			"payload":        e.Payload,
			"occurred_at":    e.OccurredAt,
		})
		if err != nil {
			return len(published), fmt.Errorf("encode event %s: %w", e.EventID, err)
		}

		if err := p.producer.Publish(ctx, topic, []byte(e.PartitionKey), msg); err != nil {
			p.breaker.RecordFailure(topic)
			p.observe("failed")
			p.logger.Error("kafka publish failed", "event_id", e.EventID, "topic", topic, "error", err)
			continue
		}
		p.breaker.RecordSuccess(topic)
		p.observe("published")
		published = append(published, e.ID)
	}

	if err := p.outbox.MarkPublished(ctx, p.db, published); err != nil {
		return 0, err
	}
	p.logger.Debug("outbox poll complete", "published", len(published), "fetched", len(events))
	return len(published), nil
}

func (p *OutboxPoller) observe(result string) {
	if p.metrics != nil {
		p.metrics.Published.WithLabelValues(result).Inc()
	}
}
