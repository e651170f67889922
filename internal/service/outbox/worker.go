// Package outbox доставляет доменные события каталога из outbox в брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/metrics"
)

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	maxRetryDelay         = 5 * time.Second
)

// Значения метки result у ecomstore_outbox_publish_attempts_total.
const (
	attemptSent       = "sent"
	attemptRetryError = "retry_error"
	attemptFailed     = "failed"
	attemptDLQFailed  = "dlq_failed"
)

// Option настраивает Worker. Нулевые и отрицательные значения оставляют значение по умолчанию.
type Option func(*Worker)

func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics включает метрики доставки и размера backlog.
func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithDLQPublisher задаёт, куда уходит событие после исчерпания попыток.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) { w.dlq = publisher }
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func WithBatchSize(batchSize int) Option {
	return func(w *Worker) {
		if batchSize > 0 {
			w.batchSize = batchSize
		}
	}
}

func WithMaxAttempts(maxAttempts int) Option {
	return func(w *Worker) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
	}
}

// WithRetryBaseDelay задаёт первую паузу между попытками; дальше она удваивается
// до maxRetryDelay. 0 отключает паузы.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) {
		if delay >= 0 {
			w.retryBaseDelay = delay
		}
	}
}

// Worker публикует события из outbox в порядке их записи.
// Успешно опубликованное событие помечается sent. Событие, не прошедшее за
// maxAttempts попыток, помечается failed, а его копия уходит в DLQ.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	logger    *log.Entry
	metrics   *metrics.OutboxMetrics

	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		logger:         log.WithFields(log.Fields{"component": "outbox-worker", "layer": "worker"}),
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run опрашивает outbox каждые pollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce забирает одну пачку pending-событий и пытается их доставить.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	defer w.refreshBacklogMetrics()

	events, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending domain events")
		return
	}

	delivered := 0
	for _, event := range events {
		if ctx.Err() != nil {
			return
		}
		if w.deliver(ctx, event) {
			delivered++
		}
	}
	if delivered > 0 {
		w.logger.WithFields(log.Fields{"delivered": delivered, "batch": len(events)}).Debug("domain events delivered")
	}
}

// deliver публикует одно событие и фиксирует итог в outbox.
func (w *Worker) deliver(ctx context.Context, event domain.OutboxMessage) bool {
	entry := w.logger.WithFields(log.Fields{
		"outbox_id":      event.ID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
	})

	publishErr := w.publishWithRetry(ctx, event)
	if publishErr == nil {
		if err := w.repo.MarkSent(event.ID); err != nil {
			entry.WithError(err).Warn("failed to mark domain event as sent")
			return false
		}
		return true
	}
	if ctx.Err() != nil {
		// Событие остаётся pending и будет отправлено после рестарта.
		return false
	}

	entry.WithError(publishErr).Error("domain event publish failed after retries")
	w.metrics.PublishAttempt(attemptFailed)

	if err := w.publishToDLQ(event, publishErr); err != nil {
		entry.WithError(err).Warn("failed to publish domain event to DLQ")
		w.metrics.PublishAttempt(attemptDLQFailed)
	}
	if err := w.repo.MarkFailed(event.ID); err != nil {
		entry.WithError(err).Warn("failed to mark domain event as failed")
	}
	return false
}

func (w *Worker) publishWithRetry(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if attempt > 1 {
			if delay := w.retryBackoff(attempt - 1); delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}

		if lastErr = w.publisher.Publish(event); lastErr == nil {
			w.metrics.PublishAttempt(attemptSent)
			return nil
		}
		w.metrics.PublishAttempt(attemptRetryError)
	}
	return fmt.Errorf("%w after %d attempts: %w", domain.ErrOutboxPublish, w.maxAttempts, lastErr)
}

// retryBackoff - пауза перед попыткой attempt+1: base, 2*base, 4*base ... не больше maxRetryDelay.
func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 || attempt < 1 {
		return 0
	}
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return min(delay, maxRetryDelay)
}

func (w *Worker) refreshBacklogMetrics() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}
	w.metrics.SetBacklog(stats.PendingCount, stats.OldestPendingAt)
}

// deadLetter - payload события в DLQ: исходное событие плюс причина отказа.
type deadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

func (w *Worker) publishToDLQ(event domain.OutboxMessage, publishErr error) error {
	if w.dlq == nil {
		return nil
	}

	letter := deadLetter{
		OutboxID:       event.ID,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		EventType:      event.EventType,
		PublishError:   publishErr.Error(),
		DLQPublishedAt: time.Now().UTC(),
	}
	if json.Valid(event.Payload) {
		letter.Payload = json.RawMessage(event.Payload)
	}
	payload, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	dlqEvent := event
	dlqEvent.Payload = payload
	if err := w.dlq.Publish(dlqEvent); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
