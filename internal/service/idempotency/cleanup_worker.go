// Package idempotency убирает просроченные ключи идемпотентных Create-запросов.
package idempotency

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/metrics"
)

const (
	defaultInterval   = 10 * time.Minute
	defaultBatchSize  = 500
	defaultMaxBatches = 100
)

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupWorker)

func WithLogger(logger *log.Entry) CleanupOption {
	return func(w *CleanupWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithMetrics(m *metrics.CleanupMetrics) CleanupOption {
	return func(w *CleanupWorker) { w.metrics = m }
}

func WithInterval(interval time.Duration) CleanupOption {
	return func(w *CleanupWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithBatchSize(batchSize int) CleanupOption {
	return func(w *CleanupWorker) {
		if batchSize > 0 {
			w.batchSize = batchSize
		}
	}
}

// WithMaxBatches ограничивает число DELETE за один проход; остаток уйдёт в следующий тик.
func WithMaxBatches(n int) CleanupOption {
	return func(w *CleanupWorker) {
		if n > 0 {
			w.maxBatches = n
		}
	}
}

// CleanupWorker раз в interval удаляет ключи с истёкшим TTL пачками по batchSize.
type CleanupWorker struct {
	repo       domain.IdempotencyRepository
	logger     *log.Entry
	metrics    *metrics.CleanupMetrics
	interval   time.Duration
	batchSize  int
	maxBatches int
}

func NewCleanupWorker(repo domain.IdempotencyRepository, options ...CleanupOption) *CleanupWorker {
	w := &CleanupWorker{
		repo:       repo,
		logger:     log.WithFields(log.Fields{"component": "idempotency-cleanup", "layer": "worker"}),
		interval:   defaultInterval,
		batchSize:  defaultBatchSize,
		maxBatches: defaultMaxBatches,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run чистит сразу при старте и затем по тикеру, пока ctx не отменён.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("idempotency cleanup is disabled: no repository")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.cleanup(ctx, time.Now().UTC())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteExpired(ctx, before)
	if errors.Is(err, context.Canceled) {
		return
	}
	w.metrics.Run(deleted, err)

	entry := w.logger.WithField("deleted", deleted)
	switch {
	case err != nil:
		entry.WithError(err).Warn("idempotency cleanup failed")
	case deleted > 0:
		entry.Info("expired idempotency keys removed")
	}
}

// DeleteExpired удаляет ключи с TTL не позже before. Проход заканчивается на неполной
// пачке или после maxBatches пачек.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	total := 0
	for batch := 0; batch < w.maxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.repo.DeleteExpired(before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		w.metrics.Deleted(deleted)

		if deleted < w.batchSize {
			break
		}
	}
	return total, nil
}
