package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"

	defaultOutboxPullLimit = 100
)

type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository хранит доменные события каталога в outbox_messages.
// Порядок выдачи совпадает с порядком Enqueue (колонка seq).
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB()}
}

func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	// JSONB не принимает пустую строку, отсутствие payload храним как NULL.
	var payload any
	if len(msg.Payload) > 0 {
		payload = string(msg.Payload)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, payload, outboxStatusPending)
	switch {
	case isUniqueViolation(err):
		return domain.OutboxMessage{}, fmt.Errorf("%s event %s already enqueued: %w", msg.AggregateType, msg.ID, err)
	case err != nil:
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s event: %w", msg.EventType, err)
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, COALESCE(payload::text, '')
		FROM outbox_messages
		WHERE status = $1
		ORDER BY seq
		LIMIT $2
	`, outboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending events: %w", err)
	}
	defer rows.Close()

	var result []domain.OutboxMessage
	for rows.Next() {
		var (
			msg     domain.OutboxMessage
			payload string
		)
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if payload != "" {
			msg.Payload = []byte(payload)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return result, nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*), min(created_at) FROM outbox_messages WHERE status = $1
	`, outboxStatusPending).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox backlog stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

// MarkSent и MarkFailed снимают событие с очереди; processed_at фиксирует момент.
func (r *outboxRepository) MarkSent(id string) error {
	return r.finish(id, outboxStatusSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.finish(id, outboxStatusFailed)
}

func (r *outboxRepository) finish(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ok, err := execAffected(ctx, r.db, "mark outbox event "+status, `
		UPDATE outbox_messages SET status = $2, processed_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOutboxMessageNotFound
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
