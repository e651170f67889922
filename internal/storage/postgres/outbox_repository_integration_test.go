package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

func TestOutboxRepository_PostgresKeepsEnqueueOrder(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	events := []domain.OutboxMessage{
		{AggregateType: domain.AggregateProduct, AggregateID: "1", EventType: domain.EventProductCreated, Payload: []byte(`{"productId":1}`)},
		{ID: "fixed-id", AggregateType: domain.AggregateOrder, AggregateID: "7", EventType: domain.EventOrderStatusChanged, Payload: []byte(`{"orderId":7,"status":"Processing"}`)},
		{AggregateType: domain.AggregateCustomer, AggregateID: "3", EventType: domain.EventCustomerDeleted},
	}
	var ids []string
	for _, e := range events {
		stored, err := repo.Enqueue(e)
		require.NoError(t, err)
		require.NotEmpty(t, stored.ID)
		ids = append(ids, stored.ID)
	}
	require.Equal(t, "fixed-id", ids[1])

	pending, err := repo.PullPending(0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, msg := range pending {
		if msg.ID != ids[i] {
			t.Fatalf("pending[%d]: expected %s, got %s", i, ids[i], msg.ID)
		}
	}
	require.JSONEq(t, `{"orderId":7,"status":"Processing"}`, string(pending[1].Payload))
	require.Nil(t, pending[2].Payload, "event without payload must come back without payload")

	limited, err := repo.PullPending(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 3, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())

	require.NoError(t, repo.MarkSent(ids[0]))
	require.NoError(t, repo.MarkFailed(ids[1]))

	rest, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, domain.EventCustomerDeleted, rest[0].EventType)

	var processed int
	require.NoError(t, store.DB().QueryRow(
		`SELECT count(*) FROM outbox_messages WHERE processed_at IS NOT NULL`).Scan(&processed))
	require.Equal(t, 2, processed)
}

func TestOutboxRepository_PostgresDuplicateID(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	msg := domain.OutboxMessage{ID: "dup", AggregateType: domain.AggregateOrder, AggregateID: "1", EventType: domain.EventOrderCreated}
	_, err := repo.Enqueue(msg)
	require.NoError(t, err)

	if _, err := repo.Enqueue(msg); err == nil {
		t.Fatal("expected error for duplicate outbox id")
	}
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxMessageNotFound) {
		t.Fatalf("expected ErrOutboxMessageNotFound from MarkSent, got %v", err)
	}
	if err := repo.MarkFailed("missing"); !errors.Is(err, domain.ErrOutboxMessageNotFound) {
		t.Fatalf("expected ErrOutboxMessageNotFound from MarkFailed, got %v", err)
	}
}
