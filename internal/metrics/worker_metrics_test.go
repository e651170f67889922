package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOutboxMetrics_Backlog(t *testing.T) {
	m := NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())

	m.SetBacklog(3, time.Now().Add(-2*time.Second))

	var metric dto.Metric
	if err := m.pending.Write(&metric); err != nil {
		t.Fatalf("write pending: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 3 {
		t.Fatalf("expected pending=3, got %v", got)
	}
	if err := m.oldestPending.Write(&metric); err != nil {
		t.Fatalf("write oldest: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got < 2 {
		t.Fatalf("expected age >= 2s, got %v", got)
	}

	m.SetBacklog(0, time.Time{})
	if err := m.oldestPending.Write(&metric); err != nil {
		t.Fatalf("write oldest: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 0 {
		t.Fatalf("expected age reset to 0, got %v", got)
	}
}

func TestOutboxMetrics_ReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOutboxMetricsWithRegisterer(reg)
	second := NewOutboxMetricsWithRegisterer(reg)
	if first.pending != second.pending {
		t.Fatal("expected existing gauge to be reused")
	}

	second.PublishAttempt("sent")
	var metric dto.Metric
	if err := first.attempts.WithLabelValues("sent").Write(&metric); err != nil {
		t.Fatalf("write attempts: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 attempt, got %v", got)
	}
}

func TestCleanupMetrics(t *testing.T) {
	m := NewCleanupMetricsWithRegisterer(prometheus.NewRegistry())

	m.Deleted(4)
	m.Deleted(0)
	m.Run(4, nil)
	m.Run(0, errors.New("boom"))

	var metric dto.Metric
	if err := m.deleted.Write(&metric); err != nil {
		t.Fatalf("write deleted: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 4 {
		t.Fatalf("expected 4 deleted, got %v", got)
	}
	if err := m.runs.WithLabelValues("error").Write(&metric); err != nil {
		t.Fatalf("write runs: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 failed run, got %v", got)
	}
	if err := m.lastDeleted.Write(&metric); err != nil {
		t.Fatalf("write last deleted: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 4 {
		t.Fatalf("failed run must not reset last deleted, got %v", got)
	}
}

func TestWorkerMetrics_NilSafe(t *testing.T) {
	var outbox *OutboxMetrics
	outbox.PublishAttempt("sent")
	outbox.SetBacklog(1, time.Now())

	var cleanup *CleanupMetrics
	cleanup.Run(1, nil)
	cleanup.Deleted(1)
}
