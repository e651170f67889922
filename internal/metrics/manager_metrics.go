package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения метки result.
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// ManagerMetrics содержит метрики операций менеджеров каталога.
type ManagerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewManagerMetrics создаёт метрики в DefaultRegisterer.
func NewManagerMetrics() *ManagerMetrics {
	return NewManagerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewManagerMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewManagerMetricsWithRegisterer(registerer prometheus.Registerer) *ManagerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ManagerMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ecomstore_manager_operations_total",
			Help: "Total number of manager operations by entity, operation and result",
		}, []string{"entity", "operation", "result"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ecomstore_manager_operation_duration_seconds",
			Help:    "Duration of manager operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"entity", "operation"}),
		events: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ecomstore_domain_events_enqueued_total",
			Help: "Total number of domain events written to the outbox",
		}, []string{"event_type", "result"}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ObserveOperation фиксирует исход и длительность одной операции менеджера.
// Безопасен для nil-получателя, чтобы менеджеры работали без метрик.
func (m *ManagerMetrics) ObserveOperation(entity, operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(entity, operation, result).Inc()
	m.duration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}

// RecordEvent считает попытку записи доменного события в outbox.
func (m *ManagerMetrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.events.WithLabelValues(eventType, result).Inc()
}
