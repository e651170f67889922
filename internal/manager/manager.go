// Package manager содержит бизнес-слой каталога: валидацию DTO, маппинг в доменные
// записи, вызовы репозиториев, расчёт суммы заказа, логирование, метрики и
// постановку доменных событий в outbox.
package manager

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/metrics"
)

// Option настраивает менеджер.
type Option func(*base)

// WithLogger задаёт логгер менеджера.
func WithLogger(logger *log.Entry) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithOutbox включает запись доменных событий после успешных изменений.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(b *base) {
		b.outbox = outbox
	}
}

// WithMetrics подключает prometheus-метрики операций.
func WithMetrics(m *metrics.ManagerMetrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

// WithValidator подменяет валидатор по умолчанию.
func WithValidator(v *Validator) Option {
	return func(b *base) {
		if v != nil {
			b.validator = v
		}
	}
}

// base - общее окружение менеджеров; состояния сущностей не хранит.
type base struct {
	entity    string
	logger    *log.Entry
	outbox    domain.OutboxRepository
	metrics   *metrics.ManagerMetrics
	validator *Validator
}

// newBase собирает окружение; entity - тип агрегата (domain.AggregateProduct, ...),
// он же метка entity в метриках.
func newBase(entity string, opts []Option) base {
	b := base{
		entity: entity,
		logger: log.WithFields(log.Fields{"component": entity + "-manager", "layer": "manager"}),
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.validator == nil {
		b.validator = MustNewValidator()
	}
	return b
}

// observe пишет метрику по исходу операции. found=false без ошибки считается
// not_found: так учитываются пустые чтения и мутации, вернувшие false.
func (b *base) observe(operation string, started time.Time, err error, found bool) {
	result := metrics.ResultSuccess
	switch {
	case err == nil && !found:
		result = metrics.ResultNotFound
	case err == nil:
	case domain.IsValidation(err):
		result = metrics.ResultInvalid
	default:
		result = metrics.ResultError
	}
	b.metrics.ObserveOperation(b.entity, operation, result, time.Since(started))
}

// emit ставит событие в outbox. Ошибка только логируется: запись уже сохранена,
// общей транзакции между хранилищем и outbox нет.
func (b *base) emit(eventType string, aggregateID int64, payload any) {
	if b.outbox == nil {
		return
	}

	fields := log.Fields{"event_type": eventType, "aggregate_id": aggregateID}
	body, err := json.Marshal(payload)
	if err != nil {
		b.metrics.RecordEvent(eventType, err)
		b.logger.WithError(err).WithFields(fields).Error("failed to encode domain event")
		return
	}

	_, err = b.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: b.entity,
		AggregateID:   strconv.FormatInt(aggregateID, 10),
		EventType:     eventType,
		Payload:       body,
	})
	b.metrics.RecordEvent(eventType, err)
	if err != nil {
		b.logger.WithError(err).WithFields(fields).Error("failed to enqueue domain event")
	}
}

// validateID проверяет идентификатор для операций обновления.
func validateID(field string, id int64) error {
	if id <= 0 {
		return domain.NewValidationError(msgValidationFailed, map[string]string{field: "must be greater than 0"})
	}
	return nil
}

// logRejected пишет Warn об отклонённом входе вместе с картой полей.
func (b *base) logRejected(entry *log.Entry, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		entry = entry.WithField("fields", verr.Fields)
	}
	entry.WithError(err).Warn("rejected invalid input")
}
