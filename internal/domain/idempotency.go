package domain

import (
	"strings"
	"time"
)

// DefaultIdempotencyTTL - сколько хранится ответ на Create-запрос с idempotency-key.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStatus - стадия обработки Create-запроса с ключом идемпотентности.
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusDone       IdempotencyStatus = "done"
	IdempotencyStatusFailed     IdempotencyStatus = "failed"
)

// Valid отсекает значения, которых нет в CHECK-ограничении таблицы idempotency_keys.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// Finished сообщает, что ответ сохранён и повтор запроса можно отдать из записи.
func (s IdempotencyStatus) Finished() bool {
	return s == IdempotencyStatusDone || s == IdempotencyStatusFailed
}

// IdempotencyRecord - сохранённый результат CreateProduct/CreateCustomer/CreateOrder.
// ResponseBody содержит JSON ответа (CreateResponse) или описание gRPC-ошибки.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	StatusCode   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpiredAt сообщает, что к моменту now запись подлежит очистке.
func (r IdempotencyRecord) ExpiredAt(now time.Time) bool {
	return !r.TTLAt.After(now)
}

// NewIdempotencyRecord собирает запись в статусе processing. Пустой ttlAt
// заменяется на now + DefaultIdempotencyTTL.
func NewIdempotencyRecord(key, requestHash string, ttlAt, now time.Time) (IdempotencyRecord, error) {
	key, requestHash = strings.TrimSpace(key), strings.TrimSpace(requestHash)
	switch {
	case key == "":
		return IdempotencyRecord{}, ErrIdempotencyKeyRequired
	case requestHash == "":
		return IdempotencyRecord{}, ErrIdempotencyRequestHashRequired
	}
	if ttlAt.IsZero() {
		ttlAt = now.Add(DefaultIdempotencyTTL)
	}
	return IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      IdempotencyStatusProcessing,
		TTLAt:       ttlAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
