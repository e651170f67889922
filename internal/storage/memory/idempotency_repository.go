package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

type idempotencyRepositoryInMemory struct {
	mu      sync.RWMutex
	records map[string]domain.IdempotencyRecord
}

// NewIdempotencyRepository хранит ключи Create-запросов gRPC в памяти процесса.
func NewIdempotencyRepository() domain.IdempotencyRepository {
	return &idempotencyRepositoryInMemory{records: make(map[string]domain.IdempotencyRecord)}
}

// CreateProcessing резервирует ключ. Живой ключ с тем же хэшем возвращается вместе с
// ErrIdempotencyKeyAlreadyExists, с другим хэшем - с ErrIdempotencyHashMismatch.
// Ключ с истёкшим TTL, который ещё не убрал cleanup worker, занимается заново.
func (r *idempotencyRepositoryInMemory) CreateProcessing(key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	now := time.Now().UTC()
	record, err := domain.NewIdempotencyRecord(key, requestHash, ttlAt, now)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[record.Key]; ok && !existing.ExpiredAt(now) {
		if existing.RequestHash != record.RequestHash {
			return copyRecord(existing), domain.ErrIdempotencyHashMismatch
		}
		return copyRecord(existing), domain.ErrIdempotencyKeyAlreadyExists
	}

	r.records[record.Key] = record
	return record, nil
}

func (r *idempotencyRepositoryInMemory) Get(key string) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[key]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return copyRecord(record), nil
}

func (r *idempotencyRepositoryInMemory) MarkDone(key string, responseBody []byte, statusCode int) error {
	return r.finish(key, domain.IdempotencyStatusDone, responseBody, statusCode)
}

func (r *idempotencyRepositoryInMemory) MarkFailed(key string, responseBody []byte, statusCode int) error {
	return r.finish(key, domain.IdempotencyStatusFailed, responseBody, statusCode)
}

// DeleteExpired удаляет ключи с TTL не позже before, начиная с самых старых.
// limit <= 0 снимает ограничение.
func (r *idempotencyRepositoryInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]domain.IdempotencyRecord, 0)
	for _, record := range r.records {
		if record.ExpiredAt(before) {
			expired = append(expired, record)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].TTLAt.Before(expired[j].TTLAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	for _, record := range expired {
		delete(r.records, record.Key)
	}
	return len(expired), nil
}

func (r *idempotencyRepositoryInMemory) finish(key string, status domain.IdempotencyStatus, responseBody []byte, statusCode int) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[key]
	if !ok {
		return domain.ErrIdempotencyKeyNotFound
	}
	record.Status = status
	record.ResponseBody = append([]byte(nil), responseBody...)
	record.StatusCode = statusCode
	record.UpdatedAt = time.Now().UTC()
	r.records[key] = record
	return nil
}

func copyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.ResponseBody = append([]byte(nil), src.ResponseBody...)
	return dst
}

var _ domain.IdempotencyRepository = (*idempotencyRepositoryInMemory)(nil)
