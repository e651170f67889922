package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrProductNotFound возвращается, если активного товара с таким ID нет.
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound возвращается, если активного покупателя нет.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOutboxMessageNotFound - сообщение outbox с таким ID отсутствует.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
	// ErrOutboxPublish - ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки хранилища idempotency-ключей.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
)

// ValidationError сообщает об отклонённом входе. Fields содержит сообщения по полям
// и может быть пустым, если отклонён весь объект.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// NewValidationError создаёт ошибку валидации с опциональной картой полей.
func NewValidationError(message string, fields map[string]string) *ValidationError {
	if fields == nil {
		fields = make(map[string]string)
	}
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsNotFound проверяет, сообщает ли ошибка об отсутствии записи.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
