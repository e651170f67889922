package domain

import "time"

// Customer - покупатель.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	// Email используется как ключ поиска без учёта регистра.
	// Уникальность при записи не проверяется.
	Email      string
	Phone      string
	Address    string
	City       string
	State      string
	ZipCode    string
	Country    string
	IsActive   bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}
