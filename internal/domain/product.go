package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Общеизвестные категории каталога. Категория остаётся свободной строкой,
// константы лишь фиксируют значения, которыми пользуются клиенты.
const (
	CategoryElectronics   = "Electronics"
	CategoryClothing      = "Clothing"
	CategoryBooks         = "Books"
	CategoryHomeAndGarden = "Home & Garden"
	CategorySports        = "Sports"
	CategoryToys          = "Toys"
	CategoryHealth        = "Health"
	CategoryAutomotive    = "Automotive"
)

// Product - товар каталога.
type Product struct {
	ID          int64
	Name        string
	Description string
	// Price - цена за единицу, неотрицательная.
	Price    decimal.Decimal
	Category string
	// StockQuantity - остаток на складе. Через UpdateStock может уйти в минус.
	StockQuantity int
	ImageURL      string
	CreatedAt     time.Time
	ModifiedAt    time.Time
	// IsActive=false означает мягкое удаление: товар исключается из всех выборок.
	IsActive bool
}
