package memory

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// collection - записи одного типа, индексированные по ID, с сохранением порядка вставки.
// Все методы с суффиксом Locked требуют, чтобы вызывающий уже держал mu.
type collection[T any] struct {
	mu    sync.RWMutex
	seq   int64
	order []int64
	rows  map[int64]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{rows: make(map[int64]T)}
}

// all возвращает копию всех записей в порядке вставки.
func (c *collection[T]) all() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allLocked()
}

func (c *collection[T]) allLocked() []T {
	result := make([]T, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.rows[id])
	}
	return result
}

// count возвращает число записей без копирования строк.
func (c *collection[T]) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

func (c *collection[T]) byID(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.rows[id]
	return row, ok
}

// insert выдаёт следующий ID и сохраняет запись, построенную build.
// ID монотонно растёт с 1 и не переиспользуется после удаления.
func (c *collection[T]) insert(build func(id int64) T) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(build)
}

func (c *collection[T]) insertLocked(build func(id int64) T) int64 {
	c.seq++
	id := c.seq
	c.rows[id] = build(id)
	c.order = append(c.order, id)
	return id
}

// removeByID физически удаляет запись.
func (c *collection[T]) removeByID(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rows[id]; !ok {
		return false
	}
	delete(c.rows, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// modify выполняет read-modify-write под одной блокировкой записи.
// mutate возвращает false, чтобы отказаться от изменения.
func (c *collection[T]) modify(id int64, mutate func(row *T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, ok := c.rows[id]
	if !ok {
		return false
	}
	if !mutate(&row) {
		return false
	}
	c.rows[id] = row
	return true
}

// Store - in-memory хранилище записей: единственный источник истины для memory-бэкенда.
// Каждая коллекция защищена собственным RWMutex. Когда нужны обе коллекции заказа,
// блокировки берутся в порядке orders -> orderItems.
type Store struct {
	products   *collection[domain.Product]
	customers  *collection[domain.Customer]
	orders     *collection[domain.Order]
	orderItems *collection[domain.OrderItem]
}

// StoreOption настраивает Store при создании.
type StoreOption func(*Store)

// WithSeedData заполняет хранилище демонстрационными товарами и покупателями.
func WithSeedData() StoreOption {
	return func(s *Store) {
		seed(s, time.Now().UTC())
	}
}

// NewStore создаёт изолированное хранилище. Глобального состояния нет:
// каждый вызов возвращает независимый набор коллекций.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		products:   newCollection[domain.Product](),
		customers:  newCollection[domain.Customer](),
		orders:     newCollection[domain.Order](),
		orderItems: newCollection[domain.OrderItem](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counts возвращает число записей по типам (используется health-проверкой).
func (s *Store) Counts() (products, customers, orders, orderItems int) {
	return s.products.count(), s.customers.count(), s.orders.count(), s.orderItems.count()
}

func seed(s *Store, now time.Time) {
	products := []domain.Product{
		{Name: "Laptop", Description: "High-performance laptop", Price: decimal.RequireFromString("999.99"), Category: domain.CategoryElectronics, StockQuantity: 10},
		{Name: "Smartphone", Description: "Latest smartphone", Price: decimal.RequireFromString("699.99"), Category: domain.CategoryElectronics, StockQuantity: 25},
		{Name: "Book", Description: "Programming book", Price: decimal.RequireFromString("39.99"), Category: domain.CategoryBooks, StockQuantity: 50},
	}
	for _, p := range products {
		p := p
		s.products.insert(func(id int64) domain.Product {
			p.ID = id
			p.IsActive = true
			p.CreatedAt = now
			p.ModifiedAt = now
			return p
		})
	}

	customers := []domain.Customer{
		{FirstName: "John", LastName: "Doe", Email: "john.doe@email.com"},
		{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@email.com"},
	}
	for _, c := range customers {
		c := c
		s.customers.insert(func(id int64) domain.Customer {
			c.ID = id
			c.IsActive = true
			c.CreatedAt = now
			c.ModifiedAt = now
			return c
		})
	}
}
