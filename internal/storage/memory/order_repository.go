package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// orderRepositoryInMemory - OrderRepository поверх общего Store.
// Заказы и позиции лежат в разных коллекциях и склеиваются при чтении.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает репозиторий заказов поверх переданного хранилища.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

func (r *orderRepositoryInMemory) GetAll() ([]domain.Order, error) {
	return r.collect(func(domain.Order) bool { return true }), nil
}

func (r *orderRepositoryInMemory) GetByID(id int64) (domain.Order, error) {
	orders, items := r.store.orders, r.store.orderItems
	orders.mu.RLock()
	defer orders.mu.RUnlock()

	order, ok := orders.rows[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	items.mu.RLock()
	defer items.mu.RUnlock()
	order.Items = itemsOfLocked(items, id)
	return order, nil
}

func (r *orderRepositoryInMemory) GetByCustomerID(customerID int64) ([]domain.Order, error) {
	result := r.collect(func(o domain.Order) bool { return o.CustomerID == customerID })
	sortNewestFirst(result)
	return result, nil
}

func (r *orderRepositoryInMemory) GetByStatus(status string) ([]domain.Order, error) {
	result := r.collect(func(o domain.Order) bool { return strings.EqualFold(o.Status, status) })
	sortNewestFirst(result)
	return result, nil
}

// Create сохраняет заказ и его позиции под блокировками обеих коллекций,
// поэтому читатель никогда не увидит заказ без позиций.
func (r *orderRepositoryInMemory) Create(order domain.Order) (int64, error) {
	orders, items := r.store.orders, r.store.orderItems
	orders.mu.Lock()
	defer orders.mu.Unlock()
	items.mu.Lock()
	defer items.mu.Unlock()

	now := time.Now().UTC()
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	lines := order.Items

	id := orders.insertLocked(func(id int64) domain.Order {
		order.ID = id
		order.OrderDate = now
		order.CreatedAt = now
		order.ModifiedAt = now
		order.Items = nil
		return order
	})

	for _, line := range lines {
		line := line
		items.insertLocked(func(itemID int64) domain.OrderItem {
			line.ID = itemID
			line.OrderID = id
			line.LineTotal = line.ComputeLineTotal()
			return line
		})
	}

	return id, nil
}

// Update перезаписывает статус, сумму и адреса. Позиции и покупатель не меняются.
func (r *orderRepositoryInMemory) Update(order domain.Order) (bool, error) {
	now := time.Now().UTC()
	return r.store.orders.modify(order.ID, func(existing *domain.Order) bool {
		existing.Status = order.Status
		existing.TotalAmount = order.TotalAmount
		existing.ShippingAddress = order.ShippingAddress
		existing.BillingAddress = order.BillingAddress
		existing.ModifiedAt = now
		return true
	}), nil
}

func (r *orderRepositoryInMemory) UpdateStatus(id int64, status string) (bool, error) {
	now := time.Now().UTC()
	return r.store.orders.modify(id, func(existing *domain.Order) bool {
		existing.Status = status
		existing.ModifiedAt = now
		return true
	}), nil
}

func (r *orderRepositoryInMemory) Cancel(id int64) (bool, error) {
	return r.UpdateStatus(id, domain.OrderStatusCancelled)
}

// collect отбирает заказы в порядке хранилища и прикрепляет к ним позиции.
func (r *orderRepositoryInMemory) collect(match func(domain.Order) bool) []domain.Order {
	orders, items := r.store.orders, r.store.orderItems
	orders.mu.RLock()
	defer orders.mu.RUnlock()
	items.mu.RLock()
	defer items.mu.RUnlock()

	result := make([]domain.Order, 0, len(orders.order))
	for _, order := range orders.allLocked() {
		if !match(order) {
			continue
		}
		order.Items = itemsOfLocked(items, order.ID)
		result = append(result, order)
	}
	return result
}

// itemsOfLocked возвращает позиции заказа в порядке вставки. Требует RLock на items.
func itemsOfLocked(items *collection[domain.OrderItem], orderID int64) []domain.OrderItem {
	var result []domain.OrderItem
	for _, id := range items.order {
		if item := items.rows[id]; item.OrderID == orderID {
			result = append(result, item)
		}
	}
	return result
}

func sortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return orders[i].ID > orders[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
