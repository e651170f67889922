package manager

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	opGetAllOrders          = "GetAllOrders"
	opGetOrderByID          = "GetOrderByID"
	opGetOrdersByCustomerID = "GetOrdersByCustomerID"
	opGetOrdersByStatus     = "GetOrdersByStatus"
	opCreateOrder           = "CreateOrder"
	opUpdateOrder           = "UpdateOrder"
	opUpdateOrderStatus     = "UpdateOrderStatus"
	opCancelOrder           = "CancelOrder"
	opCalculateOrderTotal   = "CalculateOrderTotal"
)

// OrderManager - бизнес-операции над заказами.
type OrderManager interface {
	GetAllOrders() ([]OrderDTO, error)
	GetOrderByID(orderID int64) (*OrderDTO, error)
	GetOrdersByCustomerID(customerID int64) ([]OrderDTO, error)
	GetOrdersByStatus(status string) ([]OrderDTO, error)
	// CreateOrder сохраняет заказ как есть: TotalAmount не пересчитывается,
	// существование покупателя и товаров не проверяется.
	CreateOrder(order *OrderDTO) (int64, error)
	UpdateOrder(order *OrderDTO) (bool, error)
	UpdateOrderStatus(orderID int64, status string) (bool, error)
	CancelOrder(orderID int64) (bool, error)
	// CalculateOrderTotal - сумма quantity * unitPrice по позициям. Хранилище не трогает.
	CalculateOrderTotal(items []OrderItemDTO) decimal.Decimal
}

type orderManager struct {
	base
	repo domain.OrderRepository
}

// NewOrderManager создаёт менеджер заказов поверх репозитория.
func NewOrderManager(repo domain.OrderRepository, opts ...Option) OrderManager {
	return &orderManager{base: newBase(domain.AggregateOrder, opts), repo: repo}
}

func (m *orderManager) GetAllOrders() (result []OrderDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetAllOrders, started, err, true) }()

	m.logger.Info("getting all orders")
	orders, err := m.repo.GetAll()
	if err != nil {
		m.logger.WithError(err).Error("failed to get orders")
		return nil, fmt.Errorf("get all orders: %w", err)
	}
	return toOrderDTOs(orders), nil
}

func (m *orderManager) GetOrderByID(orderID int64) (result *OrderDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetOrderByID, started, err, result != nil) }()

	entry := m.logger.WithField("order_id", orderID)
	entry.Info("getting order by id")

	order, err := m.repo.GetByID(orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		entry.WithError(err).Error("failed to get order")
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (m *orderManager) GetOrdersByCustomerID(customerID int64) (result []OrderDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetOrdersByCustomerID, started, err, true) }()

	entry := m.logger.WithField("customer_id", customerID)
	entry.Info("getting orders by customer")

	orders, err := m.repo.GetByCustomerID(customerID)
	if err != nil {
		entry.WithError(err).Error("failed to get orders by customer")
		return nil, fmt.Errorf("get orders of customer %d: %w", customerID, err)
	}
	return toOrderDTOs(orders), nil
}

func (m *orderManager) GetOrdersByStatus(status string) (result []OrderDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetOrdersByStatus, started, err, true) }()

	entry := m.logger.WithField("status", status)
	entry.Info("getting orders by status")

	orders, err := m.repo.GetByStatus(status)
	if err != nil {
		entry.WithError(err).Error("failed to get orders by status")
		return nil, fmt.Errorf("get orders by status %q: %w", status, err)
	}
	return toOrderDTOs(orders), nil
}

func (m *orderManager) CreateOrder(order *OrderDTO) (id int64, err error) {
	started := time.Now()
	defer func() { m.observe(opCreateOrder, started, err, true) }()

	entry := m.logger
	if order != nil {
		entry = entry.WithFields(log.Fields{"customer_id": order.CustomerID, "items": len(order.OrderItems)})
	}
	entry.Info("creating order")

	if err := m.validator.Validate(order); err != nil {
		m.logRejected(entry, err)
		return 0, err
	}

	id, err = m.repo.Create(fromOrderDTO(*order))
	if err != nil {
		entry.WithError(err).Error("failed to create order")
		return 0, fmt.Errorf("create order: %w", err)
	}

	if stored, getErr := m.repo.GetByID(id); getErr == nil {
		m.emit(domain.EventOrderCreated, id, toOrderDTO(stored))
	} else {
		entry.WithError(getErr).Warn("failed to reload created order for event")
	}
	entry.WithField("order_id", id).Info("order created")
	return id, nil
}

func (m *orderManager) UpdateOrder(order *OrderDTO) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opUpdateOrder, started, err, ok) }()

	entry := m.logger
	if order != nil {
		entry = entry.WithField("order_id", order.OrderID)
	}
	entry.Info("updating order")

	if err := m.validator.Validate(order); err != nil {
		m.logRejected(entry, err)
		return false, err
	}
	if err := validateID("orderId", order.OrderID); err != nil {
		m.logRejected(entry, err)
		return false, err
	}

	ok, err = m.repo.Update(fromOrderDTO(*order))
	if err != nil {
		entry.WithError(err).Error("failed to update order")
		return false, fmt.Errorf("update order %d: %w", order.OrderID, err)
	}
	if ok {
		m.emit(domain.EventOrderUpdated, order.OrderID, orderHeaderPayload{
			OrderID:         order.OrderID,
			Status:          order.Status,
			TotalAmount:     order.TotalAmount,
			ShippingAddress: order.ShippingAddress,
			BillingAddress:  order.BillingAddress,
		})
	}
	return ok, nil
}

func (m *orderManager) UpdateOrderStatus(orderID int64, status string) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opUpdateOrderStatus, started, err, ok) }()

	entry := m.logger.WithFields(log.Fields{"order_id": orderID, "status": status})
	entry.Info("updating order status")

	ok, err = m.repo.UpdateStatus(orderID, status)
	if err != nil {
		entry.WithError(err).Error("failed to update order status")
		return false, fmt.Errorf("update status of order %d: %w", orderID, err)
	}
	if ok {
		m.emit(domain.EventOrderStatusChanged, orderID, orderStatusPayload{OrderID: orderID, Status: status})
	}
	return ok, nil
}

func (m *orderManager) CancelOrder(orderID int64) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opCancelOrder, started, err, ok) }()

	entry := m.logger.WithField("order_id", orderID)
	entry.Info("cancelling order")

	ok, err = m.repo.Cancel(orderID)
	if err != nil {
		entry.WithError(err).Error("failed to cancel order")
		return false, fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	if ok {
		m.emit(domain.EventOrderCancelled, orderID, orderStatusPayload{OrderID: orderID, Status: domain.OrderStatusCancelled})
	}
	return ok, nil
}

func (m *orderManager) CalculateOrderTotal(items []OrderItemDTO) decimal.Decimal {
	started := time.Now()
	total := domain.SumItems(fromOrderItemDTOs(items))
	m.observe(opCalculateOrderTotal, started, nil, true)
	m.logger.WithFields(log.Fields{"items": len(items), "total": total.StringFixed(2)}).Info("calculated order total")
	return total
}

type orderStatusPayload struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

type orderHeaderPayload struct {
	OrderID         int64           `json:"orderId"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	BillingAddress  string          `json:"billingAddress"`
}

var _ OrderManager = (*orderManager)(nil)
