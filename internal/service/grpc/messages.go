package grpcsvc

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

// Empty - запрос без параметров.
type Empty struct{}

// IDRequest адресует запись по идентификатору.
type IDRequest struct {
	ID int64 `json:"id"`
}

// CategoryRequest - поиск товаров по категории.
type CategoryRequest struct {
	Category string `json:"category"`
}

// SearchRequest - поиск товаров по подстроке.
type SearchRequest struct {
	SearchTerm string `json:"searchTerm"`
}

// UpdateStockRequest перезаписывает остаток товара.
type UpdateStockRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// EmailRequest - поиск покупателя по email.
type EmailRequest struct {
	Email string `json:"email"`
}

// StatusRequest - выборка заказов по статусу.
type StatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatusRequest перезаписывает статус заказа.
type UpdateOrderStatusRequest struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

// CalculateOrderTotalRequest - позиции для расчёта суммы.
type CalculateOrderTotalRequest struct {
	OrderItems []manager.OrderItemDTO `json:"orderItems"`
}

// ProductList - список товаров.
type ProductList struct {
	Products []manager.ProductDTO `json:"products"`
}

// CustomerList - список покупателей.
type CustomerList struct {
	Customers []manager.CustomerDTO `json:"customers"`
}

// OrderList - список заказов.
type OrderList struct {
	Orders []manager.OrderDTO `json:"orders"`
}

// CreateResponse возвращает идентификатор созданной записи.
type CreateResponse struct {
	ID int64 `json:"id"`
}

// ResultResponse - результат мутации: false, если запись не найдена или не изменилась.
type ResultResponse struct {
	Success bool `json:"success"`
}

// TotalResponse - рассчитанная сумма заказа.
type TotalResponse struct {
	Total decimal.Decimal `json:"total"`
}
