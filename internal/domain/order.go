package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статус заказа - произвольная метка без конечного автомата: любой статус
// можно перезаписать любым другим. Константы перечисляют метки, которыми
// пользуется сам сервис и его клиенты.
const (
	// OrderStatusPending проставляется при создании, если статус не передан.
	OrderStatusPending = "Pending"
	// OrderStatusProcessing - заказ взят в работу.
	OrderStatusProcessing = "Processing"
	// OrderStatusShipped - заказ передан в доставку.
	OrderStatusShipped = "Shipped"
	// OrderStatusDelivered - заказ вручён покупателю.
	OrderStatusDelivered = "Delivered"
	// OrderStatusCancelled проставляется операцией Cancel.
	OrderStatusCancelled = "Cancelled"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID      int64
	OrderID int64
	// ProductID - ссылка на товар, существование не проверяется.
	ProductID int64
	Quantity  int
	// UnitPrice фиксирует цену на момент заказа и не зависит от текущей цены товара.
	UnitPrice decimal.Decimal
	// LineTotal = Quantity * UnitPrice, вычисляется при сохранении позиции.
	LineTotal decimal.Decimal
}

// Order агрегирует заказ и его позиции.
type Order struct {
	ID int64
	// CustomerID - ссылка на покупателя, существование не проверяется.
	CustomerID int64
	OrderDate  time.Time
	Status     string
	// TotalAmount задаётся вызывающей стороной и не пересчитывается из позиций.
	TotalAmount     decimal.Decimal
	ShippingAddress string
	BillingAddress  string
	CreatedAt       time.Time
	ModifiedAt      time.Time
	Items           []OrderItem
}

// ComputeLineTotal возвращает стоимость позиции: количество на цену за единицу.
func (i OrderItem) ComputeLineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems считает сумму позиций. Хранилище не читается, заказ не меняется.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ComputeLineTotal())
	}
	return total
}
