package manager

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// ProductDTO - представление товара для внешних слоёв.
type ProductDTO struct {
	ProductID     int64           `json:"productId"`
	Name          string          `json:"name" validate:"required,max=100"`
	Description   string          `json:"description" validate:"max=1000"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	Category      string          `json:"category" validate:"required,max=50"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	ImageURL      string          `json:"imageUrl" validate:"max=255"`
	CreatedDate   time.Time       `json:"createdDate"`
	ModifiedDate  time.Time       `json:"modifiedDate"`
	IsActive      bool            `json:"isActive"`
}

// CustomerDTO - представление покупателя для внешних слоёв.
type CustomerDTO struct {
	CustomerID   int64     `json:"customerId"`
	FirstName    string    `json:"firstName" validate:"required,max=50"`
	LastName     string    `json:"lastName" validate:"required,max=50"`
	Email        string    `json:"email" validate:"required,max=100,emailaddr"`
	Phone        string    `json:"phone" validate:"omitempty,max=20,phone"`
	Address      string    `json:"address" validate:"max=200"`
	City         string    `json:"city" validate:"max=50"`
	State        string    `json:"state" validate:"max=50"`
	ZipCode      string    `json:"zipCode" validate:"max=20"`
	Country      string    `json:"country" validate:"max=50"`
	CreatedDate  time.Time `json:"createdDate"`
	ModifiedDate time.Time `json:"modifiedDate"`
	IsActive     bool      `json:"isActive"`
}

// OrderItemDTO - позиция заказа. TotalPrice заполняется при чтении.
type OrderItemDTO struct {
	OrderItemID int64           `json:"orderItemId"`
	OrderID     int64           `json:"orderId"`
	ProductID   int64           `json:"productId" validate:"gt=0"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// OrderDTO - заказ вместе с позициями.
type OrderDTO struct {
	OrderID         int64           `json:"orderId"`
	CustomerID      int64           `json:"customerId" validate:"gt=0"`
	OrderDate       time.Time       `json:"orderDate"`
	Status          string          `json:"status" validate:"max=20"`
	TotalAmount     decimal.Decimal `json:"totalAmount" validate:"gte=0"`
	ShippingAddress string          `json:"shippingAddress" validate:"max=500"`
	BillingAddress  string          `json:"billingAddress" validate:"max=500"`
	OrderItems      []OrderItemDTO  `json:"orderItems" validate:"dive"`
	CreatedDate     time.Time       `json:"createdDate"`
	ModifiedDate    time.Time       `json:"modifiedDate"`
}

func toProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ProductID:     p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		Category:      p.Category,
		StockQuantity: p.StockQuantity,
		ImageURL:      p.ImageURL,
		CreatedDate:   p.CreatedAt,
		ModifiedDate:  p.ModifiedAt,
		IsActive:      p.IsActive,
	}
}

func fromProductDTO(dto ProductDTO) domain.Product {
	return domain.Product{
		ID:            dto.ProductID,
		Name:          dto.Name,
		Description:   dto.Description,
		Price:         dto.Price,
		Category:      dto.Category,
		StockQuantity: dto.StockQuantity,
		ImageURL:      dto.ImageURL,
		IsActive:      dto.IsActive,
	}
}

func toProductDTOs(products []domain.Product) []ProductDTO {
	result := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		result = append(result, toProductDTO(p))
	}
	return result
}

func toCustomerDTO(c domain.Customer) CustomerDTO {
	return CustomerDTO{
		CustomerID:   c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		City:         c.City,
		State:        c.State,
		ZipCode:      c.ZipCode,
		Country:      c.Country,
		CreatedDate:  c.CreatedAt,
		ModifiedDate: c.ModifiedAt,
		IsActive:     c.IsActive,
	}
}

func fromCustomerDTO(dto CustomerDTO) domain.Customer {
	return domain.Customer{
		ID:        dto.CustomerID,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Email:     dto.Email,
		Phone:     dto.Phone,
		Address:   dto.Address,
		City:      dto.City,
		State:     dto.State,
		ZipCode:   dto.ZipCode,
		Country:   dto.Country,
		IsActive:  dto.IsActive,
	}
}

func toCustomerDTOs(customers []domain.Customer) []CustomerDTO {
	result := make([]CustomerDTO, 0, len(customers))
	for _, c := range customers {
		result = append(result, toCustomerDTO(c))
	}
	return result
}

func toOrderDTO(o domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			OrderItemID: item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.LineTotal,
		})
	}
	return OrderDTO{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		OrderDate:       o.OrderDate,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		OrderItems:      items,
		CreatedDate:     o.CreatedAt,
		ModifiedDate:    o.ModifiedAt,
	}
}

func fromOrderDTO(dto OrderDTO) domain.Order {
	return domain.Order{
		ID:              dto.OrderID,
		CustomerID:      dto.CustomerID,
		Status:          dto.Status,
		TotalAmount:     dto.TotalAmount,
		ShippingAddress: dto.ShippingAddress,
		BillingAddress:  dto.BillingAddress,
		Items:           fromOrderItemDTOs(dto.OrderItems),
	}
}

func fromOrderItemDTOs(dtos []OrderItemDTO) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, domain.OrderItem{
			ID:        dto.OrderItemID,
			OrderID:   dto.OrderID,
			ProductID: dto.ProductID,
			Quantity:  dto.Quantity,
			UnitPrice: dto.UnitPrice,
		})
	}
	return items
}

func toOrderDTOs(orders []domain.Order) []OrderDTO {
	result := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderDTO(o))
	}
	return result
}
