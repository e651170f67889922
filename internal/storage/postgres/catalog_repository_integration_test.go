package postgres

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

func TestProductRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	laptopID, err := repo.Create(domain.Product{
		Name:          "Laptop",
		Description:   "High-performance laptop",
		Price:         decimal.RequireFromString("999.99"),
		Category:      domain.CategoryElectronics,
		StockQuantity: 50,
		IsActive:      false,
	})
	if err != nil {
		t.Fatalf("create laptop: %v", err)
	}
	bookID, err := repo.Create(domain.Product{
		Name:     "Book",
		Price:    decimal.RequireFromString("19.99"),
		Category: domain.CategoryBooks,
	})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if laptopID != 1 || bookID != 2 {
		t.Fatalf("expected sequential ids 1,2, got %d,%d", laptopID, bookID)
	}

	laptop, err := repo.GetByID(laptopID)
	if err != nil {
		t.Fatalf("get laptop: %v", err)
	}
	if !laptop.IsActive {
		t.Fatal("create must force active flag")
	}
	if !laptop.Price.Equal(decimal.RequireFromString("999.99")) {
		t.Fatalf("price lost precision: %s", laptop.Price)
	}

	byCategory, err := repo.GetByCategory("ELECTRONICS")
	if err != nil {
		t.Fatalf("get by category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].ID != laptopID {
		t.Fatalf("unexpected category result: %+v", byCategory)
	}

	found, err := repo.Search("performance")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected description match, got %d", len(found))
	}
	found, err = repo.Search("LAPTOP")
	if err != nil {
		t.Fatalf("search upper: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("search must be case-sensitive, got %d", len(found))
	}

	ok, err := repo.UpdateStock(bookID, -3)
	if err != nil || !ok {
		t.Fatalf("update stock: ok=%v err=%v", ok, err)
	}

	ok, err = repo.Deactivate(laptopID)
	if err != nil || !ok {
		t.Fatalf("deactivate: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Deactivate(laptopID)
	if err != nil || ok {
		t.Fatalf("second deactivate must report false: ok=%v err=%v", ok, err)
	}
	if _, err := repo.GetByID(laptopID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for inactive product, got %v", err)
	}

	all, err := repo.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 || all[0].StockQuantity != -3 {
		t.Fatalf("unexpected active products: %+v", all)
	}
}

func TestCustomerRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCustomerRepository(store)

	first, err := repo.Create(domain.Customer{FirstName: "John", LastName: "Doe", Email: "john.doe@email.com"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := repo.Create(domain.Customer{FirstName: "Johnny", LastName: "Doe", Email: "JOHN.DOE@email.com"})
	if err != nil {
		t.Fatalf("create duplicate email: %v", err)
	}

	got, err := repo.GetByEmail("john.doe@EMAIL.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != first {
		t.Fatalf("expected earliest customer %d, got %d", first, got.ID)
	}

	ok, err := repo.Deactivate(first)
	if err != nil || !ok {
		t.Fatalf("deactivate: ok=%v err=%v", ok, err)
	}
	got, err = repo.GetByEmail("john.doe@email.com")
	if err != nil {
		t.Fatalf("get by email after deactivate: %v", err)
	}
	if got.ID != second {
		t.Fatalf("expected active duplicate %d, got %d", second, got.ID)
	}

	ok, err = repo.Remove(second)
	if err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}
	if _, err := repo.GetByID(second); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	ok, err = repo.Remove(second)
	if err != nil || ok {
		t.Fatalf("second remove must report false: ok=%v err=%v", ok, err)
	}
}

func TestOrderRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)

	items := []domain.OrderItem{
		{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: 3, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}

	older, err := repo.Create(domain.Order{CustomerID: 7, TotalAmount: decimal.RequireFromString("25"), Items: items})
	if err != nil {
		t.Fatalf("create older: %v", err)
	}
	newer, err := repo.Create(domain.Order{CustomerID: 7, Status: domain.OrderStatusProcessing, Items: items[:1]})
	if err != nil {
		t.Fatalf("create newer: %v", err)
	}

	got, err := repo.GetByID(older)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusPending {
		t.Fatalf("expected default status, got %q", got.Status)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if !got.Items[0].LineTotal.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected line total %s", got.Items[0].LineTotal)
	}

	byCustomer, err := repo.GetByCustomerID(7)
	if err != nil {
		t.Fatalf("get by customer: %v", err)
	}
	if len(byCustomer) != 2 || byCustomer[0].ID != newer {
		t.Fatalf("expected newest first, got %+v", byCustomer)
	}
	if len(byCustomer[1].Items) != 2 {
		t.Fatalf("list must attach items, got %d", len(byCustomer[1].Items))
	}

	ok, err := repo.Cancel(newer)
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}
	cancelled, err := repo.GetByStatus("cancelled")
	if err != nil {
		t.Fatalf("get by status: %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != newer {
		t.Fatalf("unexpected cancelled orders: %+v", cancelled)
	}

	ok, err = repo.Update(domain.Order{ID: older, Status: domain.OrderStatusShipped, TotalAmount: decimal.RequireFromString("30"), ShippingAddress: "1 Main St"})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	got, err = repo.GetByID(older)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.CustomerID != 7 || len(got.Items) != 2 {
		t.Fatalf("update must keep customer and items: %+v", got)
	}

	ok, err = repo.UpdateStatus(999, domain.OrderStatusShipped)
	if err != nil || ok {
		t.Fatalf("missing order must report false: ok=%v err=%v", ok, err)
	}
	if _, err := repo.GetByID(999); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
