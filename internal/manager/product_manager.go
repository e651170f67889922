package manager

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	opGetAllProducts        = "GetAllProducts"
	opGetProductByID        = "GetProductByID"
	opGetProductsByCategory = "GetProductsByCategory"
	opSearchProducts        = "SearchProducts"
	opCreateProduct         = "CreateProduct"
	opUpdateProduct         = "UpdateProduct"
	opDeleteProduct         = "DeleteProduct"
	opUpdateStock           = "UpdateStock"
)

// ProductManager - бизнес-операции над товарами.
type ProductManager interface {
	GetAllProducts() ([]ProductDTO, error)
	// GetProductByID возвращает nil без ошибки, если активного товара нет.
	GetProductByID(productID int64) (*ProductDTO, error)
	GetProductsByCategory(category string) ([]ProductDTO, error)
	SearchProducts(term string) ([]ProductDTO, error)
	CreateProduct(product *ProductDTO) (int64, error)
	UpdateProduct(product *ProductDTO) (bool, error)
	// DeleteProduct мягко удаляет товар.
	DeleteProduct(productID int64) (bool, error)
	// UpdateStock перезаписывает остаток без проверки границ.
	UpdateStock(productID int64, quantity int) (bool, error)
}

type productManager struct {
	base
	repo domain.ProductRepository
}

// NewProductManager создаёт менеджер товаров поверх репозитория.
func NewProductManager(repo domain.ProductRepository, opts ...Option) ProductManager {
	return &productManager{base: newBase(domain.AggregateProduct, opts), repo: repo}
}

func (m *productManager) GetAllProducts() (result []ProductDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetAllProducts, started, err, true) }()

	m.logger.Info("getting all products")
	products, err := m.repo.GetAll()
	if err != nil {
		m.logger.WithError(err).Error("failed to get products")
		return nil, fmt.Errorf("get all products: %w", err)
	}
	return toProductDTOs(products), nil
}

func (m *productManager) GetProductByID(productID int64) (result *ProductDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetProductByID, started, err, result != nil) }()

	entry := m.logger.WithField("product_id", productID)
	entry.Info("getting product by id")

	product, err := m.repo.GetByID(productID)
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		entry.WithError(err).Error("failed to get product")
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	dto := toProductDTO(product)
	return &dto, nil
}

func (m *productManager) GetProductsByCategory(category string) (result []ProductDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetProductsByCategory, started, err, true) }()

	entry := m.logger.WithField("category", category)
	entry.Info("getting products by category")

	products, err := m.repo.GetByCategory(category)
	if err != nil {
		entry.WithError(err).Error("failed to get products by category")
		return nil, fmt.Errorf("get products by category %q: %w", category, err)
	}
	return toProductDTOs(products), nil
}

func (m *productManager) SearchProducts(term string) (result []ProductDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opSearchProducts, started, err, true) }()

	entry := m.logger.WithField("term", term)
	entry.Info("searching products")

	products, err := m.repo.Search(term)
	if err != nil {
		entry.WithError(err).Error("failed to search products")
		return nil, fmt.Errorf("search products %q: %w", term, err)
	}
	return toProductDTOs(products), nil
}

func (m *productManager) CreateProduct(product *ProductDTO) (id int64, err error) {
	started := time.Now()
	defer func() { m.observe(opCreateProduct, started, err, true) }()

	entry := m.logger
	if product != nil {
		entry = entry.WithFields(log.Fields{"name": product.Name, "category": product.Category})
	}
	entry.Info("creating product")

	if err := m.validator.Validate(product); err != nil {
		m.logRejected(entry, err)
		return 0, err
	}

	id, err = m.repo.Create(fromProductDTO(*product))
	if err != nil {
		entry.WithError(err).Error("failed to create product")
		return 0, fmt.Errorf("create product: %w", err)
	}

	m.emitStored(domain.EventProductCreated, id, entry)
	entry.WithField("product_id", id).Info("product created")
	return id, nil
}

func (m *productManager) UpdateProduct(product *ProductDTO) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opUpdateProduct, started, err, ok) }()

	entry := m.logger
	if product != nil {
		entry = entry.WithField("product_id", product.ProductID)
	}
	entry.Info("updating product")

	if err := m.validator.Validate(product); err != nil {
		m.logRejected(entry, err)
		return false, err
	}
	if err := validateID("productId", product.ProductID); err != nil {
		m.logRejected(entry, err)
		return false, err
	}

	ok, err = m.repo.Update(fromProductDTO(*product))
	if err != nil {
		entry.WithError(err).Error("failed to update product")
		return false, fmt.Errorf("update product %d: %w", product.ProductID, err)
	}
	if ok {
		m.emitStored(domain.EventProductUpdated, product.ProductID, entry)
	}
	return ok, nil
}

func (m *productManager) DeleteProduct(productID int64) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opDeleteProduct, started, err, ok) }()

	entry := m.logger.WithField("product_id", productID)
	entry.Info("deleting product")

	ok, err = m.repo.Deactivate(productID)
	if err != nil {
		entry.WithError(err).Error("failed to delete product")
		return false, fmt.Errorf("delete product %d: %w", productID, err)
	}
	if ok {
		m.emit(domain.EventProductDeleted, productID, productIDPayload{ProductID: productID})
	}
	return ok, nil
}

func (m *productManager) UpdateStock(productID int64, quantity int) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opUpdateStock, started, err, ok) }()

	entry := m.logger.WithFields(log.Fields{"product_id": productID, "quantity": quantity})
	entry.Info("updating stock")

	ok, err = m.repo.UpdateStock(productID, quantity)
	if err != nil {
		entry.WithError(err).Error("failed to update stock")
		return false, fmt.Errorf("update stock for product %d: %w", productID, err)
	}
	if ok {
		m.emit(domain.EventProductStockUpdated, productID, stockPayload{ProductID: productID, StockQuantity: quantity})
	}
	return ok, nil
}

type productIDPayload struct {
	ProductID int64 `json:"productId"`
}

type stockPayload struct {
	ProductID     int64 `json:"productId"`
	StockQuantity int   `json:"stockQuantity"`
}

var _ ProductManager = (*productManager)(nil)

// emitStored публикует товар в том виде, в каком он сохранён, а не входной DTO:
// у входа нет дат и isActive. Если перечитать не удалось, событие несёт только id.
func (m *productManager) emitStored(eventType string, productID int64, entry *log.Entry) {
	stored, err := m.repo.GetByID(productID)
	if err != nil {
		entry.WithError(err).Warn("failed to reload product for event")
		m.emit(eventType, productID, productIDPayload{ProductID: productID})
		return
	}
	m.emit(eventType, productID, toProductDTO(stored))
}
