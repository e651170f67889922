package memory

import (
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// productRepositoryInMemory - ProductRepository поверх общего Store.
// Собственного состояния не держит.
type productRepositoryInMemory struct {
	store *Store
}

// NewProductRepository возвращает репозиторий товаров поверх переданного хранилища.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

func (r *productRepositoryInMemory) GetAll() ([]domain.Product, error) {
	return r.filter(func(domain.Product) bool { return true }), nil
}

func (r *productRepositoryInMemory) GetByID(id int64) (domain.Product, error) {
	product, ok := r.store.products.byID(id)
	if !ok || !product.IsActive {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepositoryInMemory) GetByCategory(category string) ([]domain.Product, error) {
	return r.filter(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category)
	}), nil
}

// Search сравнивает подстроку с учётом регистра, в отличие от GetByCategory.
func (r *productRepositoryInMemory) Search(term string) ([]domain.Product, error) {
	return r.filter(func(p domain.Product) bool {
		return strings.Contains(p.Name, term) || strings.Contains(p.Description, term)
	}), nil
}

func (r *productRepositoryInMemory) Create(product domain.Product) (int64, error) {
	now := time.Now().UTC()
	id := r.store.products.insert(func(id int64) domain.Product {
		product.ID = id
		product.CreatedAt = now
		product.ModifiedAt = now
		product.IsActive = true
		return product
	})
	return id, nil
}

// Update находит товар в любом состоянии и перезаписывает все поля, кроме ID,
// даты создания и флага активности.
func (r *productRepositoryInMemory) Update(product domain.Product) (bool, error) {
	now := time.Now().UTC()
	return r.store.products.modify(product.ID, func(existing *domain.Product) bool {
		existing.Name = product.Name
		existing.Description = product.Description
		existing.Price = product.Price
		existing.Category = product.Category
		existing.StockQuantity = product.StockQuantity
		existing.ImageURL = product.ImageURL
		existing.ModifiedAt = now
		return true
	}), nil
}

func (r *productRepositoryInMemory) Deactivate(id int64) (bool, error) {
	now := time.Now().UTC()
	return r.store.products.modify(id, func(existing *domain.Product) bool {
		if !existing.IsActive {
			return false
		}
		existing.IsActive = false
		existing.ModifiedAt = now
		return true
	}), nil
}

func (r *productRepositoryInMemory) UpdateStock(id int64, quantity int) (bool, error) {
	now := time.Now().UTC()
	return r.store.products.modify(id, func(existing *domain.Product) bool {
		existing.StockQuantity = quantity
		existing.ModifiedAt = now
		return true
	}), nil
}

// filter возвращает активные товары, удовлетворяющие условию, в порядке хранилища.
func (r *productRepositoryInMemory) filter(match func(domain.Product) bool) []domain.Product {
	all := r.store.products.all()
	result := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.IsActive && match(p) {
			result = append(result, p)
		}
	}
	return result
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
