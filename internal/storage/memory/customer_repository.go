package memory

import (
	"strings"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// customerRepositoryInMemory - CustomerRepository поверх общего Store.
type customerRepositoryInMemory struct {
	store *Store
}

// NewCustomerRepository возвращает репозиторий покупателей поверх переданного хранилища.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepositoryInMemory{store: store}
}

func (r *customerRepositoryInMemory) GetAll() ([]domain.Customer, error) {
	all := r.store.customers.all()
	result := make([]domain.Customer, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *customerRepositoryInMemory) GetByID(id int64) (domain.Customer, error) {
	customer, ok := r.store.customers.byID(id)
	if !ok || !customer.IsActive {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// GetByEmail возвращает первое совпадение в порядке вставки:
// при дублях email выигрывает самый ранний покупатель.
func (r *customerRepositoryInMemory) GetByEmail(email string) (domain.Customer, error) {
	for _, c := range r.store.customers.all() {
		if c.IsActive && strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

func (r *customerRepositoryInMemory) Create(customer domain.Customer) (int64, error) {
	now := time.Now().UTC()
	id := r.store.customers.insert(func(id int64) domain.Customer {
		customer.ID = id
		customer.CreatedAt = now
		customer.ModifiedAt = now
		customer.IsActive = true
		return customer
	})
	return id, nil
}

func (r *customerRepositoryInMemory) Update(customer domain.Customer) (bool, error) {
	now := time.Now().UTC()
	return r.store.customers.modify(customer.ID, func(existing *domain.Customer) bool {
		existing.FirstName = customer.FirstName
		existing.LastName = customer.LastName
		existing.Email = customer.Email
		existing.Phone = customer.Phone
		existing.Address = customer.Address
		existing.City = customer.City
		existing.State = customer.State
		existing.ZipCode = customer.ZipCode
		existing.Country = customer.Country
		existing.ModifiedAt = now
		return true
	}), nil
}

// Remove удаляет запись физически, в любом состоянии.
func (r *customerRepositoryInMemory) Remove(id int64) (bool, error) {
	return r.store.customers.removeByID(id), nil
}

func (r *customerRepositoryInMemory) Deactivate(id int64) (bool, error) {
	now := time.Now().UTC()
	return r.store.customers.modify(id, func(existing *domain.Customer) bool {
		if !existing.IsActive {
			return false
		}
		existing.IsActive = false
		existing.ModifiedAt = now
		return true
	}), nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
