package manager

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	opGetAllCustomers    = "GetAllCustomers"
	opGetCustomerByID    = "GetCustomerByID"
	opGetCustomerByEmail = "GetCustomerByEmail"
	opCreateCustomer     = "CreateCustomer"
	opUpdateCustomer     = "UpdateCustomer"
	opDeleteCustomer     = "DeleteCustomer"
	opDeactivateCustomer = "DeactivateCustomer"
)

// CustomerManager - бизнес-операции над покупателями.
type CustomerManager interface {
	GetAllCustomers() ([]CustomerDTO, error)
	GetCustomerByID(customerID int64) (*CustomerDTO, error)
	GetCustomerByEmail(email string) (*CustomerDTO, error)
	CreateCustomer(customer *CustomerDTO) (int64, error)
	UpdateCustomer(customer *CustomerDTO) (bool, error)
	// DeleteCustomer удаляет запись физически.
	DeleteCustomer(customerID int64) (bool, error)
	// DeactivateCustomer помечает покупателя неактивным.
	DeactivateCustomer(customerID int64) (bool, error)
}

type customerManager struct {
	base
	repo domain.CustomerRepository
}

// NewCustomerManager создаёт менеджер покупателей поверх репозитория.
func NewCustomerManager(repo domain.CustomerRepository, opts ...Option) CustomerManager {
	return &customerManager{base: newBase(domain.AggregateCustomer, opts), repo: repo}
}

func (m *customerManager) GetAllCustomers() (result []CustomerDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetAllCustomers, started, err, true) }()

	m.logger.Info("getting all customers")
	customers, err := m.repo.GetAll()
	if err != nil {
		m.logger.WithError(err).Error("failed to get customers")
		return nil, fmt.Errorf("get all customers: %w", err)
	}
	return toCustomerDTOs(customers), nil
}

func (m *customerManager) GetCustomerByID(customerID int64) (result *CustomerDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetCustomerByID, started, err, result != nil) }()

	entry := m.logger.WithField("customer_id", customerID)
	entry.Info("getting customer by id")

	customer, err := m.repo.GetByID(customerID)
	return m.lookupResult(customer, err, func(e error) error {
		entry.WithError(e).Error("failed to get customer")
		return fmt.Errorf("get customer %d: %w", customerID, e)
	})
}

// GetCustomerByEmail ищет без учёта регистра; при дублях возвращает самого раннего.
func (m *customerManager) GetCustomerByEmail(email string) (result *CustomerDTO, err error) {
	started := time.Now()
	defer func() { m.observe(opGetCustomerByEmail, started, err, result != nil) }()

	entry := m.logger.WithField("email", email)
	entry.Info("getting customer by email")

	customer, err := m.repo.GetByEmail(email)
	return m.lookupResult(customer, err, func(e error) error {
		entry.WithError(e).Error("failed to get customer by email")
		return fmt.Errorf("get customer by email: %w", e)
	})
}

func (m *customerManager) lookupResult(customer domain.Customer, err error, fail func(error) error) (*CustomerDTO, error) {
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fail(err)
	}
	dto := toCustomerDTO(customer)
	return &dto, nil
}

func (m *customerManager) CreateCustomer(customer *CustomerDTO) (id int64, err error) {
	started := time.Now()
	defer func() { m.observe(opCreateCustomer, started, err, true) }()

	entry := m.logger
	if customer != nil {
		entry = entry.WithField("email", customer.Email)
	}
	entry.Info("creating customer")

	if err := m.validator.Validate(customer); err != nil {
		m.logRejected(entry, err)
		return 0, err
	}

	id, err = m.repo.Create(fromCustomerDTO(*customer))
	if err != nil {
		entry.WithError(err).Error("failed to create customer")
		return 0, fmt.Errorf("create customer: %w", err)
	}

	m.emitStored(domain.EventCustomerCreated, id, entry)
	entry.WithField("customer_id", id).Info("customer created")
	return id, nil
}

func (m *customerManager) UpdateCustomer(customer *CustomerDTO) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opUpdateCustomer, started, err, ok) }()

	entry := m.logger
	if customer != nil {
		entry = entry.WithField("customer_id", customer.CustomerID)
	}
	entry.Info("updating customer")

	if err := m.validator.Validate(customer); err != nil {
		m.logRejected(entry, err)
		return false, err
	}
	if err := validateID("customerId", customer.CustomerID); err != nil {
		m.logRejected(entry, err)
		return false, err
	}

	ok, err = m.repo.Update(fromCustomerDTO(*customer))
	if err != nil {
		entry.WithError(err).Error("failed to update customer")
		return false, fmt.Errorf("update customer %d: %w", customer.CustomerID, err)
	}
	if ok {
		m.emitStored(domain.EventCustomerUpdated, customer.CustomerID, entry)
	}
	return ok, nil
}

func (m *customerManager) DeleteCustomer(customerID int64) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opDeleteCustomer, started, err, ok) }()

	entry := m.logger.WithField("customer_id", customerID)
	entry.Info("deleting customer")

	ok, err = m.repo.Remove(customerID)
	if err != nil {
		entry.WithError(err).Error("failed to delete customer")
		return false, fmt.Errorf("delete customer %d: %w", customerID, err)
	}
	if ok {
		m.emit(domain.EventCustomerDeleted, customerID, customerIDPayload{CustomerID: customerID})
	}
	return ok, nil
}

func (m *customerManager) DeactivateCustomer(customerID int64) (ok bool, err error) {
	started := time.Now()
	defer func() { m.observe(opDeactivateCustomer, started, err, ok) }()

	entry := m.logger.WithField("customer_id", customerID)
	entry.Info("deactivating customer")

	ok, err = m.repo.Deactivate(customerID)
	if err != nil {
		entry.WithError(err).Error("failed to deactivate customer")
		return false, fmt.Errorf("deactivate customer %d: %w", customerID, err)
	}
	if ok {
		m.emit(domain.EventCustomerDeactivated, customerID, customerIDPayload{CustomerID: customerID})
	}
	return ok, nil
}

type customerIDPayload struct {
	CustomerID int64 `json:"customerId"`
}

var _ CustomerManager = (*customerManager)(nil)

// emitStored публикует сохранённого покупателя; без него событие несёт только id.
func (m *customerManager) emitStored(eventType string, customerID int64, entry *log.Entry) {
	stored, err := m.repo.GetByID(customerID)
	if err != nil {
		entry.WithError(err).Warn("failed to reload customer for event")
		m.emit(eventType, customerID, customerIDPayload{CustomerID: customerID})
		return
	}
	m.emit(eventType, customerID, toCustomerDTO(stored))
}
