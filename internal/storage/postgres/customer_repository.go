package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const customerColumns = `id, first_name, last_name, email, phone, address, city, state, zip_code, country, is_active, created_at, modified_at`

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) GetAll() ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer rows: %w", err)
	}
	return result, nil
}

func (r *customerRepository) GetByID(id int64) (domain.Customer, error) {
	return r.getOne(`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND is_active`, id)
}

func (r *customerRepository) GetByEmail(email string) (domain.Customer, error) {
	return r.getOne(`
		SELECT `+customerColumns+`
		FROM customers
		WHERE is_active AND lower(email) = lower($1)
		ORDER BY id
		LIMIT 1
	`, email)
}

func (r *customerRepository) Create(customer domain.Customer) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (
			first_name, last_name, email, phone, address, city, state, zip_code, country,
			is_active, created_at, modified_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE,$10,$11)
		RETURNING id
	`,
		customer.FirstName, customer.LastName, customer.Email, customer.Phone, customer.Address,
		customer.City, customer.State, customer.ZipCode, customer.Country, now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	return id, nil
}

func (r *customerRepository) Update(customer domain.Customer) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return execAffected(ctx, r.db, "update customer", `
		UPDATE customers
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    phone = $5,
		    address = $6,
		    city = $7,
		    state = $8,
		    zip_code = $9,
		    country = $10,
		    modified_at = $11
		WHERE id = $1
	`,
		customer.ID, customer.FirstName, customer.LastName, customer.Email, customer.Phone,
		customer.Address, customer.City, customer.State, customer.ZipCode, customer.Country,
		time.Now().UTC(),
	)
}

func (r *customerRepository) Remove(id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return execAffected(ctx, r.db, "delete customer", `DELETE FROM customers WHERE id = $1`, id)
}

func (r *customerRepository) Deactivate(id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return execAffected(ctx, r.db, "deactivate customer", `
		UPDATE customers
		SET is_active = FALSE, modified_at = $2
		WHERE id = $1 AND is_active
	`, id, time.Now().UTC())
}

func (r *customerRepository) getOne(query string, args ...any) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.State,
		&c.ZipCode,
		&c.Country,
		&c.IsActive,
		&c.CreatedAt,
		&c.ModifiedAt,
	); err != nil {
		return domain.Customer{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ModifiedAt = c.ModifiedAt.UTC()
	return c, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
