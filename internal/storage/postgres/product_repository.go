package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const productColumns = `id, name, description, price, category, stock_quantity, image_url, created_at, modified_at, is_active`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) GetAll() ([]domain.Product, error) {
	return r.query(`SELECT `+productColumns+` FROM products WHERE is_active ORDER BY id`)
}

func (r *productRepository) GetByID(id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND is_active`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

func (r *productRepository) GetByCategory(category string) ([]domain.Product, error) {
	return r.query(`
		SELECT `+productColumns+`
		FROM products
		WHERE is_active AND lower(category) = lower($1)
		ORDER BY id
	`, category)
}

// Search сравнивает подстроку побайтно: strpos, в отличие от ILIKE, учитывает регистр
// и не интерпретирует % и _ в term.
func (r *productRepository) Search(term string) ([]domain.Product, error) {
	return r.query(`
		SELECT `+productColumns+`
		FROM products
		WHERE is_active AND (strpos(name, $1) > 0 OR strpos(description, $1) > 0)
		ORDER BY id
	`, term)
}

func (r *productRepository) Create(product domain.Product) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (
			name, description, price, category, stock_quantity, image_url,
			created_at, modified_at, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE)
		RETURNING id
	`,
		product.Name, product.Description, product.Price.String(), product.Category,
		product.StockQuantity, product.ImageURL, now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *productRepository) Update(product domain.Product) (bool, error) {
	return r.exec(`
		UPDATE products
		SET name = $2,
		    description = $3,
		    price = $4,
		    category = $5,
		    stock_quantity = $6,
		    image_url = $7,
		    modified_at = $8
		WHERE id = $1
	`, "update product",
		product.ID, product.Name, product.Description, product.Price.String(),
		product.Category, product.StockQuantity, product.ImageURL, time.Now().UTC(),
	)
}

func (r *productRepository) Deactivate(id int64) (bool, error) {
	return r.exec(`
		UPDATE products
		SET is_active = FALSE, modified_at = $2
		WHERE id = $1 AND is_active
	`, "deactivate product", id, time.Now().UTC())
}

func (r *productRepository) UpdateStock(id int64, quantity int) (bool, error) {
	return r.exec(`
		UPDATE products
		SET stock_quantity = $2, modified_at = $3
		WHERE id = $1
	`, "update product stock", id, quantity, time.Now().UTC())
}

func (r *productRepository) query(query string, args ...any) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return result, nil
}

func (r *productRepository) exec(query, op string, args ...any) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return execAffected(ctx, r.db, op, query, args...)
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product domain.Product
		price   string
	)
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&price,
		&product.Category,
		&product.StockQuantity,
		&product.ImageURL,
		&product.CreatedAt,
		&product.ModifiedAt,
		&product.IsActive,
	); err != nil {
		return domain.Product{}, err
	}

	var err error
	if product.Price, err = parseMoney(price); err != nil {
		return domain.Product{}, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.ModifiedAt = product.ModifiedAt.UTC()
	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
