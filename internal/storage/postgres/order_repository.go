package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const orderColumns = `id, customer_id, order_date, status, total_amount, shipping_address, billing_address, created_at, modified_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) GetAll() ([]domain.Order, error) {
	return r.list(`SELECT ` + orderColumns + ` FROM orders ORDER BY id`)
}

func (r *orderRepository) GetByID(id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, []int64{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]

	return order, nil
}

func (r *orderRepository) GetByCustomerID(customerID int64) ([]domain.Order, error) {
	return r.list(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY order_date DESC, id DESC
	`, customerID)
}

func (r *orderRepository) GetByStatus(status string) ([]domain.Order, error) {
	return r.list(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE lower(status) = lower($1)
		ORDER BY order_date DESC, id DESC
	`, status)
}

// Create вставляет заказ и позиции в одной транзакции.
func (r *orderRepository) Create(order domain.Order) (id int64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			customer_id, order_date, status, total_amount,
			shipping_address, billing_address, created_at, modified_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`,
		order.CustomerID, now, order.Status, order.TotalAmount.String(),
		order.ShippingAddress, order.BillingAddress, now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, quantity, unit_price, line_total
			) VALUES ($1,$2,$3,$4,$5)
		`,
			id, item.ProductID, item.Quantity, item.UnitPrice.String(), item.ComputeLineTotal().String(),
		); err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create order: %w", err)
	}

	return id, nil
}

func (r *orderRepository) Update(order domain.Order) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return execAffected(ctx, r.db, "update order", `
		UPDATE orders
		SET status = $2,
		    total_amount = $3,
		    shipping_address = $4,
		    billing_address = $5,
		    modified_at = $6
		WHERE id = $1
	`,
		order.ID, order.Status, order.TotalAmount.String(),
		order.ShippingAddress, order.BillingAddress, time.Now().UTC(),
	)
}

func (r *orderRepository) UpdateStatus(id int64, status string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return execAffected(ctx, r.db, "update order status", `
		UPDATE orders
		SET status = $2, modified_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
}

func (r *orderRepository) Cancel(id int64) (bool, error) {
	return r.UpdateStatus(id, domain.OrderStatusCancelled)
}

// list читает заголовки заказов и одним запросом подгружает их позиции.
func (r *orderRepository) list(query string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item             domain.OrderItem
			unitPrice, total string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &unitPrice, &total); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if item.UnitPrice, err = parseMoney(unitPrice); err != nil {
			return nil, err
		}
		if item.LineTotal, err = parseMoney(total); err != nil {
			return nil, err
		}
		result[item.OrderID] = append(result[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return result, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order domain.Order
		total string
	)
	if err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.OrderDate,
		&order.Status,
		&total,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.CreatedAt,
		&order.ModifiedAt,
	); err != nil {
		return domain.Order{}, err
	}

	var err error
	if order.TotalAmount, err = parseMoney(total); err != nil {
		return domain.Order{}, err
	}
	order.OrderDate = order.OrderDate.UTC()
	order.CreatedAt = order.CreatedAt.UTC()
	order.ModifiedAt = order.ModifiedAt.UTC()
	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
