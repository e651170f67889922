package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

var errStoreNotInitialized = errors.New("postgres store is not initialized")

// PoolConfig задаёт параметры пула соединений database/sql.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig подходит для одного экземпляра каталога.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// OpenOption меняет параметры Open.
type OpenOption func(*PoolConfig)

// WithPool подменяет настройки пула целиком. Нулевые поля остаются по умолчанию.
func WithPool(cfg PoolConfig) OpenOption {
	return func(p *PoolConfig) {
		if cfg.MaxOpenConns > 0 {
			p.MaxOpenConns = cfg.MaxOpenConns
		}
		if cfg.MaxIdleConns > 0 {
			p.MaxIdleConns = cfg.MaxIdleConns
		}
		if cfg.ConnMaxLifetime > 0 {
			p.ConnMaxLifetime = cfg.ConnMaxLifetime
		}
		if cfg.ConnMaxIdleTime > 0 {
			p.ConnMaxIdleTime = cfg.ConnMaxIdleTime
		}
	}
}

// Store держит пул соединений, общий для всех репозиториев каталога.
type Store struct {
	db *sql.DB
}

// Open подключается через драйвер pgx и сразу проверяет доступность базы.
func Open(ctx context.Context, dsn string, opts ...OpenOption) (*Store, error) {
	pool := DefaultPoolConfig()
	for _, opt := range opts {
		opt(&pool)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// DB отдаёт пул репозиториям пакета и тестам.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping используется health-проверкой storage.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Counts возвращает число записей каждого вида, как memory.Store.Counts.
func (s *Store) Counts(ctx context.Context) (products, customers, orders, orderItems int, err error) {
	if s == nil || s.db == nil {
		return 0, 0, 0, 0, errStoreNotInitialized
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err = s.db.QueryRowContext(queryCtx, `
		SELECT
			(SELECT count(*) FROM products),
			(SELECT count(*) FROM customers),
			(SELECT count(*) FROM orders),
			(SELECT count(*) FROM order_items)
	`).Scan(&products, &customers, &orders, &orderItems)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("count records: %w", err)
	}
	return products, customers, orders, orderItems, nil
}

// Close закрывает пул. Повторный вызов и nil-store безопасны.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
