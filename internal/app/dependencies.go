package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/health"
	"github.com/vladislavdragonenkov/ecomstore/internal/storage/cache"
	"github.com/vladislavdragonenkov/ecomstore/internal/storage/memory"
	"github.com/vladislavdragonenkov/ecomstore/internal/storage/postgres"
)

// runtimeDependencies - репозитории и проверки, выбранные по ECOM_STORAGE.
type runtimeDependencies struct {
	products        domain.ProductRepository
	customers       domain.CustomerRepository
	orders          domain.OrderRepository
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository

	storageChecker health.Checker
	cacheChecker   health.Checker

	closeFn func() error
}

func (d *runtimeDependencies) close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	var (
		deps *runtimeDependencies
		err  error
	)

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		deps = initMemoryDependencies(cfg, logger)
	case StorageDriverPostgres:
		deps, err = initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, err
	}

	initProductCache(ctx, cfg, deps, logger)
	return deps, nil
}

func initMemoryDependencies(cfg Config, logger *log.Entry) *runtimeDependencies {
	var opts []memory.StoreOption
	if cfg.SeedData {
		opts = append(opts, memory.WithSeedData())
	}
	store := memory.NewStore(opts...)

	products, customers, _, _ := store.Counts()
	logger.WithFields(log.Fields{
		"driver":    StorageDriverMemory,
		"products":  products,
		"customers": customers,
	}).Info("storage initialized")

	return &runtimeDependencies{
		products:        memory.NewProductRepository(store),
		customers:       memory.NewCustomerRepository(store),
		orders:          memory.NewOrderRepository(store),
		outboxRepo:      memory.NewOutboxRepository(),
		idempotencyRepo: memory.NewIdempotencyRepository(),
		storageChecker: health.NewSimpleChecker("storage", func(context.Context) error {
			return nil
		}),
		closeFn: func() error { return nil },
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("ECOM_POSTGRES_DSN is required for postgres storage")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres storage: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		version, applied, err := store.MigrationStatus(ctx)
		if err != nil {
			logger.WithError(err).Warn("failed to read migration status")
		} else {
			logger.WithFields(log.Fields{"version": version, "applied": applied}).Info("postgres migrations applied")
		}
	}

	fields := log.Fields{"driver": StorageDriverPostgres}
	if products, customers, orders, _, err := store.Counts(ctx); err != nil {
		logger.WithError(err).Warn("failed to count stored records")
	} else {
		fields["products"], fields["customers"], fields["orders"] = products, customers, orders
	}
	logger.WithFields(fields).Info("storage initialized")

	return &runtimeDependencies{
		products:        postgres.NewProductRepository(store),
		customers:       postgres.NewCustomerRepository(store),
		orders:          postgres.NewOrderRepository(store),
		outboxRepo:      postgres.NewOutboxRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		storageChecker:  health.NewSimpleChecker("storage", store.Ping),
		closeFn:         store.Close,
	}, nil
}

// initProductCache оборачивает репозиторий товаров Redis-кешем.
// Недоступный Redis не мешает старту: сервис работает без кеша.
func initProductCache(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return
	}

	client, err := cache.NewClient(ctx, addr)
	if err != nil {
		logger.WithError(err).WithField("addr", addr).Warn("redis unavailable, continuing without product cache")
		return
	}

	deps.products = cache.NewProductRepository(deps.products, client, cfg.CacheTTL,
		cache.WithLogger(logger.WithField("layer", "cache")),
	)
	deps.cacheChecker = health.NewOptionalChecker("cache", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})

	closeStorage := deps.closeFn
	deps.closeFn = func() error {
		return errors.Join(closeRedis(client), closeStorage())
	}

	logger.WithFields(log.Fields{"addr": addr, "ttl": cfg.CacheTTL}).Info("product cache enabled")
}

func closeRedis(client *redis.Client) error {
	if err := client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
