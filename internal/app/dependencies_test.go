package app

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/ecomstore/internal/health"
	"github.com/vladislavdragonenkov/ecomstore/internal/storage/cache"
)

func testLogger() (*log.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return log.NewEntry(logger), hook
}

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	logger, _ := testLogger()
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	defer func() { _ = deps.close() }()

	if deps.products == nil || deps.customers == nil || deps.orders == nil {
		t.Fatal("entity repositories must not be nil for memory storage")
	}
	if deps.outboxRepo == nil || deps.idempotencyRepo == nil {
		t.Fatal("outbox and idempotency repositories must not be nil for memory storage")
	}
	if deps.cacheChecker != nil {
		t.Fatal("cache checker must be nil when redis is not configured")
	}

	all, err := deps.products.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)

	check := deps.storageChecker.Check(context.Background())
	require.Equal(t, healthcheck.StatusHealthy, check.Status)
}

func TestInitRuntimeDependencies_MemoryWithoutSeed(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SeedData = false

	logger, _ := testLogger()
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)

	products, err := deps.products.GetAll()
	require.NoError(t, err)
	require.Empty(t, products)

	customers, err := deps.customers.GetAll()
	require.NoError(t, err)
	require.Empty(t, customers)
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres

	logger, _ := testLogger()
	if _, err := initRuntimeDependencies(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.StorageDriver = "sqlite"

	logger, _ := testLogger()
	if _, err := initRuntimeDependencies(context.Background(), cfg, logger); err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}

func TestInitRuntimeDependencies_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()

	logger, _ := testLogger()
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer func() { _ = deps.close() }()

	if _, ok := deps.products.(*cache.ProductRepository); !ok {
		t.Fatalf("expected cached product repository, got %T", deps.products)
	}
	require.NotNil(t, deps.cacheChecker)

	product, err := deps.products.GetByID(1)
	require.NoError(t, err)
	require.Equal(t, "Laptop", product.Name)
	require.NotEmpty(t, mr.Keys(), "product should be cached after read")

	require.Equal(t, healthcheck.StatusHealthy, deps.cacheChecker.Check(context.Background()).Status)

	mr.Close()
	require.Equal(t, healthcheck.StatusDegraded, deps.cacheChecker.Check(context.Background()).Status)
}

func TestInitRuntimeDependencies_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := DefaultConfig()
	cfg.RedisAddr = addr

	logger, hook := testLogger()
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	require.NoError(t, err, "unavailable redis must not fail startup")

	if _, ok := deps.products.(*cache.ProductRepository); ok {
		t.Fatal("product repository must not be wrapped when redis is down")
	}
	require.Nil(t, deps.cacheChecker)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel && entry.Message == "redis unavailable, continuing without product cache" {
			warned = true
		}
	}
	require.True(t, warned, "expected warning about unavailable redis")
}
