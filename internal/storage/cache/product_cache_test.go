package cache_test

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/storage/cache"
	"github.com/vladislavdragonenkov/ecomstore/internal/storage/memory"
)

// countingRepo считает обращения к нижнему репозиторию.
type countingRepo struct {
	domain.ProductRepository
	gets int
}

func (c *countingRepo) GetByID(id int64) (domain.Product, error) {
	c.gets++
	return c.ProductRepository.GetByID(id)
}

func newCachedRepo(t *testing.T) (*cache.ProductRepository, *countingRepo, *miniredis.Miniredis, *test.Hook) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger, hook := test.NewNullLogger()
	backing := &countingRepo{ProductRepository: memory.NewProductRepository(memory.NewStore(memory.WithSeedData()))}
	repo := cache.NewProductRepository(backing, client, time.Minute,
		cache.WithLogger(log.NewEntry(logger)),
		cache.WithKeyPrefix("test:product:"),
	)
	return repo, backing, mr, hook
}

func TestProductCache_ReadThrough(t *testing.T) {
	repo, backing, mr, _ := newCachedRepo(t)

	first, err := repo.GetByID(1)
	require.NoError(t, err)
	require.Equal(t, "Laptop", first.Name)
	require.True(t, mr.Exists("test:product:1"))

	second, err := repo.GetByID(1)
	require.NoError(t, err)
	require.Equal(t, 1, backing.gets, "second read must be served from redis")
	require.True(t, first.Price.Equal(second.Price))
	require.Equal(t, first.CreatedAt.UTC(), second.CreatedAt.UTC())

	ttl := mr.TTL("test:product:1")
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)
}

func TestProductCache_NotFoundIsNotCached(t *testing.T) {
	repo, backing, mr, _ := newCachedRepo(t)

	_, err := repo.GetByID(99)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	require.False(t, mr.Exists("test:product:99"))

	_, err = repo.GetByID(99)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	require.Equal(t, 2, backing.gets)
}

func TestProductCache_MutationsInvalidate(t *testing.T) {
	repo, _, mr, _ := newCachedRepo(t)

	_, err := repo.GetByID(2)
	require.NoError(t, err)
	require.True(t, mr.Exists("test:product:2"))

	ok, err := repo.UpdateStock(2, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, mr.Exists("test:product:2"))

	got, err := repo.GetByID(2)
	require.NoError(t, err)
	require.Equal(t, 7, got.StockQuantity)

	ok, err = repo.Deactivate(2)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.GetByID(2)
	require.ErrorIs(t, err, domain.ErrProductNotFound, "deactivated product must not be served from cache")
}

func TestProductCache_RedisDownDegrades(t *testing.T) {
	repo, backing, mr, hook := newCachedRepo(t)
	mr.Close()

	got, err := repo.GetByID(3)
	require.NoError(t, err)
	require.Equal(t, "Book", got.Name)
	require.Equal(t, 1, backing.gets)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel {
			warned = true
		}
	}
	require.True(t, warned, "redis failure must be logged as warning")
}

// racingRepo выполняет afterRead один раз: после чтения снимка, до записи в кеш.
type racingRepo struct {
	domain.ProductRepository
	afterRead func()
}

func (r *racingRepo) GetByID(id int64) (domain.Product, error) {
	product, err := r.ProductRepository.GetByID(id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return product, err
}

func TestProductCache_InvalidationDuringReadIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, repo *cache.ProductRepository)
		check  func(t *testing.T, repo *cache.ProductRepository)
	}{
		{
			name: "deactivate",
			mutate: func(t *testing.T, repo *cache.ProductRepository) {
				ok, err := repo.Deactivate(1)
				require.NoError(t, err)
				require.True(t, ok)
			},
			check: func(t *testing.T, repo *cache.ProductRepository) {
				_, err := repo.GetByID(1)
				require.ErrorIs(t, err, domain.ErrProductNotFound)
			},
		},
		{
			name: "update stock",
			mutate: func(t *testing.T, repo *cache.ProductRepository) {
				ok, err := repo.UpdateStock(1, 42)
				require.NoError(t, err)
				require.True(t, ok)
			},
			check: func(t *testing.T, repo *cache.ProductRepository) {
				got, err := repo.GetByID(1)
				require.NoError(t, err)
				require.Equal(t, 42, got.StockQuantity)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })

			backing := &racingRepo{ProductRepository: memory.NewProductRepository(memory.NewStore(memory.WithSeedData()))}
			repo := cache.NewProductRepository(backing, client, time.Minute, cache.WithKeyPrefix("race:product:"))
			backing.afterRead = func() { tt.mutate(t, repo) }

			stale, err := repo.GetByID(1)
			require.NoError(t, err)
			require.Equal(t, "Laptop", stale.Name, "the racing read itself returns its snapshot")
			require.False(t, mr.Exists("race:product:1"), "stale snapshot must not be cached")

			tt.check(t, repo)
		})
	}
}

func TestProductCache_FillAfterInvalidationSettles(t *testing.T) {
	repo, backing, mr, _ := newCachedRepo(t)

	ok, err := repo.UpdateStock(3, 11)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", mustGet(t, mr, "test:product:3:gen"))

	_, err = repo.GetByID(3)
	require.NoError(t, err)
	require.True(t, mr.Exists("test:product:3"), "read after invalidation must fill the cache")

	got, err := repo.GetByID(3)
	require.NoError(t, err)
	require.Equal(t, 11, got.StockQuantity)
	require.Equal(t, 1, backing.gets)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mr.Get(key)
	require.NoError(t, err)
	return value
}
