// Package cache содержит Redis-декораторы репозиториев.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultKeyPrefix = "ecomstore:product:"
	redisOpTimeout   = 500 * time.Millisecond
)

var errStaleSnapshot = errors.New("product changed while reading")

// NewClient создаёт Redis-клиент и проверяет соединение.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Option настраивает ProductRepository.
type Option func(*ProductRepository)

// WithLogger задаёт логгер декоратора.
func WithLogger(logger *log.Entry) Option {
	return func(r *ProductRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithKeyPrefix меняет префикс ключей, например для изоляции окружений.
func WithKeyPrefix(prefix string) Option {
	return func(r *ProductRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// ProductRepository кэширует GetByID поверх любого domain.ProductRepository.
// Мутации инвалидируют ключ товара. Недоступность Redis не ломает чтение:
// запрос уходит в нижний репозиторий, а в лог пишется предупреждение.
type ProductRepository struct {
	next   domain.ProductRepository
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *log.Entry
}

// NewProductRepository оборачивает next read-through кэшем.
func NewProductRepository(next domain.ProductRepository, client redis.UniversalClient, ttl time.Duration, opts ...Option) *ProductRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	r := &ProductRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: defaultKeyPrefix,
		logger: log.WithFields(log.Fields{"component": "product-cache", "layer": "storage"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ProductRepository) GetAll() ([]domain.Product, error) {
	return r.next.GetAll()
}

func (r *ProductRepository) GetByID(id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	key := r.key(id)
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product domain.Product
		if err := json.Unmarshal(raw, &product); err == nil {
			return product, nil
		}
		r.logger.WithField("product_id", id).Warn("dropping corrupted cache entry")
		r.invalidate(id)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.WithError(err).WithField("product_id", id).Warn("redis get failed, reading through")
	}

	// Поколение читается до нижнего репозитория: если между чтением и записью
	// в кеш прошла инвалидация, снимок устарел и в кеш не попадает.
	generation, genErr := r.generation(ctx, id)

	product, err := r.next.GetByID(id)
	if err != nil {
		return domain.Product{}, err
	}
	if genErr == nil {
		r.fill(id, generation, product)
	}
	return product, nil
}

// fill кладёт товар в кеш, только если поколение ключа не изменилось.
// WATCH обрывает транзакцию, если инвалидация успела между проверкой и SET.
func (r *ProductRepository) fill(id int64, generation string, product domain.Product) {
	payload, err := json.Marshal(product)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	entry := r.logger.WithField("product_id", id)
	genKey := r.generationKey(id)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key(id), payload, r.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		entry.Debug("skipping cache fill for invalidated product")
	default:
		entry.WithError(err).Warn("redis set failed")
	}
}

func (r *ProductRepository) generation(ctx context.Context, id int64) (string, error) {
	value, err := r.client.Get(ctx, r.generationKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		r.logger.WithError(err).WithField("product_id", id).Warn("redis generation read failed, cache fill skipped")
	}
	return value, err
}

func (r *ProductRepository) GetByCategory(category string) ([]domain.Product, error) {
	return r.next.GetByCategory(category)
}

func (r *ProductRepository) Search(term string) ([]domain.Product, error) {
	return r.next.Search(term)
}

func (r *ProductRepository) Create(product domain.Product) (int64, error) {
	return r.next.Create(product)
}

func (r *ProductRepository) Update(product domain.Product) (bool, error) {
	ok, err := r.next.Update(product)
	if err == nil && ok {
		r.invalidate(product.ID)
	}
	return ok, err
}

func (r *ProductRepository) Deactivate(id int64) (bool, error) {
	ok, err := r.next.Deactivate(id)
	if err == nil && ok {
		r.invalidate(id)
	}
	return ok, err
}

func (r *ProductRepository) UpdateStock(id int64, quantity int) (bool, error) {
	ok, err := r.next.UpdateStock(id, quantity)
	if err == nil && ok {
		r.invalidate(id)
	}
	return ok, err
}

// invalidate сдвигает поколение ключа и удаляет запись одной транзакцией.
func (r *ProductRepository) invalidate(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.generationKey(id))
		pipe.Del(ctx, r.key(id))
		return nil
	})
	if err != nil {
		// Запись доживёт до истечения TTL.
		r.logger.WithError(err).WithField("product_id", id).Warn("redis invalidate failed")
	}
}

func (r *ProductRepository) key(id int64) string {
	return r.prefix + strconv.FormatInt(id, 10)
}

func (r *ProductRepository) generationKey(id int64) string {
	return r.key(id) + ":gen"
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
