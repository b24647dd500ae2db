package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

var (
	// ErrCacheMiss возвращается из Get, если снимка корзины нет
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale возвращается из SetIfVersion, если корзину инвалидировали
	// после чтения версии
	ErrStale = errors.New("cart changed since read")
)

const defaultTTL = 15 * time.Minute

// CartCache хранит JSON-снимки корзин в Redis.
//
// Каждая инвалидация увеличивает счётчик версии корзины. Снимок пишется только
// если версия, под которой он прочитан, всё ещё текущая: читатель, гонявшийся
// с оформлением или изменением корзины, не вернёт старое содержимое.
type CartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewCartCache(client *redis.Client, ttl time.Duration) *CartCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CartCache{client: client, baseTTL: ttl}
}

func (c *CartCache) Get(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

// Version возвращает счётчик инвалидаций корзины, 0 если их не было
func (c *CartCache) Version(ctx context.Context, id uuid.UUID) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

// SetIfVersion сохраняет снимок, если с момента чтения version корзину
// не инвалидировали
func (c *CartCache) SetIfVersion(ctx context.Context, cart *domain.Cart, version int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	// spread expiry so snapshots written together do not expire together
	ttl := c.baseTTL + time.Duration(rand.Int63n(int64(c.baseTTL/5)+1))
	vkey := versionKey(cart.ID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(cart.ID), data, ttl)
			return nil
		})
		return err
	}, vkey)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return ErrStale
	case errors.Is(err, ErrStale):
		return err
	case err != nil:
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete удаляет снимок и увеличивает версию. Счётчик живёт дольше любого
// снимка, поэтому отложенный SetIfVersion всегда видит увеличение.
func (c *CartCache) Delete(ctx context.Context, id uuid.UUID) error {
	vkey := versionKey(id)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, cacheKey(id))
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, 2*c.baseTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// OrderCreated удаляет снимок только что оформленной корзины
func (c *CartCache) OrderCreated(ctx context.Context, ev domain.OrderCreated) error {
	return c.Delete(ctx, ev.CartID)
}

func cacheKey(id uuid.UUID) string {
	return "cart:" + id.String()
}

func versionKey(id uuid.UUID) string {
	return "cart:" + id.String() + ":v"
}
