package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	productKeyPrefix = "product:"
	productListKey   = "products:all"
)

// Client is the Redis-backed product cache and cross-instance lock.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client. ttl bounds how stale cached product
// reads may get.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetProducts returns the cached product list, with ok=false on a miss.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, productListKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false, fmt.Errorf("corrupt product list cache: %w", err)
	}
	return products, true, nil
}

// SetProducts caches the product list.
func (c *Client) SetProducts(ctx context.Context, products []models.Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productListKey, raw, c.ttl).Err()
}

// GetProduct returns a cached product, with ok=false on a miss.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*models.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, productKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, false, fmt.Errorf("corrupt product cache: %w", err)
	}
	return &product, true, nil
}

// SetProduct caches a single product.
func (c *Client) SetProduct(ctx context.Context, product *models.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(product.ID), raw, c.ttl).Err()
}

// InvalidateProducts drops cached entries for the given products plus the
// list key. Called after checkout commits change stock levels.
func (c *Client) InvalidateProducts(ctx context.Context, productIDs []int64) error {
	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, productListKey)
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

func productKey(id int64) string {
	return fmt.Sprintf("%s%d", productKeyPrefix, id)
}
