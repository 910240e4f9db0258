package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/cart"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb     *redis.Client
	cartTTL time.Duration
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int, cartTTL time.Duration) (*Client, error) {
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

	return &Client{rdb: rdb, cartTTL: cartTTL}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

// Load implements cart.Storage. A missing key yields a nil slice.
func (c *Client) Load(ctx context.Context, sessionID string) ([]cart.Item, error) {
	data, err := c.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []cart.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("corrupt cart payload: %w", err)
	}
	return items, nil
}

// Save implements cart.Storage. The TTL restarts on every write, so an
// abandoned cart eventually expires.
func (c *Client) Save(ctx context.Context, sessionID string, items []cart.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cartKey(sessionID), data, c.cartTTL).Err()
}

// Delete implements cart.Storage.
func (c *Client) Delete(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, cartKey(sessionID)).Err()
}

func paymentSeenKey(orderID string) string {
	return fmt.Sprintf("payment-seen:%s", orderID)
}

// PaymentSeen reports whether a settled confirmation has been recorded for
// the order. A missing key is not proof of anything; the database guard
// remains authoritative.
func (c *Client) PaymentSeen(ctx context.Context, orderID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, paymentSeenKey(orderID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPaymentSeen records a settled payment confirmation for the given order.
// It returns false when the marker already existed. Callers must only write
// the marker after the database's own check-and-set has succeeded; a marker
// without a matching database write would suppress the provider's retries
// for the whole TTL.
func (c *Client) MarkPaymentSeen(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, paymentSeenKey(orderID), "1", ttl).Result()
}
