// Package rdx holds the Redis-backed account details cache and the
// invalidation port that cart, address, profile and checkout mutations call.
package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"shophub/globals"

	"github.com/redis/go-redis/v9"
)

// DetailsTTL is how long an account details view stays cached.
const DetailsTTL = 10 * time.Minute

// Invalidator drops the cached details view for an account. Mutations call it
// synchronously, after their write commits and before they return.
type Invalidator interface {
	Invalidate(ctx context.Context, email string) error
}

// Cache is the read-through cache consumed by the details view. Every
// Invalidate bumps the email's generation; a view built under an older
// generation is never stored.
type Cache interface {
	Invalidator
	// Get decodes the cached entry into v and reports whether one existed.
	Get(ctx context.Context, email string, v any) (bool, error)
	// Generation returns the current generation for email. Read it before
	// building the view that is later passed to Set.
	Generation(ctx context.Context, email string) (int64, error)
	// Set stores v unless email was invalidated since gen was read.
	Set(ctx context.Context, email string, gen int64, v any) error
}

// Evict invalidates email's entry and logs a failure instead of returning it.
func Evict(ctx context.Context, inv Invalidator, email string) {
	if inv == nil || email == "" {
		return
	}
	if err := inv.Invalidate(ctx, email); err != nil {
		log.Printf("[Cache] failed to invalidate details for %s: %v", email, err)
	}
}

func detailsKey(email string) string {
	return globals.DetailsCachePrefix + email
}

func generationKey(email string) string {
	return globals.DetailsCachePrefix + "gen:" + email
}

// generationTTL outlives any view build, so a generation key never expires
// between Generation and Set.
const generationTTL = 24 * time.Hour

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	log.Printf("Connected to Redis at %s", addr)
	return conn, nil
}

// RedisCache stores JSON-encoded views under userDetails_v2:<email>.
type RedisCache struct {
	conn *redis.Client
	ttl  time.Duration
}

func NewRedisCache(conn *redis.Client) *RedisCache {
	return &RedisCache{conn: conn, ttl: DetailsTTL}
}

func (c *RedisCache) Get(ctx context.Context, email string, v any) (bool, error) {
	raw, err := c.conn.Get(ctx, detailsKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode cached details: %w", err)
	}
	return true, nil
}

func (c *RedisCache) Generation(ctx context.Context, email string) (int64, error) {
	gen, err := c.conn.Get(ctx, generationKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set writes under WATCH on the generation key, so an Invalidate that lands
// between the check and the write aborts the transaction.
func (c *RedisCache) Set(ctx context.Context, email string, gen int64, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	genKey := generationKey(email)
	err = c.conn.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, detailsKey(email), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, email string) error {
	_, err := c.conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(email))
		pipe.Expire(ctx, generationKey(email), generationTTL)
		pipe.Del(ctx, detailsKey(email))
		return nil
	})
	return err
}
