package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	entryPrefix       = "eventcheck:comparison:"
	fingerprintPrefix = "eventcheck:fingerprint:"
)

// Redis is a Store backed by Redis. Entries and the fingerprint index expire after ttl.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis creates a store on the Redis server at addr. A ttl of zero keeps entries forever.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(rdb, ttl)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store: redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Save(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e, r.now)
	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("store: encode entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, entryPrefix+e.ID, data, r.ttl)
	if e.Fingerprint != "" {
		pipe.Set(ctx, fingerprintPrefix+e.Fingerprint, e.ID, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("store: redis save %s: %w", e.ID, err)
	}
	return e, nil
}

func (r *Redis) Get(ctx context.Context, id string) (Entry, error) {
	data, err := r.client.Get(ctx, entryPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("store: redis get %s: %w", id, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("store: decode entry %s: %w", id, err)
	}
	return e, nil
}

func (r *Redis) FindByFingerprint(ctx context.Context, fingerprint string) (Entry, error) {
	id, err := r.client.Get(ctx, fingerprintPrefix+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("store: redis fingerprint lookup: %w", err)
	}
	return r.Get(ctx, id)
}
