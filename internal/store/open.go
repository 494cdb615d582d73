package store

import (
	"context"

	"github.com/finops-claw-gang/eventcheck-go/internal/config"
)

// Open returns the Redis store when cfg.RedisAddr is set and reachable, or an
// in-memory store otherwise. Both expire entries after cfg.ResultTTL. The
// returned close func releases the connection.
func Open(ctx context.Context, cfg config.Config) (Store, func() error, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(cfg.ResultTTL), func() error { return nil }, nil
	}
	r := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ResultTTL)
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, nil, err
	}
	return r, r.Close, nil
}
