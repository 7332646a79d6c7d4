package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPinger exposes a redis client as a health check.
type RedisPinger struct {
	Client redis.UniversalClient
}

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
