package channelstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis stores the channel id in a single key, for deployments where
// the filesystem is ephemeral.
type Redis struct {
	cli *redis.Client
	key string
}

func NewRedis(addr, key string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("channelstore: redis ping: %w", err)
	}
	if key == "" {
		key = "arbywatch:channel"
	}
	return &Redis{cli: cli, key: key}, nil
}

func (r *Redis) ChannelID(ctx context.Context) (int64, error) {
	res, err := r.cli.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotConfigured
	}
	if err != nil {
		return 0, fmt.Errorf("channelstore: redis get: %w", err)
	}
	id, err := strconv.ParseInt(res, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrNotConfigured
	}
	return id, nil
}

func (r *Redis) SetChannelID(ctx context.Context, id int64) error {
	if err := r.cli.Set(ctx, r.key, strconv.FormatInt(id, 10), 0).Err(); err != nil {
		return fmt.Errorf("channelstore: redis set: %w", err)
	}
	return nil
}

// Ping exposes connectivity for the health checker.
func (r *Redis) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}
