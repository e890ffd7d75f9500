package kv

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/cursohub/cursohub/core"
)

const keyPrefix = "cursohub:"

type redisStore struct {
	client *redis.Client
}

var _ Store = (*redisStore)(nil)

// NewRedisStore connects to Redis and pings it once.
func NewRedisStore(ctx context.Context, conf *core.Config) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Save(ctx context.Context, name string, data []byte) error {
	return errors.Wrapf(s.client.Set(ctx, keyPrefix+name, data, 0).Err(), "saving %s", name)
}

func (s *redisStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+name).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	return data, errors.Wrapf(err, "loading %s", name)
}

func (s *redisStore) Delete(ctx context.Context, name string) error {
	return errors.Wrapf(s.client.Del(ctx, keyPrefix+name).Err(), "deleting %s", name)
}
