package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "sess:"
	redisOpTimeout = 3 * time.Second
	redisScanBatch = 100
)

// Redis keeps sessions as plain keys with a TTL so Redis does the expiry.
type Redis struct {
	rdb *redis.Client
}

var _ fiber.Storage = (*Redis)(nil)

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// NewRedisURL parses a redis:// URL, pings the server and returns the storage.
func NewRedisURL(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedis(rdb), nil
}

func redisKey(key string) string { return redisKeyPrefix + key }

func (s *Redis) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	b, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (s *Redis) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.rdb.Set(ctx, redisKey(key), val, exp).Err()
}

func (s *Redis) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.rdb.Del(ctx, redisKey(key)).Err()
}

// Reset removes every session key. Other keys in the database are left alone.
func (s *Redis) Reset() error {
	ctx := context.Background()
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", redisScanBatch).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanBatch {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *Redis) Close() error {
	return s.rdb.Close()
}
