package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lectureplanner-backend/internal/config"
	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

// kv is the subset of *goredis.Client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

type RedisCache struct {
	log    *logger.Logger
	rdb    kv
	closer func() error
	prefix string
	ttl    time.Duration
}

func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	c := newRedisCache(rdb, cfg.Prefix, cfg.TTL, log)
	c.closer = rdb.Close
	return c, nil
}

func newRedisCache(rdb kv, prefix string, ttl time.Duration, log *logger.Logger) *RedisCache {
	if prefix == "" {
		prefix = "lp:course:"
	}
	return &RedisCache{
		log:    log.With("service", "RedisCourseCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RedisCache) key(id string) string { return c.prefix + id }

func (c *RedisCache) Get(ctx context.Context, id string) (*domain.Course, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	course, err := decode(raw)
	if err != nil {
		c.log.Warn("dropping undecodable cache entry", "course_id", id, "error", err)
		_ = c.rdb.Del(ctx, c.key(id)).Err()
		return nil, false, nil
	}
	return course, true, nil
}

func (c *RedisCache) Set(ctx context.Context, course *domain.Course) error {
	if course == nil || course.ID == "" {
		return errors.New("cache: course id required")
	}
	raw, err := encode(course)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(course.ID), raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}

func (c *RedisCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
