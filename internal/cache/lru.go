package cache

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

const DefaultLRUSize = 256

// LRUCache holds encoded courses so callers never share a mutable value.
type LRUCache struct {
	log   *logger.Logger
	inner *lru.Cache[string, []byte]
}

func NewLRU(size int, log *logger.Logger) (*LRUCache, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	inner, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{log: log.With("service", "LRUCourseCache"), inner: inner}, nil
}

func (c *LRUCache) Get(ctx context.Context, id string) (*domain.Course, bool, error) {
	raw, ok := c.inner.Get(id)
	if !ok {
		return nil, false, nil
	}
	course, err := decode(raw)
	if err != nil {
		c.inner.Remove(id)
		return nil, false, err
	}
	return course, true, nil
}

func (c *LRUCache) Set(ctx context.Context, course *domain.Course) error {
	if course == nil || course.ID == "" {
		return errors.New("cache: course id required")
	}
	raw, err := encode(course)
	if err != nil {
		return err
	}
	c.inner.Add(course.ID, raw)
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, id string) error {
	c.inner.Remove(id)
	return nil
}
