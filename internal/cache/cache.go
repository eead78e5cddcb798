// Package cache keeps recently read courses out of the database.
package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yungbote/lectureplanner-backend/internal/config"
	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

// CourseCache stores whole courses keyed by course id. A miss is
// (nil, false, nil); errors are reserved for backend failures.
type CourseCache interface {
	Get(ctx context.Context, id string) (*domain.Course, bool, error)
	Set(ctx context.Context, c *domain.Course) error
	Delete(ctx context.Context, id string) error
}

// New returns a redis cache when an address is configured and an in-process
// LRU otherwise. A redis that cannot be reached at startup also falls back to
// the LRU.
func New(ctx context.Context, rcfg config.RedisConfig, ccfg config.CacheConfig, log *logger.Logger) (CourseCache, error) {
	if strings.TrimSpace(rcfg.Addr) != "" {
		rc, err := NewRedis(ctx, rcfg, log)
		if err == nil {
			return rc, nil
		}
		log.Warn("redis unavailable, using in-process cache", "addr", rcfg.Addr, "error", err)
	}
	return NewLRU(ccfg.Size, log)
}

func encode(c *domain.Course) ([]byte, error) { return json.Marshal(c) }

func decode(raw []byte) (*domain.Course, error) {
	var c domain.Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
