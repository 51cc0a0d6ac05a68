package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	commonlog "task_server/server/common/log"
)

// CachedTaskDirectory fronts a TaskDirectory with a short-lived Redis
// cache. Only positive hits are cached: a task that exists now will
// still exist in thirty seconds, but a miss must stay fresh so a newly
// created task is visible immediately. Cache errors fall through to the
// inner directory.
type CachedTaskDirectory struct {
	inner TaskDirectory
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedTaskDirectory(inner TaskDirectory, cache *redis.Client) *CachedTaskDirectory {
	return &CachedTaskDirectory{inner: inner, cache: cache, ttl: 30 * time.Second}
}

func (d *CachedTaskDirectory) Exists(ctx context.Context, taskID string) (bool, error) {
	key := "task_exists:" + taskID
	if _, err := d.cache.Get(ctx, key).Result(); err == nil {
		return true, nil
	} else if err != redis.Nil {
		commonlog.Debugf("task cache read %s: %v", key, err)
	}

	exists, err := d.inner.Exists(ctx, taskID)
	if err != nil {
		return false, err
	}
	if exists {
		if err := d.cache.Set(ctx, key, "1", d.ttl).Err(); err != nil {
			commonlog.Debugf("task cache write %s: %v", key, err)
		}
	}
	return exists, nil
}
