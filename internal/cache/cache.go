// Package cache stores derived read views in Redis and drops them after the
// records they are built from change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portfolio-workers/internal/common/logger"
	"portfolio-workers/internal/common/metrics"
)

const (
	workQueuePrefix = "workqueue:"
	gatewayPrefix   = "gateway:"

	generationSuffix = ":gen"
	// generationTTL must outlive the slowest view build.
	generationTTL = 24 * time.Hour
)

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds ARGV[1].
// A missing generation compares as the empty string.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if (gen or '') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func generationKey(key string) string {
	return key + generationSuffix
}

func WorkQueueKey(staffID string) string {
	return workQueuePrefix + staffID
}

func GatewayKey(studentID, qualificationID string) string {
	return fmt.Sprintf("%s%s:%s", gatewayPrefix, studentID, qualificationID)
}

// ViewCache is a JSON view store. A nil client turns every call into a miss.
type ViewCache struct {
	client *redis.Client
	logger logger.Logger
}

func NewViewCache(client *redis.Client, log logger.Logger) *ViewCache {
	return &ViewCache{client: client, logger: logger.ForComponent(log, "view-cache")}
}

// Get decodes the cached value into dest and reports whether it was found.
// Read or decode failures count as misses.
func (c *ViewCache) Get(ctx context.Context, view, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		metrics.CacheOperations.WithLabelValues(view, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.logger.Warn("cache entry undecodable", map[string]interface{}{"key": key, "error": err.Error()})
		metrics.CacheOperations.WithLabelValues(view, "miss").Inc()
		return false
	}
	metrics.CacheOperations.WithLabelValues(view, "hit").Inc()
	return true
}

func (c *ViewCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Generation is the invalidation count of a key, observed before the view
// stored under it is built.
type Generation struct {
	key   string
	value string
	ok    bool
}

// Generation reads the current generation of key. Call it before loading
// the records a view is derived from.
func (c *ViewCache) Generation(ctx context.Context, key string) Generation {
	if c == nil || c.client == nil {
		return Generation{key: key}
	}
	val, err := c.client.Get(ctx, generationKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return Generation{key: key, ok: true}
	case err != nil:
		c.logger.Warn("cache generation read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return Generation{key: key}
	}
	return Generation{key: key, value: val, ok: true}
}

// SetAt stores value only if no invalidation ran since gen was read. A view
// built from records read before a commit is dropped instead of outliving
// that commit's invalidation.
func (c *ViewCache) SetAt(ctx context.Context, gen Generation, value interface{}, ttl time.Duration) bool {
	if c == nil || c.client == nil || ttl <= 0 || !gen.ok {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{gen.key, generationKey(gen.key)},
		gen.value, data, ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": gen.key, "error": err.Error()})
		return false
	}
	if stored == 0 {
		c.logger.Debug("cache write skipped after invalidation", map[string]interface{}{"key": gen.key})
		return false
	}
	return true
}

// Delete bumps the generation of every key and then removes it, so a
// concurrent SetAt holding an older generation cannot restore the entry.
func (c *ViewCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Incr(ctx, generationKey(key))
		pipe.Expire(ctx, generationKey(key), generationTTL)
	}
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete cached views: %w", err)
	}
	return nil
}
