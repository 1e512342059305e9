package textrisk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geopulse:textrisk:"

// Cache is the subset of redis.Cmdable the verdict cache needs.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedLLM memoizes LLM verdicts by text hash. Cache faults are logged and
// bypassed; they never fail a classification.
type CachedLLM struct {
	next   LLM
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedLLM wraps next. It returns next unchanged when either next or cache
// is nil.
func NewCachedLLM(next LLM, cache Cache, ttl time.Duration, logger *slog.Logger) LLM {
	if next == nil || cache == nil {
		return next
	}
	return &CachedLLM{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedLLM) Analyze(ctx context.Context, text string) (LLMVerdict, error) {
	key := cacheKey(text)

	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v LLMVerdict
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return v, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached verdict", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "verdict cache read failed", "error", err)
	}

	v, err := c.next.Analyze(ctx, text)
	if err != nil {
		return LLMVerdict{}, err
	}

	payload, err := json.Marshal(v)
	if err == nil {
		err = c.cache.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.WarnContext(ctx, "verdict cache write failed", "error", err)
	}
	return v, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
