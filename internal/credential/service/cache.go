package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cpdtrack/internal/credential/models"
	"cpdtrack/internal/platform/config"
	id "cpdtrack/pkg/domain"
)

// RedisCache caches resolved rule packs keyed by (credential, date bucket).
// Entries are invalidated eagerly on every rule pack write and expire after
// RulePackCacheTTL as a backstop, so a resolution never outlives an
// administrator's change by more than the TTL even if invalidation is missed.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisCache{client: client, ttl: config.RulePackCacheTTL, logger: logger}
}

func cacheKey(credentialID id.CredentialID, day time.Time) string {
	return "rulepack:" + credentialID.String() + ":" + day.UTC().Format("2006-01-02")
}

func (c *RedisCache) Get(ctx context.Context, credentialID id.CredentialID, day time.Time) (*models.RulePack, bool) {
	raw, err := c.client.Get(ctx, cacheKey(credentialID, day)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "rulepack cache read failed", "error", err)
		}
		return nil, false
	}
	var pack models.RulePack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return nil, false
	}
	return &pack, true
}

func (c *RedisCache) Set(ctx context.Context, credentialID id.CredentialID, day time.Time, pack *models.RulePack) {
	raw, err := json.Marshal(pack)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(credentialID, day), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "rulepack cache write failed", "error", err)
	}
}

// Invalidate removes every cached date bucket for the credential.
func (c *RedisCache) Invalidate(ctx context.Context, credentialID id.CredentialID) {
	pattern := "rulepack:" + credentialID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WarnContext(ctx, "rulepack cache invalidation failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WarnContext(ctx, "rulepack cache scan failed", "error", err)
	}
}
