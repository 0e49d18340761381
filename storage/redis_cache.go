package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-bot/models"
	"rental-bot/utils"
)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// CachedListingStore keeps a Redis set of known detail URLs per search in
// front of another ListingStore. Postgres stays the source of truth; a Redis
// failure falls through to it.
type CachedListingStore struct {
	next   ListingStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *utils.Logger
}

func NewCachedListingStore(next ListingStore, rdb *redis.Client, ttl time.Duration, logger *utils.Logger) *CachedListingStore {
	return &CachedListingStore{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func knownKey(searchID int64) string {
	return fmt.Sprintf("rental-bot:known:%d", searchID)
}

func (c *CachedListingStore) KnownURLs(ctx context.Context, searchID int64, candidates []string) (map[string]struct{}, error) {
	if len(candidates) == 0 {
		return map[string]struct{}{}, nil
	}

	key := knownKey(searchID)
	members := make([]interface{}, len(candidates))
	for i, u := range candidates {
		members[i] = u
	}

	hits, err := c.rdb.SMIsMember(ctx, key, members...).Result()
	if err != nil {
		c.logger.Warn("[cache] SMISMEMBER %s failed, using store: %v", key, err)
		return c.next.KnownURLs(ctx, searchID, candidates)
	}

	known := make(map[string]struct{}, len(candidates))
	var misses []string
	for i, hit := range hits {
		if hit {
			known[candidates[i]] = struct{}{}
		} else {
			misses = append(misses, candidates[i])
		}
	}
	if len(misses) == 0 {
		return known, nil
	}

	fromStore, err := c.next.KnownURLs(ctx, searchID, misses)
	if err != nil {
		return nil, err
	}
	warm := make([]string, 0, len(fromStore))
	for u := range fromStore {
		known[u] = struct{}{}
		warm = append(warm, u)
	}
	c.remember(ctx, key, warm)
	return known, nil
}

func (c *CachedListingStore) SaveListings(ctx context.Context, searchID int64, listings []models.Listing) (int, error) {
	n, err := c.next.SaveListings(ctx, searchID, listings)
	if err != nil {
		return n, err
	}
	urls := make([]string, 0, len(listings))
	for _, l := range listings {
		urls = append(urls, l.DetailURL)
	}
	c.remember(ctx, knownKey(searchID), urls)
	return n, nil
}

// remember adds urls to the set at key. Failures are logged only.
func (c *CachedListingStore) remember(ctx context.Context, key string, urls []string) {
	if len(urls) == 0 {
		return
	}
	members := make([]interface{}, len(urls))
	for i, u := range urls {
		members[i] = u
	}

	pipe := c.rdb.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("[cache] SADD %s failed: %v", key, err)
	}
}
