package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"samplecrate/model"
)

const listingTTL = 5 * time.Minute

// GetListingKey generates the Redis key for a user's sample listing cache.
func GetListingKey(userID int64) string {
	return fmt.Sprintf("samples:listing:%d", userID)
}

// GetListing returns the cached sample listing, or (nil, nil) on a miss.
func GetListing(ctx context.Context, userID int64) ([]model.Sample, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	raw, err := RedisClient.Get(ctx, GetListingKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing cache: %w", err)
	}

	var samples []model.Sample
	if err := json.Unmarshal([]byte(raw), &samples); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing cache: %w", err)
	}
	return samples, nil
}

// SetListing stores a user's sample listing.
func SetListing(ctx context.Context, userID int64, samples []model.Sample) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	raw, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to marshal listing cache: %w", err)
	}
	if err := RedisClient.Set(ctx, GetListingKey(userID), raw, listingTTL).Err(); err != nil {
		return fmt.Errorf("failed to set listing cache: %w", err)
	}
	return nil
}

// InvalidateListing drops one user's cached listing.
func InvalidateListing(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Del(ctx, GetListingKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate listing cache: %w", err)
	}
	return nil
}

// InvalidateAllListings drops every cached listing. Used by the library
// directory watcher, which cannot attribute a file event to a single user.
func InvalidateAllListings(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	iter := RedisClient.Scan(ctx, 0, "samples:listing:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := RedisClient.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete listing key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan listing keys: %w", err)
	}
	return nil
}
