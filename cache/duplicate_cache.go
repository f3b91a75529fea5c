package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"samplecrate/model"
)

// scanTTL bounds how long a scan result may be served without a re-scan.
const scanTTL = 10 * time.Minute

// ScanResult is a cached duplicate-group fetch.
type ScanResult struct {
	Total     int                    `json:"total"`
	Groups    []model.DuplicateGroup `json:"groups"`
	ScannedAt int64                  `json:"scannedAt"` // unix millis
}

// GetDuplicateGroupsKey generates the Redis key for a user's scan cache.
func GetDuplicateGroupsKey(userID int64) string {
	return fmt.Sprintf("dedup:groups:%d", userID)
}

// GetScanResult returns the cached scan for a user, or (nil, nil) on a miss.
func GetScanResult(ctx context.Context, userID int64) (*ScanResult, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	raw, err := RedisClient.Get(ctx, GetDuplicateGroupsKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scan cache: %w", err)
	}

	var result ScanResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scan cache: %w", err)
	}
	return &result, nil
}

// SetScanResult stores a scan result for a user.
func SetScanResult(ctx context.Context, userID int64, result *ScanResult) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan cache: %w", err)
	}
	if err := RedisClient.Set(ctx, GetDuplicateGroupsKey(userID), raw, scanTTL).Err(); err != nil {
		return fmt.Errorf("failed to set scan cache: %w", err)
	}
	return nil
}

// InvalidateScanResult drops the cached scan so the next fetch no longer
// reports deleted samples or now-smaller groups.
func InvalidateScanResult(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Del(ctx, GetDuplicateGroupsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate scan cache: %w", err)
	}
	return nil
}
