package dedup

import (
	"context"
	"fmt"
	"sync"

	"samplecrate/logger"
	"samplecrate/model"
)

// BatchDeleter performs the destructive batch delete. The engine only
// decides which ids, it never does I/O itself.
type BatchDeleter interface {
	BatchDelete(ctx context.Context, userID int64, ids []int64) error
}

// CacheInvalidator invalidates the derived caches after a successful delete
// so a future fetch no longer reports the deleted samples.
type CacheInvalidator interface {
	InvalidateDuplicateGroups(ctx context.Context, userID int64) error
	InvalidateSampleListing(ctx context.Context, userID int64) error
}

// IDsToDelete computes the deduplicated union of all non-nil selected
// deletion targets, in first-seen order. A sample id chosen by several
// pairs appears once.
func IDsToDelete(decisions []model.DuplicatePairDecision) []int64 {
	seen := make(map[int64]struct{}, len(decisions))
	ids := make([]int64, 0, len(decisions))
	for _, d := range decisions {
		if d.SelectedDeleteSampleID == nil {
			continue
		}
		id := *d.SelectedDeleteSampleID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Executor drives the batch delete and the cache invalidations that follow.
type Executor struct {
	deleter     BatchDeleter
	invalidator CacheInvalidator
}

// NewExecutor creates a deletion executor.
func NewExecutor(deleter BatchDeleter, invalidator CacheInvalidator) *Executor {
	return &Executor{deleter: deleter, invalidator: invalidator}
}

// Execute runs the batch delete for ids. On success the duplicate-group and
// sample-listing caches are invalidated; the two invalidations are
// independent and run concurrently. On failure nothing else happens and the
// error is returned to the caller, never retried silently.
func (e *Executor) Execute(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	if err := e.deleter.BatchDelete(ctx, userID, ids); err != nil {
		return fmt.Errorf("batch delete of %d samples failed: %w", len(ids), err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := e.invalidator.InvalidateDuplicateGroups(ctx, userID); err != nil {
			logger.Warn("failed to invalidate duplicate group cache",
				logger.Int64("userId", userID), logger.ErrorField(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := e.invalidator.InvalidateSampleListing(ctx, userID); err != nil {
			logger.Warn("failed to invalidate sample listing cache",
				logger.Int64("userId", userID), logger.ErrorField(err))
		}
	}()
	wg.Wait()

	return nil
}
