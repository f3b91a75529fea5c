package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplecrate/model"
)

type stubFetcher struct {
	mu      sync.Mutex
	groups  []model.DuplicateGroup
	failErr error
	block   chan struct{}
	started chan struct{}
}

func (f *stubFetcher) FetchDuplicateGroups(ctx context.Context, userID int64) (int, []model.DuplicateGroup, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, nil, f.failErr
	}
	return len(f.groups), f.groups, nil
}

func newTestResolver(fetcher *stubFetcher, deleter *stubDeleter) *Resolver {
	return NewResolver(1, fetcher, NewExecutor(deleter, &stubInvalidator{}))
}

func twoSampleGroups() []model.DuplicateGroup {
	return []model.DuplicateGroup{
		exactGroup(
			model.Sample{ID: 1, CreatedAt: date("2024-01-01")},
			model.Sample{ID: 2, CreatedAt: date("2024-06-01")},
		),
	}
}

func TestResolverScanAndDecisions(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	r := newTestResolver(fetcher, &stubDeleter{})

	summary, err := r.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalGroups)
	assert.Equal(t, 1, summary.TotalPairs)
	assert.Equal(t, 1, summary.MarkedForDeletion)

	decisions := r.Decisions()
	require.Len(t, decisions, 1)
	assert.Equal(t, int64(1), decisions[0].KeepSample.ID)
}

func TestResolverScanGating(t *testing.T) {
	fetcher := &stubFetcher{
		groups:  twoSampleGroups(),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	r := newTestResolver(fetcher, &stubDeleter{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Scan(context.Background())
		done <- err
	}()
	<-fetcher.started

	// A second scan while one is in flight is refused, not raced.
	_, err := r.Scan(context.Background())
	assert.ErrorIs(t, err, ErrScanInFlight)

	close(fetcher.block)
	require.NoError(t, <-done)

	// After completion scanning is allowed again.
	fetcher.block = nil
	fetcher.started = nil
	_, err = r.Scan(context.Background())
	assert.NoError(t, err)
}

func TestResolverScanFailureKeepsPreviousState(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	r := newTestResolver(fetcher, &stubDeleter{})

	_, err := r.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, r.Decisions(), 1)

	fetcher.mu.Lock()
	fetcher.failErr = errors.New("scan backend down")
	fetcher.mu.Unlock()

	_, err = r.Scan(context.Background())
	require.Error(t, err)
	// Previous decisions remain displayed.
	assert.Len(t, r.Decisions(), 1)
}

func TestResolverPolicyChangeRecomputesAndPrunes(t *testing.T) {
	fetcher := &stubFetcher{groups: []model.DuplicateGroup{
		exactGroup(
			model.Sample{ID: 1, CreatedAt: date("2024-01-01")},
			model.Sample{ID: 2, CreatedAt: date("2024-06-01")},
		),
		{MatchType: model.MatchFile, HashSimilarity: 1.0, Samples: []model.Sample{
			{ID: 3, CreatedAt: date("2024-01-01")},
			{ID: 4, CreatedAt: date("2024-06-01")},
		}},
	}}
	r := newTestResolver(fetcher, &stubDeleter{})
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	decisions := r.Decisions()
	require.Len(t, decisions, 2)
	filePairID := decisions[1].ID
	require.NoError(t, r.SetOverride(filePairID, nil))
	assert.Equal(t, 1, r.OverrideCount())

	// Filtering to exact-only drops the file pair; its override is pruned,
	// never silently kept.
	policy := r.Policy()
	policy.MatchTypeFilter = model.MatchFilterExact
	require.NoError(t, r.SetPolicy(policy))
	assert.Len(t, r.Decisions(), 1)
	assert.Equal(t, 0, r.OverrideCount())
}

func TestResolverSetOverrideValidation(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	r := newTestResolver(fetcher, &stubDeleter{})
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, r.SetOverride("9:9:9:9", nil), ErrUnknownPair)

	pairID := r.Decisions()[0].ID
	assert.ErrorIs(t, r.SetOverride(pairID, idPtr(777)), ErrInvalidOverride)

	// Overriding to the default leaves the map empty and the decision
	// non-manual.
	require.NoError(t, r.SetOverride(pairID, idPtr(2)))
	assert.Equal(t, 0, r.OverrideCount())
	assert.False(t, r.Decisions()[0].IsManualChoice)

	require.NoError(t, r.SetOverride(pairID, idPtr(1)))
	assert.Equal(t, 1, r.OverrideCount())
	assert.True(t, r.Decisions()[0].IsManualChoice)

	r.ClearPairOverride(pairID)
	assert.Equal(t, 0, r.OverrideCount())
}

func TestResolverDeleteFlow(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	deleter := &stubDeleter{}
	r := newTestResolver(fetcher, deleter)
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	r.Select([]int64{1, 2}, 2)

	ids, err := r.Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
	require.Len(t, deleter.calls, 1)

	// Deleted ids leave the local selection; the focused sample resets.
	assert.Equal(t, []int64{1}, r.Selection())
	assert.Equal(t, int64(0), r.FocusedSample())
}

func TestResolverDeleteFailureLeavesStateUntouched(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	deleter := &stubDeleter{failErr: errors.New("delete backend down")}
	r := newTestResolver(fetcher, deleter)
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	pairID := r.Decisions()[0].ID
	require.NoError(t, r.SetOverride(pairID, idPtr(1)))
	r.Select([]int64{1, 2}, 1)

	_, err = r.Delete(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, r.OverrideCount())
	assert.Equal(t, []int64{1, 2}, r.Selection())
	assert.Equal(t, int64(1), r.FocusedSample())
}

func TestResolverDeleteGating(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	deleter := &stubDeleter{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	r := newTestResolver(fetcher, deleter)
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Delete(context.Background())
		done <- err
	}()
	<-deleter.started

	_, err = r.Delete(context.Background())
	assert.ErrorIs(t, err, ErrDeleteInFlight)

	close(deleter.block)
	require.NoError(t, <-done)
}

func TestResolverDeleteNothingMarked(t *testing.T) {
	fetcher := &stubFetcher{groups: []model.DuplicateGroup{
		exactGroup(
			model.Sample{ID: 1, Favorite: true},
			model.Sample{ID: 2, Favorite: true},
		),
	}}
	deleter := &stubDeleter{}
	r := newTestResolver(fetcher, deleter)
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	ids, err := r.Delete(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, deleter.calls)
}

func TestResolverModeRoundTrip(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	r := newTestResolver(fetcher, &stubDeleter{})
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	r.Select([]int64{1}, 1)
	r.EnterMode(ModeSmartRemove)
	assert.Equal(t, ModeSmartRemove, r.Mode())
	assert.Equal(t, []int64{2}, r.Targets(ModeSmartRemove))
	assert.Equal(t, []int64{1, 2}, r.Targets(ModeAllDuplicates))

	// No selection made while in the mode: the snapshot comes back.
	r.ExitMode()
	assert.Equal(t, []int64{1}, r.Selection())
	assert.Equal(t, int64(1), r.FocusedSample())

	// Exiting again, or without groups, never fails.
	r.ExitMode()
}

func TestResolverModeKeepsNewSelection(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	r := newTestResolver(fetcher, &stubDeleter{})
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	r.Select([]int64{1}, 1)
	r.EnterMode(ModeSmartRemove)
	r.Select([]int64{2}, 2)
	r.ExitMode()

	assert.Equal(t, []int64{2}, r.Selection())
	assert.Equal(t, int64(2), r.FocusedSample())
}

func TestResolverSummaryCounters(t *testing.T) {
	fetcher := &stubFetcher{groups: []model.DuplicateGroup{
		exactGroup(
			model.Sample{ID: 1, Favorite: true, CreatedAt: date("2024-01-01")},
			model.Sample{ID: 2, CreatedAt: date("2024-02-01")},
			model.Sample{ID: 3, CreatedAt: date("2024-03-01")},
		),
	}}
	r := newTestResolver(fetcher, &stubDeleter{})
	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	pairID := r.Decisions()[0].ID
	require.NoError(t, r.SetOverride(pairID, nil))

	summary := r.Summary()
	assert.Equal(t, 1, summary.TotalGroups)
	assert.Equal(t, 2, summary.TotalPairs)
	assert.Equal(t, 1, summary.MarkedForDeletion)
	assert.Equal(t, 1, summary.PairsMarked)
	assert.Equal(t, 1, summary.ManualOverrides)
	assert.Equal(t, 1, summary.ProtectedFavorites)
}

func TestResolverOnChangeNotifies(t *testing.T) {
	fetcher := &stubFetcher{groups: twoSampleGroups()}
	r := newTestResolver(fetcher, &stubDeleter{})

	var mu sync.Mutex
	var notifications []Summary
	r.SetOnChange(func(s Summary) {
		mu.Lock()
		notifications = append(notifications, s)
		mu.Unlock()
	})

	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, notifications)
	assert.Equal(t, 1, notifications[len(notifications)-1].TotalPairs)
}
