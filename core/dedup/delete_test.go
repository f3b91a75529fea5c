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

type stubDeleter struct {
	mu      sync.Mutex
	calls   [][]int64
	failErr error
	block   chan struct{} // when set, BatchDelete waits until closed
	started chan struct{} // signalled once BatchDelete begins
}

func (d *stubDeleter) BatchDelete(ctx context.Context, userID int64, ids []int64) error {
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		return d.failErr
	}
	d.calls = append(d.calls, append([]int64(nil), ids...))
	return nil
}

type stubInvalidator struct {
	mu       sync.Mutex
	groups   int
	listings int
}

func (i *stubInvalidator) InvalidateDuplicateGroups(ctx context.Context, userID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.groups++
	return nil
}

func (i *stubInvalidator) InvalidateSampleListing(ctx context.Context, userID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listings++
	return nil
}

func decisionWithTarget(pairID string, keepID, dupID int64, target *int64) model.DuplicatePairDecision {
	return model.DuplicatePairDecision{
		DuplicatePair: model.DuplicatePair{
			ID:              pairID,
			KeepSample:      model.Sample{ID: keepID},
			DuplicateSample: model.Sample{ID: dupID},
		},
		SelectedDeleteSampleID: target,
	}
}

func TestIDsToDeleteUnion(t *testing.T) {
	// Sample 2 is the chosen target of two pairs (duplicate under two match
	// types at once); it must appear exactly once, in first-seen order.
	decisions := []model.DuplicatePairDecision{
		decisionWithTarget("0:0:1:2", 1, 2, idPtr(2)),
		decisionWithTarget("1:0:3:2", 3, 2, idPtr(2)),
		decisionWithTarget("2:0:4:5", 4, 5, idPtr(5)),
		decisionWithTarget("3:0:6:7", 6, 7, nil),
	}
	assert.Equal(t, []int64{2, 5}, IDsToDelete(decisions))
}

func TestIDsToDeleteEmpty(t *testing.T) {
	assert.Empty(t, IDsToDelete(nil))
	assert.Empty(t, IDsToDelete([]model.DuplicatePairDecision{
		decisionWithTarget("0:0:1:2", 1, 2, nil),
	}))
}

func TestExecutorInvalidatesBothCaches(t *testing.T) {
	deleter := &stubDeleter{}
	invalidator := &stubInvalidator{}
	exec := NewExecutor(deleter, invalidator)

	err := exec.Execute(context.Background(), 1, []int64{2, 5})
	require.NoError(t, err)
	require.Len(t, deleter.calls, 1)
	assert.Equal(t, []int64{2, 5}, deleter.calls[0])
	assert.Equal(t, 1, invalidator.groups)
	assert.Equal(t, 1, invalidator.listings)
}

func TestExecutorNoCallForEmptyList(t *testing.T) {
	deleter := &stubDeleter{}
	invalidator := &stubInvalidator{}
	exec := NewExecutor(deleter, invalidator)

	require.NoError(t, exec.Execute(context.Background(), 1, nil))
	assert.Empty(t, deleter.calls)
	assert.Zero(t, invalidator.groups)
	assert.Zero(t, invalidator.listings)
}

func TestExecutorFailureSkipsInvalidation(t *testing.T) {
	deleter := &stubDeleter{failErr: errors.New("mysql went away")}
	invalidator := &stubInvalidator{}
	exec := NewExecutor(deleter, invalidator)

	err := exec.Execute(context.Background(), 1, []int64{2})
	require.Error(t, err)
	assert.Zero(t, invalidator.groups)
	assert.Zero(t, invalidator.listings)
}
