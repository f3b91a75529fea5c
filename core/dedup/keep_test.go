package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplecrate/model"
)

func TestPickKeepFavoriteProtectionWins(t *testing.T) {
	// Favorite protection beats the date strategy: the older favorite
	// survives even under "oldest" with a newer non-favorite present,
	// and survives under "newest" too.
	samples := []model.Sample{
		{ID: 1, Favorite: true, CreatedAt: date("2024-01-01")},
		{ID: 2, Favorite: false, CreatedAt: date("2024-06-01")},
	}

	for _, strategy := range []model.KeepStrategy{model.KeepOldest, model.KeepNewest} {
		policy := model.Policy{KeepStrategy: strategy, ProtectFavorites: true}
		keep := PickKeep(samples, policy)
		assert.Equal(t, int64(1), keep.ID, "strategy %s", strategy)
	}
}

func TestPickKeepHighestQuality(t *testing.T) {
	samples := []model.Sample{
		{ID: 1, Format: "wav", SampleRate: 44100, Channels: 2, CreatedAt: date("2024-01-01")},
		{ID: 2, Format: "wav", SampleRate: 96000, Channels: 2, CreatedAt: date("2024-06-01")},
	}
	policy := model.Policy{KeepStrategy: model.KeepHighestQuality}
	assert.Equal(t, int64(2), PickKeep(samples, policy).ID)
}

func TestPickKeepPreferLossless(t *testing.T) {
	samples := []model.Sample{
		{ID: 1, Format: "mp3", SampleRate: 192000, Channels: 2},
		{ID: 2, Format: "flac", SampleRate: 44100, Channels: 2},
		{ID: 3, Format: "wav", SampleRate: 48000, Channels: 2},
	}
	policy := model.Policy{KeepStrategy: model.KeepPreferLossless}
	// Both lossless candidates beat the mp3; quality breaks the tie.
	assert.Equal(t, int64(3), PickKeep(samples, policy).ID)
}

func TestPickKeepOldestAndNewest(t *testing.T) {
	samples := []model.Sample{
		{ID: 1, CreatedAt: date("2024-03-01")},
		{ID: 2, CreatedAt: date("2024-01-01")},
		{ID: 3, CreatedAt: date("2024-06-01")},
	}
	assert.Equal(t, int64(2), PickKeep(samples, model.Policy{KeepStrategy: model.KeepOldest}).ID)
	assert.Equal(t, int64(3), PickKeep(samples, model.Policy{KeepStrategy: model.KeepNewest}).ID)
}

func TestPickKeepPreferAssigned(t *testing.T) {
	samples := []model.Sample{
		{ID: 1, TagsCount: 0, FolderCount: 0, CreatedAt: date("2024-01-01")},
		{ID: 2, TagsCount: 2, FolderCount: 1, CreatedAt: date("2024-06-01")},
	}
	policy := model.Policy{KeepStrategy: model.KeepOldest, PreferAssigned: true}
	// Curation effort outranks the date strategy.
	assert.Equal(t, int64(2), PickKeep(samples, policy).ID)
}

func TestPickKeepIDTiebreak(t *testing.T) {
	// Fully identical attributes: lowest id wins, deterministically.
	samples := []model.Sample{
		{ID: 9, Format: "wav", SampleRate: 44100, Channels: 2, CreatedAt: date("2024-01-01")},
		{ID: 3, Format: "wav", SampleRate: 44100, Channels: 2, CreatedAt: date("2024-01-01")},
		{ID: 6, Format: "wav", SampleRate: 44100, Channels: 2, CreatedAt: date("2024-01-01")},
	}
	policy := model.Policy{KeepStrategy: model.KeepHighestQuality}
	for i := 0; i < 10; i++ {
		assert.Equal(t, int64(3), PickKeep(samples, policy).ID)
	}
}

func TestPickKeepEmptyInputSentinel(t *testing.T) {
	keep := PickKeep(nil, model.DefaultPolicy())
	require.LessOrEqual(t, keep.ID, int64(0))
}

func TestPickKeepDoesNotMutateInput(t *testing.T) {
	samples := []model.Sample{
		{ID: 2, CreatedAt: date("2024-06-01")},
		{ID: 1, CreatedAt: date("2024-01-01")},
	}
	PickKeep(samples, model.Policy{KeepStrategy: model.KeepOldest})
	assert.Equal(t, int64(2), samples[0].ID)
	assert.Equal(t, int64(1), samples[1].ID)
}
