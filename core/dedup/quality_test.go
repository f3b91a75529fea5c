package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"samplecrate/model"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name   string
		sample model.Sample
		want   string
	}{
		{"explicit format", model.Sample{Format: "FLAC", FilePath: "kick.mp3"}, "flac"},
		{"whitespace format falls back", model.Sample{Format: "   ", FilePath: "kick.WAV"}, "wav"},
		{"extension from path", model.Sample{FilePath: "/lib/drums/Kick.Aiff"}, "aiff"},
		{"extension from name when no path", model.Sample{Name: "snare.ogg"}, "ogg"},
		{"no format at all", model.Sample{Name: "snare"}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOf(tt.sample))
		})
	}
}

func TestIsLossless(t *testing.T) {
	assert.True(t, IsLossless(model.Sample{Format: "wav"}))
	assert.True(t, IsLossless(model.Sample{FilePath: "x.flac"}))
	assert.True(t, IsLossless(model.Sample{FilePath: "x.aif"}))
	assert.True(t, IsLossless(model.Sample{FilePath: "x.aiff"}))
	assert.False(t, IsLossless(model.Sample{Format: "mp3"}))
	assert.False(t, IsLossless(model.Sample{Name: "x"}))
}

func TestQualityScoreLosslessDominates(t *testing.T) {
	// A lossless file at a modest rate must outrank any lossy file,
	// no matter how high the lossy sample rate is.
	lossless := model.Sample{Format: "wav", SampleRate: 22050, Channels: 1}
	lossy := model.Sample{Format: "mp3", SampleRate: 192000, Channels: 2}
	assert.Greater(t, QualityScore(lossless), QualityScore(lossy))
}

func TestQualityScoreChannelsBeforeRate(t *testing.T) {
	stereo := model.Sample{Format: "wav", SampleRate: 44100, Channels: 2}
	monoHighRate := model.Sample{Format: "wav", SampleRate: 96000, Channels: 1}
	assert.Greater(t, QualityScore(stereo), QualityScore(monoHighRate))
}

func TestCreatedAtMillisFallback(t *testing.T) {
	withDate := model.Sample{ID: 7, CreatedAt: date("2024-01-01")}
	assert.Equal(t, date("2024-01-01").UnixMilli(), CreatedAtMillis(withDate))

	// Missing dates fall back to the id so the order stays total.
	withoutDate := model.Sample{ID: 7}
	assert.Equal(t, int64(7), CreatedAtMillis(withoutDate))
}

func TestAssignmentScore(t *testing.T) {
	assert.Equal(t, 5, AssignmentScore(model.Sample{TagsCount: 3, FolderCount: 2}))
	assert.Equal(t, 0, AssignmentScore(model.Sample{}))
}
