// Package dedup implements the duplicate resolution engine: deterministic
// keep selection inside duplicate groups, pair expansion, override
// reconciliation, view-mode filtering and batch deletion planning.
//
// Everything except the scan fetch and the batch delete is pure computation
// over the latest groups, policy and overrides.
package dedup

import (
	"path/filepath"
	"strings"

	"samplecrate/model"
)

// losslessFormats is the fixed set of formats treated as lossless.
var losslessFormats = map[string]bool{
	"wav":  true,
	"flac": true,
	"aif":  true,
	"aiff": true,
}

// FormatOf returns the sample's format: the explicit format field when
// present, else the lower-cased file extension, else "unknown".
func FormatOf(s model.Sample) string {
	if f := strings.TrimSpace(s.Format); f != "" {
		return strings.ToLower(f)
	}
	path := s.FilePath
	if path == "" {
		path = s.Name
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "unknown"
}

// IsLossless reports whether the sample's format is in the lossless set.
func IsLossless(s model.Sample) bool {
	return losslessFormats[FormatOf(s)]
}

// QualityScore ranks samples so that losslessness always dominates, then
// channel count, then sample rate. A high sample rate alone must never
// outrank a lossless file.
func QualityScore(s model.Sample) int64 {
	var score int64
	if IsLossless(s) {
		score += 1_000_000
	}
	score += int64(s.SampleRate) * 100
	score += int64(s.Channels) * 10_000
	return score
}

// CreatedAtMillis returns the creation time in epoch milliseconds. When the
// date is missing the sample's own id is used as a monotonically increasing
// fallback, so a total order exists even with absent metadata.
func CreatedAtMillis(s model.Sample) int64 {
	if s.CreatedAt != nil {
		return s.CreatedAt.UnixMilli()
	}
	return s.ID
}

// AssignmentScore is a proxy for how much curation effort the user has
// invested in a sample.
func AssignmentScore(s model.Sample) int {
	return s.TagsCount + s.FolderCount
}
