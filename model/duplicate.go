package model

// MatchType says how the samples in a duplicate group were matched.
type MatchType string

const (
	MatchExact   MatchType = "exact"   // identical content hash
	MatchContent MatchType = "content" // identical audio fingerprint
	MatchFile    MatchType = "file"    // identical file path
)

// DuplicateGroup is a set of samples a matcher believes are equivalent.
// Groups with fewer than two samples contain no duplicates and are
// ignored downstream.
type DuplicateGroup struct {
	MatchType      MatchType `json:"matchType"`
	HashSimilarity float64   `json:"hashSimilarity"` // [0,1]
	Samples        []Sample  `json:"samples"`
}

// PairRole names which side of a pair a sample occupies.
type PairRole string

const (
	RoleKeep      PairRole = "keep"
	RoleDuplicate PairRole = "duplicate"
	RoleNone      PairRole = ""
)

// DuplicatePair is a (keep, duplicate) tuple expanded from a group.
// Sample snapshots are carried in full so rendering needs no re-lookup.
// The ID is stable within a single pair-build run.
type DuplicatePair struct {
	ID             string    `json:"id"` // groupIndex:pairIndex:keepId:dupId
	MatchType      MatchType `json:"matchType"`
	HashSimilarity float64   `json:"hashSimilarity"`

	KeepSample      Sample `json:"keepSample"`
	DuplicateSample Sample `json:"duplicateSample"`

	KeepFormat              string `json:"keepFormat"`
	DuplicateFormat         string `json:"duplicateFormat"`
	KeepInCurrentScope      bool   `json:"keepInCurrentScope"`
	DuplicateInCurrentScope bool   `json:"duplicateInCurrentScope"`

	// DefaultDeleteSampleID is the pair's default deletion target, or nil
	// when filters or favorite protection leave nothing deletable.
	DefaultDeleteSampleID *int64 `json:"defaultDeleteSampleId"`
}

// DuplicatePairDecision is the final, protection-aware resolution of a pair.
type DuplicatePairDecision struct {
	DuplicatePair

	CanDeleteKeepSample      bool     `json:"canDeleteKeepSample"`
	CanDeleteDuplicateSample bool     `json:"canDeleteDuplicateSample"`
	SelectedDeleteSampleID   *int64   `json:"selectedDeleteSampleId"`
	SelectedDeleteRole       PairRole `json:"selectedDeleteSampleRole"`
	IsManualChoice           bool     `json:"isManualChoice"`
}
