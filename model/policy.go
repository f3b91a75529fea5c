package model

import "fmt"

// KeepStrategy decides which sample in a duplicate group survives.
type KeepStrategy string

const (
	KeepOldest         KeepStrategy = "oldest"
	KeepNewest         KeepStrategy = "newest"
	KeepPreferLossless KeepStrategy = "prefer-lossless"
	KeepHighestQuality KeepStrategy = "highest-quality"
)

// MatchTypeFilter restricts which duplicate groups are considered.
type MatchTypeFilter string

const (
	MatchFilterAll     MatchTypeFilter = "all"
	MatchFilterExact   MatchTypeFilter = "exact"
	MatchFilterContent MatchTypeFilter = "content"
	MatchFilterFile    MatchTypeFilter = "file"
)

// ScopeFilter restricts duplicates to the currently browsed scope.
type ScopeFilter string

const (
	ScopeAll     ScopeFilter = "all"
	ScopeCurrent ScopeFilter = "current"
)

// FormatFilterAll disables the format filter.
const FormatFilterAll = "all"

// Policy is the user-configurable resolution policy. It is process-wide
// while a resolution session is active.
type Policy struct {
	KeepStrategy     KeepStrategy    `json:"keepStrategy"`
	ProtectFavorites bool            `json:"protectFavorites"`
	PreferAssigned   bool            `json:"preferAssigned"`
	MatchTypeFilter  MatchTypeFilter `json:"matchTypeFilter"`
	FormatFilter     string          `json:"formatFilter"`
	ScopeFilter      ScopeFilter     `json:"scopeFilter"`
}

// DefaultPolicy returns the policy used before the user changes anything.
func DefaultPolicy() Policy {
	return Policy{
		KeepStrategy:     KeepOldest,
		ProtectFavorites: true,
		PreferAssigned:   false,
		MatchTypeFilter:  MatchFilterAll,
		FormatFilter:     FormatFilterAll,
		ScopeFilter:      ScopeAll,
	}
}

// Validate checks enum fields and fills empty ones with defaults.
func (p *Policy) Validate() error {
	if p.KeepStrategy == "" {
		p.KeepStrategy = KeepOldest
	}
	if p.MatchTypeFilter == "" {
		p.MatchTypeFilter = MatchFilterAll
	}
	if p.FormatFilter == "" {
		p.FormatFilter = FormatFilterAll
	}
	if p.ScopeFilter == "" {
		p.ScopeFilter = ScopeAll
	}

	switch p.KeepStrategy {
	case KeepOldest, KeepNewest, KeepPreferLossless, KeepHighestQuality:
	default:
		return fmt.Errorf("invalid keep strategy: %q", p.KeepStrategy)
	}
	switch p.MatchTypeFilter {
	case MatchFilterAll, MatchFilterExact, MatchFilterContent, MatchFilterFile:
	default:
		return fmt.Errorf("invalid match type filter: %q", p.MatchTypeFilter)
	}
	switch p.ScopeFilter {
	case ScopeAll, ScopeCurrent:
	default:
		return fmt.Errorf("invalid scope filter: %q", p.ScopeFilter)
	}
	return nil
}
