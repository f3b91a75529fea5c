package dedup

import (
	"sort"

	"samplecrate/model"
)

// PickKeep selects the sample to keep within a duplicate group. The
// comparator keys apply in fixed priority order, each only on a tie of the
// previous ones:
//
//  1. favorite status descending, when protecting favorites
//  2. assignment score descending, when preferring assigned samples
//  3. the strategy-specific key
//  4. id ascending
//
// The final id key makes the order total, so identical inputs always pick
// the same keep. An empty input returns a sentinel with ID -1; callers must
// treat ID <= 0 as "no valid keep".
func PickKeep(samples []model.Sample, policy model.Policy) model.Sample {
	if len(samples) == 0 {
		return model.Sample{ID: -1}
	}

	sorted := make([]model.Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return keepLess(sorted[i], sorted[j], policy)
	})
	return sorted[0]
}

// keepLess reports whether a should survive over b under the policy.
func keepLess(a, b model.Sample, policy model.Policy) bool {
	if policy.ProtectFavorites && a.Favorite != b.Favorite {
		return a.Favorite
	}

	if policy.PreferAssigned {
		if as, bs := AssignmentScore(a), AssignmentScore(b); as != bs {
			return as > bs
		}
	}

	switch policy.KeepStrategy {
	case model.KeepHighestQuality:
		if qa, qb := QualityScore(a), QualityScore(b); qa != qb {
			return qa > qb
		}
	case model.KeepPreferLossless:
		if la, lb := IsLossless(a), IsLossless(b); la != lb {
			return la
		}
		if qa, qb := QualityScore(a), QualityScore(b); qa != qb {
			return qa > qb
		}
	case model.KeepNewest:
		if ta, tb := CreatedAtMillis(a), CreatedAtMillis(b); ta != tb {
			return ta > tb
		}
	default: // oldest
		if ta, tb := CreatedAtMillis(a), CreatedAtMillis(b); ta != tb {
			return ta < tb
		}
	}

	return a.ID < b.ID
}
