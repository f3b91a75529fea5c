package dedup

import (
	"fmt"
	"sort"

	"samplecrate/model"
)

// BuildPairs expands duplicate groups into keep/duplicate pairs with a
// default deletion target per pair, subject to the policy's match-type,
// format and scope filters.
//
// It is a pure function of its three inputs: identical inputs always
// produce identical output, including pair ids. Group order is preserved
// and duplicates within a group are paired in ascending id order.
func BuildPairs(groups []model.DuplicateGroup, policy model.Policy, scopeIDs map[int64]struct{}) []model.DuplicatePair {
	pairs := make([]model.DuplicatePair, 0, len(groups))

	for groupIndex, group := range groups {
		if policy.MatchTypeFilter != model.MatchFilterAll &&
			string(policy.MatchTypeFilter) != string(group.MatchType) {
			continue
		}

		// Samples without a resolvable record degrade to exclusion.
		samples := make([]model.Sample, 0, len(group.Samples))
		for _, s := range group.Samples {
			if s.ID > 0 {
				samples = append(samples, s)
			}
		}
		if len(samples) < 2 {
			continue
		}

		keep := PickKeep(samples, policy)
		if keep.ID <= 0 {
			continue
		}

		rest := make([]model.Sample, 0, len(samples)-1)
		for _, s := range samples {
			if s.ID != keep.ID {
				rest = append(rest, s)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })

		pairIndex := 0
		for _, dup := range rest {
			if policy.ScopeFilter == model.ScopeCurrent && !inScope(scopeIDs, dup.ID) {
				continue
			}

			var defaultDelete *int64
			if formatMatches(policy, dup) && !(policy.ProtectFavorites && dup.Favorite) {
				id := dup.ID
				defaultDelete = &id
			}

			pairs = append(pairs, model.DuplicatePair{
				ID:                      fmt.Sprintf("%d:%d:%d:%d", groupIndex, pairIndex, keep.ID, dup.ID),
				MatchType:               group.MatchType,
				HashSimilarity:          group.HashSimilarity,
				KeepSample:              keep,
				DuplicateSample:         dup,
				KeepFormat:              FormatOf(keep),
				DuplicateFormat:         FormatOf(dup),
				KeepInCurrentScope:      inScope(scopeIDs, keep.ID),
				DuplicateInCurrentScope: inScope(scopeIDs, dup.ID),
				DefaultDeleteSampleID:   defaultDelete,
			})
			pairIndex++
		}
	}

	return pairs
}

func formatMatches(policy model.Policy, s model.Sample) bool {
	return policy.FormatFilter == model.FormatFilterAll || FormatOf(s) == policy.FormatFilter
}

func inScope(scopeIDs map[int64]struct{}, id int64) bool {
	_, ok := scopeIDs[id]
	return ok
}
