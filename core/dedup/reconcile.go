package dedup

import (
	"samplecrate/model"
)

// Overrides is the sparse per-pair override map. Absence of a key means
// "use the pair's default". A stored value must equal the pair's keep id,
// its duplicate id, or be nil (an explicit "delete nothing"); anything else
// is treated as absent and pruned on the next reconciliation.
type Overrides map[string]*int64

// overrideValid reports whether a stored value still resolves against the
// pair's current sample ids.
func overrideValid(pair model.DuplicatePair, value *int64) bool {
	if value == nil {
		return true
	}
	return *value == pair.KeepSample.ID || *value == pair.DuplicateSample.ID
}

// idPtrEqual compares two optional sample ids.
func idPtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// cloneID copies an optional id so decisions never alias override storage.
func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Reconcile merges pair defaults with the override map into final per-pair
// decisions. A favorite protection always wins over any requested choice,
// including an explicit manual override.
func Reconcile(pairs []model.DuplicatePair, overrides Overrides, policy model.Policy) []model.DuplicatePairDecision {
	decisions := make([]model.DuplicatePairDecision, 0, len(pairs))

	for _, pair := range pairs {
		canDeleteKeep := !(policy.ProtectFavorites && pair.KeepSample.Favorite)
		canDeleteDup := !(policy.ProtectFavorites && pair.DuplicateSample.Favorite)

		requested := pair.DefaultDeleteSampleID
		overridePresent := false
		if value, ok := overrides[pair.ID]; ok && overrideValid(pair, value) {
			requested = value
			overridePresent = true
		}

		var selected *int64
		role := model.RoleNone
		if requested != nil {
			switch *requested {
			case pair.KeepSample.ID:
				if canDeleteKeep {
					selected = cloneID(requested)
					role = model.RoleKeep
				}
			case pair.DuplicateSample.ID:
				if canDeleteDup {
					selected = cloneID(requested)
					role = model.RoleDuplicate
				}
			}
		}

		decisions = append(decisions, model.DuplicatePairDecision{
			DuplicatePair:            pair,
			CanDeleteKeepSample:      canDeleteKeep,
			CanDeleteDuplicateSample: canDeleteDup,
			SelectedDeleteSampleID:   selected,
			SelectedDeleteRole:       role,
			IsManualChoice:           overridePresent && !idPtrEqual(requested, pair.DefaultDeleteSampleID),
		})
	}

	return decisions
}

// PruneOverrides drops every override whose pair no longer exists or whose
// stored value no longer resolves against that pair's current sample ids.
// It runs on every pair-set change so stale overrides never silently
// resurrect deleted or renumbered pairs. The input map is not mutated.
func PruneOverrides(overrides Overrides, pairs []model.DuplicatePair) Overrides {
	pairsByID := make(map[string]model.DuplicatePair, len(pairs))
	for _, p := range pairs {
		pairsByID[p.ID] = p
	}

	pruned := make(Overrides, len(overrides))
	for id, value := range overrides {
		pair, ok := pairsByID[id]
		if !ok || !overrideValid(pair, value) {
			continue
		}
		pruned[id] = value
	}
	return pruned
}

// SetOverride returns a copy of the override map with the pair's override
// set to value. Writing a value equal to the pair's current default removes
// the entry instead, keeping the map minimal and IsManualChoice accurate.
// A value naming neither sample of the pair leaves the map unchanged.
func SetOverride(overrides Overrides, pair model.DuplicatePair, value *int64) Overrides {
	if !overrideValid(pair, value) {
		return overrides
	}

	next := make(Overrides, len(overrides)+1)
	for id, v := range overrides {
		next[id] = v
	}
	if idPtrEqual(value, pair.DefaultDeleteSampleID) {
		delete(next, pair.ID)
	} else {
		next[pair.ID] = cloneID(value)
	}
	return next
}

// ClearOverride returns a copy of the override map without the pair's entry.
func ClearOverride(overrides Overrides, pairID string) Overrides {
	next := make(Overrides, len(overrides))
	for id, v := range overrides {
		if id != pairID {
			next[id] = v
		}
	}
	return next
}
