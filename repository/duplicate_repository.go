package repository

import (
	"context"
	"sort"

	"samplecrate/model"
)

// DuplicateRepository supplies duplicate groups for a user's library.
// Hashing and fingerprinting happen at import time; this only groups
// samples whose stored identities collide.
type DuplicateRepository interface {
	FindDuplicateGroups(ctx context.Context, userID int64) (total int, groups []model.DuplicateGroup, err error)
}

type sqlDuplicateRepository struct {
	samples SampleRepository
}

// NewDuplicateRepository creates a duplicate repository backed by the
// sample repository.
func NewDuplicateRepository(samples SampleRepository) DuplicateRepository {
	return &sqlDuplicateRepository{samples: samples}
}

// FindDuplicateGroups loads the user's library once and groups samples by
// content hash (exact matches), audio fingerprint (content matches) and
// file path (file identity). A sample may appear in groups of several
// match types at once; group order is deterministic for a given library
// state.
func (r *sqlDuplicateRepository) FindDuplicateGroups(ctx context.Context, userID int64) (int, []model.DuplicateGroup, error) {
	samples, err := r.samples.GetAllSamplesByUserID(userID)
	if err != nil {
		return 0, nil, err
	}

	groups := make([]model.DuplicateGroup, 0)
	groups = append(groups, groupBy(samples, model.MatchExact, func(s model.Sample) string { return s.ContentHash })...)
	groups = append(groups, groupBy(samples, model.MatchContent, func(s model.Sample) string { return s.Fingerprint })...)
	groups = append(groups, groupBy(samples, model.MatchFile, func(s model.Sample) string { return s.FilePath })...)

	return len(groups), groups, nil
}

// groupBy buckets samples by a non-empty key and keeps buckets with at
// least two members, ordered by key for determinism. Members arrive in
// ascending id order from the repository and stay that way.
func groupBy(samples []model.Sample, matchType model.MatchType, key func(model.Sample) string) []model.DuplicateGroup {
	buckets := make(map[string][]model.Sample)
	for _, s := range samples {
		k := key(s)
		if k == "" {
			continue
		}
		buckets[k] = append(buckets[k], s)
	}

	keys := make([]string, 0, len(buckets))
	for k, members := range buckets {
		if len(members) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	groups := make([]model.DuplicateGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, model.DuplicateGroup{
			MatchType:      matchType,
			HashSimilarity: 1.0, // stored identities are matched by equality
			Samples:        buckets[k],
		})
	}
	return groups
}
