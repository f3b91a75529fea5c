package dedup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"samplecrate/logger"
	"samplecrate/model"
)

var (
	// ErrScanInFlight is returned when a duplicate scan is already running.
	ErrScanInFlight = errors.New("duplicate scan already in progress")
	// ErrDeleteInFlight is returned when a batch delete is already running.
	ErrDeleteInFlight = errors.New("batch delete already in progress")
	// ErrUnknownPair is returned for an override against a pair id that does
	// not exist in the current pair set.
	ErrUnknownPair = errors.New("unknown pair id")
	// ErrInvalidOverride is returned when an override value names neither
	// sample of its pair.
	ErrInvalidOverride = errors.New("override value names neither sample of the pair")
)

// GroupFetcher supplies raw duplicate groups on demand. Detection itself
// (hashing, fingerprinting) lives behind this interface.
type GroupFetcher interface {
	FetchDuplicateGroups(ctx context.Context, userID int64) (total int, groups []model.DuplicateGroup, err error)
}

// Summary holds the counters the view renders without logic of its own.
type Summary struct {
	TotalGroups        int `json:"totalGroups"`
	TotalPairs         int `json:"totalPairs"`
	MarkedForDeletion  int `json:"markedForDeletion"` // distinct sample ids
	PairsMarked        int `json:"pairsMarked"`
	ManualOverrides    int `json:"manualOverrides"`
	ProtectedFavorites int `json:"protectedFavorites"` // distinct favorite-protected pair members
}

// Resolver owns one user's resolution session: the latest scanned groups,
// the policy, the sparse override map, the browsing scope and the
// duplicate-mode snapshot. Pairs and decisions are recomputed from these
// pure parts on every change; nothing is persisted beyond the session.
//
// A mutex guards the state because HTTP handlers call in concurrently; each
// entry point is still a synchronous computation. Scan and delete are the
// only asynchronous operations and each allows a single outstanding request
// at a time.
type Resolver struct {
	userID   int64
	fetcher  GroupFetcher
	executor *Executor
	onChange func(Summary)

	mu         sync.Mutex
	policy     model.Policy
	groups     []model.DuplicateGroup
	groupTotal int
	pairs      []model.DuplicatePair
	overrides  Overrides
	scopeIDs   map[int64]struct{}
	selection  map[int64]struct{}
	focusedID  int64
	mode       ViewMode
	session    ModeSession
	scanToken  string
	scanning   bool
	deleting   bool
}

// NewResolver creates a resolution session for one user.
func NewResolver(userID int64, fetcher GroupFetcher, executor *Executor) *Resolver {
	return &Resolver{
		userID:    userID,
		fetcher:   fetcher,
		executor:  executor,
		policy:    model.DefaultPolicy(),
		overrides: make(Overrides),
		scopeIDs:  make(map[int64]struct{}),
		selection: make(map[int64]struct{}),
		mode:      ModeAllDuplicates,
	}
}

// SetOnChange registers a callback invoked with a fresh summary after every
// state mutation. Used to push live updates to connected browsers.
func (r *Resolver) SetOnChange(fn func(Summary)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// recomputeLocked rebuilds pairs from the latest groups, policy and scope,
// then prunes overrides against the new pair set. Caller holds the lock.
func (r *Resolver) recomputeLocked() {
	r.pairs = BuildPairs(r.groups, r.policy, r.scopeIDs)
	r.overrides = PruneOverrides(r.overrides, r.pairs)
}

// notify runs the change callback outside the lock.
func (r *Resolver) notify() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn(r.Summary())
	}
}

// Scan fetches a fresh set of duplicate groups and recomputes pairs.
// Only one scan may be in flight; concurrent calls get ErrScanInFlight.
// On fetch failure the previous groups and decisions remain untouched.
func (r *Resolver) Scan(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return Summary{}, ErrScanInFlight
	}
	r.scanning = true
	r.mu.Unlock()

	total, groups, err := r.fetcher.FetchDuplicateGroups(ctx, r.userID)

	r.mu.Lock()
	r.scanning = false
	if err != nil {
		r.mu.Unlock()
		return Summary{}, fmt.Errorf("duplicate group fetch failed: %w", err)
	}
	r.groups = groups
	r.groupTotal = total
	r.scanToken = uuid.NewString()
	r.recomputeLocked()
	token := r.scanToken
	r.mu.Unlock()

	logger.Info("duplicate scan completed",
		logger.Int64("userId", r.userID),
		logger.String("scanToken", token),
		logger.Int("groups", len(groups)))

	r.notify()
	return r.Summary(), nil
}

// Policy returns the active resolution policy.
func (r *Resolver) Policy() model.Policy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy
}

// SetPolicy replaces the policy and recomputes pairs and decisions.
func (r *Resolver) SetPolicy(policy model.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.policy = policy
	r.recomputeLocked()
	r.mu.Unlock()
	r.notify()
	return nil
}

// SetScope replaces the current browsing-scope sample ids.
func (r *Resolver) SetScope(ids []int64) {
	scope := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		scope[id] = struct{}{}
	}
	r.mu.Lock()
	r.scopeIDs = scope
	r.recomputeLocked()
	r.mu.Unlock()
	r.notify()
}

// Decisions reconciles the current pairs with the override map.
func (r *Resolver) Decisions() []model.DuplicatePairDecision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Reconcile(r.pairs, r.overrides, r.policy)
}

// SetOverride records a manual per-pair choice. Writing the pair's current
// default removes the entry instead.
func (r *Resolver) SetOverride(pairID string, value *int64) error {
	r.mu.Lock()
	var pair *model.DuplicatePair
	for i := range r.pairs {
		if r.pairs[i].ID == pairID {
			pair = &r.pairs[i]
			break
		}
	}
	if pair == nil {
		r.mu.Unlock()
		return ErrUnknownPair
	}
	if !overrideValid(*pair, value) {
		r.mu.Unlock()
		return ErrInvalidOverride
	}
	r.overrides = SetOverride(r.overrides, *pair, value)
	r.mu.Unlock()
	r.notify()
	return nil
}

// ClearPairOverride removes the override for a pair, restoring its default.
func (r *Resolver) ClearPairOverride(pairID string) {
	r.mu.Lock()
	r.overrides = ClearOverride(r.overrides, pairID)
	r.mu.Unlock()
	r.notify()
}

// OverrideCount returns the number of stored overrides.
func (r *Resolver) OverrideCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.overrides)
}

// EnterMode activates a duplicate viewing mode, snapshotting the caller's
// selection and focused sample for restore on exit.
func (r *Resolver) EnterMode(mode ViewMode) {
	r.mu.Lock()
	r.session.Enter(r.selection, r.focusedID)
	r.mode = mode
	r.mu.Unlock()
	r.notify()
}

// ExitMode deactivates duplicate mode. The snapshot is restored verbatim
// unless the user selected something while the mode was active. Exiting is
// idempotent and a no-op without an active session or without groups.
func (r *Resolver) ExitMode() {
	r.mu.Lock()
	if selection, focus, restore := r.session.Exit(); restore {
		r.selection = selection
		r.focusedID = focus
	}
	r.mode = ModeAllDuplicates
	r.mu.Unlock()
	r.notify()
}

// Mode returns the active viewing mode.
func (r *Resolver) Mode() ViewMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Select replaces the local sample selection and focused sample. While a
// mode session is active this marks the snapshot as superseded.
func (r *Resolver) Select(ids []int64, focusedID int64) {
	selection := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		selection[id] = struct{}{}
	}
	r.mu.Lock()
	r.selection = selection
	r.focusedID = focusedID
	r.session.NoteSelection()
	r.mu.Unlock()
}

// Selection returns the local selection in ascending id order.
func (r *Resolver) Selection() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedIDs(r.selection)
}

// FocusedSample returns the focused sample id, 0 when none.
func (r *Resolver) FocusedSample() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focusedID
}

// Targets derives the visible sample-id set for a mode from live decisions,
// in ascending id order.
func (r *Resolver) Targets(mode ViewMode) []int64 {
	return sortedIDs(TargetSampleIDs(r.Decisions(), mode))
}

// Summary computes the counters over the current decisions.
func (r *Resolver) Summary() Summary {
	r.mu.Lock()
	groups := len(r.groups)
	overrides := len(r.overrides)
	r.mu.Unlock()

	decisions := r.Decisions()
	marked := make(map[int64]struct{})
	protected := make(map[int64]struct{})
	pairsMarked := 0
	for _, d := range decisions {
		if d.SelectedDeleteSampleID != nil {
			marked[*d.SelectedDeleteSampleID] = struct{}{}
			pairsMarked++
		}
		if !d.CanDeleteKeepSample {
			protected[d.KeepSample.ID] = struct{}{}
		}
		if !d.CanDeleteDuplicateSample {
			protected[d.DuplicateSample.ID] = struct{}{}
		}
	}

	return Summary{
		TotalGroups:        groups,
		TotalPairs:         len(decisions),
		MarkedForDeletion:  len(marked),
		PairsMarked:        pairsMarked,
		ManualOverrides:    overrides,
		ProtectedFavorites: len(protected),
	}
}

// Delete executes the batch deletion of every sample currently marked for
// deletion. Only one delete may be in flight. On success the deleted ids
// are removed from the local selection; override entries for
// now-nonexistent pairs are left for the next reconciliation pass. On
// failure selection and override state stay exactly as before the attempt.
func (r *Resolver) Delete(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	if r.deleting {
		r.mu.Unlock()
		return nil, ErrDeleteInFlight
	}
	ids := IDsToDelete(Reconcile(r.pairs, r.overrides, r.policy))
	if len(ids) == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	r.deleting = true
	r.mu.Unlock()

	err := r.executor.Execute(ctx, r.userID, ids)

	r.mu.Lock()
	r.deleting = false
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	for _, id := range ids {
		delete(r.selection, id)
		if r.focusedID == id {
			r.focusedID = 0
		}
	}
	r.mu.Unlock()

	logger.Info("batch delete committed",
		logger.Int64("userId", r.userID),
		logger.Int("deleted", len(ids)))

	r.notify()
	return ids, nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
