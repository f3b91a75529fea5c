package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"samplecrate/cache"
	"samplecrate/config"
	"samplecrate/core/dedup"
	"samplecrate/logger"
	"samplecrate/model"
	"samplecrate/repository"
	"samplecrate/storage"
)

// APIHandler handles all API requests.
type APIHandler struct {
	cfg        *config.Config
	sampleRepo repository.SampleRepository
	userRepo   repository.UserRepository
	dupRepo    repository.DuplicateRepository
	hub        *WSHub

	mu        sync.Mutex
	resolvers map[int64]*dedup.Resolver
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	sampleRepo repository.SampleRepository,
	userRepo repository.UserRepository,
	dupRepo repository.DuplicateRepository,
	hub *WSHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		cfg:        cfg,
		sampleRepo: sampleRepo,
		userRepo:   userRepo,
		dupRepo:    dupRepo,
		hub:        hub,
		resolvers:  make(map[int64]*dedup.Resolver),
	}
}

// resolverFor returns the user's resolution session, creating it on first
// use with the cached group fetcher and the deletion executor wired in.
func (h *APIHandler) resolverFor(userID int64) *dedup.Resolver {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.resolvers[userID]; ok {
		return r
	}

	executor := dedup.NewExecutor(&sampleDeleter{repo: h.sampleRepo}, &redisInvalidator{})
	r := dedup.NewResolver(userID, &cachedGroupFetcher{repo: h.dupRepo}, executor)
	r.SetOnChange(func(s dedup.Summary) {
		h.hub.Broadcast(userID, s)
	})
	h.resolvers[userID] = r
	return r
}

// cachedGroupFetcher serves duplicate groups from the Redis scan cache and
// falls back to the repository on a miss. Cache failures degrade to a
// direct repository fetch.
type cachedGroupFetcher struct {
	repo repository.DuplicateRepository
}

func (f *cachedGroupFetcher) FetchDuplicateGroups(ctx context.Context, userID int64) (int, []model.DuplicateGroup, error) {
	if cached, err := cache.GetScanResult(ctx, userID); err != nil {
		logger.Warn("scan cache read failed", logger.Int64("userId", userID), logger.ErrorField(err))
	} else if cached != nil {
		return cached.Total, cached.Groups, nil
	}

	total, groups, err := f.repo.FindDuplicateGroups(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	result := &cache.ScanResult{Total: total, Groups: groups, ScannedAt: time.Now().UnixMilli()}
	if err := cache.SetScanResult(ctx, userID, result); err != nil {
		logger.Warn("scan cache write failed", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	return total, groups, nil
}

// sampleDeleter deletes sample rows and then removes the stored audio
// objects for whatever rows actually existed.
type sampleDeleter struct {
	repo repository.SampleRepository
}

func (d *sampleDeleter) BatchDelete(ctx context.Context, userID int64, ids []int64) error {
	paths, err := d.repo.BatchDeleteSamples(ctx, userID, ids)
	if err != nil {
		return err
	}
	storage.RemoveSampleObjects(ctx, paths)
	return nil
}

// redisInvalidator drops the derived caches after a successful delete.
type redisInvalidator struct{}

func (redisInvalidator) InvalidateDuplicateGroups(ctx context.Context, userID int64) error {
	return cache.InvalidateScanResult(ctx, userID)
}

func (redisInvalidator) InvalidateSampleListing(ctx context.Context, userID int64) error {
	return cache.InvalidateListing(ctx, userID)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
