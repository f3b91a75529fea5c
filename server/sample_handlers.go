package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"samplecrate/cache"
	"samplecrate/logger"
)

// GetSamplesHandler returns the user's full sample listing, served from the
// Redis listing cache when possible.
func (h *APIHandler) GetSamplesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if cached, err := cache.GetListing(r.Context(), userID); err != nil {
		logger.Warn("listing cache read failed", logger.Int64("userId", userID), logger.ErrorField(err))
	} else if cached != nil {
		writeJSON(w, http.StatusOK, map[string]any{"samples": cached, "cached": true})
		return
	}

	samples, err := h.sampleRepo.GetAllSamplesByUserID(userID)
	if err != nil {
		logger.Error("sample listing failed", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	if err := cache.SetListing(r.Context(), userID, samples); err != nil {
		logger.Warn("listing cache write failed", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": samples, "cached": false})
}

// GetSampleHandler returns one sample by id.
func (h *APIHandler) GetSampleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	idStr := mux.Vars(r)["id"]
	sampleID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sample id")
		return
	}

	sample, err := h.sampleRepo.GetSampleByID(sampleID)
	if err != nil {
		logger.Error("sample lookup failed", logger.Int64("sampleId", sampleID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load sample")
		return
	}
	if sample == nil || sample.UserID != userID {
		writeError(w, http.StatusNotFound, "Sample not found")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

// SetFavoriteHandler flips the favorite flag on a sample. The listing cache
// is dropped so favorite protection is visible on the next fetch.
func (h *APIHandler) SetFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	idStr := mux.Vars(r)["id"]
	sampleID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sample id")
		return
	}

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.sampleRepo.SetFavorite(userID, sampleID, req.Favorite); err != nil {
		logger.Error("set favorite failed", logger.Int64("sampleId", sampleID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to update favorite")
		return
	}

	if err := cache.InvalidateListing(r.Context(), userID); err != nil {
		logger.Warn("listing cache invalidation failed", logger.Int64("userId", userID), logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": sampleID, "favorite": req.Favorite})
}
