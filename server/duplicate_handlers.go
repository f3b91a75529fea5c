package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"samplecrate/core/dedup"
	"samplecrate/logger"
	"samplecrate/model"
)

// ScanDuplicatesHandler runs a duplicate scan for the user. A second scan
// while one is running gets 409.
func (h *APIHandler) ScanDuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	summary, err := h.resolverFor(userID).Scan(r.Context())
	if err != nil {
		if errors.Is(err, dedup.ErrScanInFlight) {
			writeError(w, http.StatusConflict, "A duplicate scan is already in progress")
			return
		}
		logger.Error("duplicate scan failed", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Duplicate scan failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetDecisionsHandler returns the reconciled per-pair decisions plus the
// summary counters.
func (h *APIHandler) GetDecisionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resolver := h.resolverFor(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": resolver.Decisions(),
		"summary":   resolver.Summary(),
	})
}

// GetPolicyHandler returns the active resolution policy.
func (h *APIHandler) GetPolicyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.resolverFor(userID).Policy())
}

// UpdatePolicyHandler replaces the resolution policy and returns the
// recomputed summary.
func (h *APIHandler) UpdatePolicyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var policy model.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resolver := h.resolverFor(userID)
	if err := resolver.SetPolicy(policy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resolver.Summary())
}

// SetOverrideHandler records a manual delete choice for one pair. The body
// carries deleteSampleId; null means "delete nothing in this pair".
func (h *APIHandler) SetOverrideHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	pairID := mux.Vars(r)["pairId"]

	var req struct {
		DeleteSampleID *int64 `json:"deleteSampleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resolver := h.resolverFor(userID)
	if err := resolver.SetOverride(pairID, req.DeleteSampleID); err != nil {
		switch {
		case errors.Is(err, dedup.ErrUnknownPair):
			writeError(w, http.StatusNotFound, "Unknown pair id")
		case errors.Is(err, dedup.ErrInvalidOverride):
			writeError(w, http.StatusBadRequest, "Override must name a sample of the pair")
		default:
			logger.Error("override failed", logger.String("pairId", pairID), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to store override")
		}
		return
	}
	writeJSON(w, http.StatusOK, resolver.Summary())
}

// ClearOverrideHandler removes a pair's manual choice, restoring its
// policy default.
func (h *APIHandler) ClearOverrideHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resolver := h.resolverFor(userID)
	resolver.ClearPairOverride(mux.Vars(r)["pairId"])
	writeJSON(w, http.StatusOK, resolver.Summary())
}

// SetScopeHandler loads the sample ids of a folder into the browsing scope,
// so a "current scope" policy only proposes deletions inside it.
func (h *APIHandler) SetScopeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		FolderPath string `json:"folderPath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var ids []int64
	if req.FolderPath != "" {
		ids, err = h.sampleRepo.ListFolderSampleIDs(userID, req.FolderPath)
		if err != nil {
			logger.Error("scope lookup failed", logger.String("folder", req.FolderPath), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to load folder scope")
			return
		}
	}

	resolver := h.resolverFor(userID)
	resolver.SetScope(ids)
	writeJSON(w, http.StatusOK, map[string]any{
		"scopeSize": len(ids),
		"summary":   resolver.Summary(),
	})
}

// EnterModeHandler activates a duplicate viewing mode.
func (h *APIHandler) EnterModeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	mode, err := dedup.ParseViewMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolver := h.resolverFor(userID)
	resolver.EnterMode(mode)
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    mode,
		"targets": resolver.Targets(mode),
	})
}

// ExitModeHandler deactivates duplicate mode, restoring the saved selection
// when applicable. Exiting without an active mode is a no-op.
func (h *APIHandler) ExitModeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resolver := h.resolverFor(userID)
	resolver.ExitMode()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      resolver.Mode(),
		"selection": resolver.Selection(),
		"focusedId": resolver.FocusedSample(),
	})
}

// GetTargetsHandler returns the visible sample ids for a mode, derived live
// from the current decisions.
func (h *APIHandler) GetTargetsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	mode, err := dedup.ParseViewMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    mode,
		"targets": h.resolverFor(userID).Targets(mode),
	})
}

// SetSelectionHandler replaces the user's local sample selection.
func (h *APIHandler) SetSelectionHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		SampleIDs []int64 `json:"sampleIds"`
		FocusedID int64   `json:"focusedId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resolver := h.resolverFor(userID)
	resolver.Select(req.SampleIDs, req.FocusedID)
	writeJSON(w, http.StatusOK, map[string]any{
		"selection": resolver.Selection(),
		"focusedId": resolver.FocusedSample(),
	})
}

// DeleteDuplicatesHandler deletes every sample currently marked for
// deletion. Concurrent deletes get 409; an empty mark set is a no-op.
func (h *APIHandler) DeleteDuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resolver := h.resolverFor(userID)
	deleted, err := resolver.Delete(r.Context())
	if err != nil {
		if errors.Is(err, dedup.ErrDeleteInFlight) {
			writeError(w, http.StatusConflict, "A batch delete is already in progress")
			return
		}
		logger.Error("batch delete failed", logger.Int64("userId", userID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Batch delete failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deletedIds": deleted,
		"summary":    resolver.Summary(),
	})
}
