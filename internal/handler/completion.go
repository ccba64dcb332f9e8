package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AstroPony/KlusQuest/internal/auth"
	"github.com/AstroPony/KlusQuest/internal/model"
	"github.com/AstroPony/KlusQuest/internal/store"
	"github.com/AstroPony/KlusQuest/internal/websocket"
)

type CompletionHandler struct {
	completions *store.CompletionStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewCompletionHandler(cs *store.CompletionStore, hub *websocket.Hub, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{completions: cs, hub: hub, logger: logger}
}

func (h *CompletionHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// Submit handles POST /api/chores/{id}/complete.
func (h *CompletionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chore id")
		return
	}

	var req struct {
		KidID int64 `json:"kid_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.KidID == 0 {
		writeError(w, http.StatusBadRequest, "kid_id is required")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	completion, progress, err := h.completions.Submit(householdID, choreID, req.KidID, time.Now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "chore or kid not found")
		return
	case errors.Is(err, store.ErrChoreNotAssignable):
		writeError(w, http.StatusUnprocessableEntity, "chore is not assignable to this kid")
		return
	case errors.Is(err, store.ErrAlreadyCompletedToday):
		writeError(w, http.StatusConflict, "chore already completed today")
		return
	case err != nil:
		h.logger.Error("submit completion", "chore_id", choreID, "kid_id", req.KidID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit completion")
		return
	}

	h.broadcast(websocket.NewEvent("completion", "submitted", completion.ID, map[string]any{
		"kid_id":   completion.KidID,
		"chore_id": completion.ChoreID,
	}))
	if progress != nil && progress.LeveledUp {
		h.broadcast(websocket.NewEvent("kid", "level_up", progress.KidID, map[string]any{
			"level": progress.Level,
		}))
	}

	writeJSON(w, http.StatusCreated, submitResponse{Completion: completion, Progress: progress})
}

type submitResponse struct {
	Completion *model.Completion `json:"completion"`
	Progress   *model.Progress   `json:"progress,omitempty"`
}

// Decide handles POST /api/completions/{id}/decide.
func (h *CompletionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if !auth.IsParent(r.Context()) {
		writeError(w, http.StatusForbidden, "only parents can decide completions")
		return
	}

	completionID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid completion id")
		return
	}

	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Approved == nil {
		writeError(w, http.StatusBadRequest, "approved is required")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	completion, progress, err := h.completions.Decide(completionID, householdID, *req.Approved, time.Now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "completion not found")
		return
	case errors.Is(err, store.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "completion already decided")
		return
	case err != nil:
		h.logger.Error("decide completion", "completion_id", completionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to decide completion")
		return
	}

	h.broadcast(websocket.NewEvent("completion", completion.State, completion.ID, map[string]any{
		"kid_id": completion.KidID,
	}))
	if progress != nil && progress.LeveledUp {
		h.broadcast(websocket.NewEvent("kid", "level_up", progress.KidID, map[string]any{
			"level": progress.Level,
		}))
	}

	writeJSON(w, http.StatusOK, submitResponse{Completion: completion, Progress: progress})
}

// List handles GET /api/completions?state=pending.
func (h *CompletionHandler) List(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	switch state {
	case "", model.StatePending, model.StateApproved, model.StateDenied:
	default:
		writeError(w, http.StatusBadRequest, "invalid state filter")
		return
	}

	completions, err := h.completions.ListByHousehold(auth.HouseholdID(r.Context()), state)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list completions")
		return
	}
	if completions == nil {
		completions = []model.Completion{}
	}
	writeJSON(w, http.StatusOK, completions)
}
