package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AstroPony/KlusQuest/internal/auth"
	"github.com/AstroPony/KlusQuest/internal/model"
	"github.com/AstroPony/KlusQuest/internal/store"
	"github.com/AstroPony/KlusQuest/internal/websocket"
)

type GameHandler struct {
	games    *store.GameStore
	kids     *store.KidStore
	luxuries *store.LuxuryStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewGameHandler(gs *store.GameStore, ks *store.KidStore, ls *store.LuxuryStore, hub *websocket.Hub, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: gs, kids: ks, luxuries: ls, hub: hub, logger: logger}
}

func (h *GameHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// kidInHousehold resolves the kid for the caller's household, writing the
// error response itself when the kid is missing or not visible.
func (h *GameHandler) kidInHousehold(w http.ResponseWriter, r *http.Request, kidID int64) *model.Kid {
	kid, err := h.kids.GetInHousehold(kidID, auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("get kid", "kid_id", kidID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up kid")
		return nil
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "kid not found")
		return nil
	}
	return kid
}

// RecordScore handles POST /api/games/{id}/score.
func (h *GameHandler) RecordScore(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	var req struct {
		KidID           int64 `json:"kid_id"`
		Score           *int  `json:"score"`
		DurationSeconds *int  `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.KidID == 0 {
		writeError(w, http.StatusBadRequest, "kid_id is required")
		return
	}
	if req.Score == nil || *req.Score < 0 {
		writeError(w, http.StatusBadRequest, "score must be a non-negative integer")
		return
	}
	if req.DurationSeconds != nil && *req.DurationSeconds < 0 {
		writeError(w, http.StatusBadRequest, "duration_seconds must be >= 0")
		return
	}

	if h.kidInHousehold(w, r, req.KidID) == nil {
		return
	}

	attempt, err := h.games.RecordAttempt(req.KidID, gameID, *req.Score, req.DurationSeconds)
	if err != nil {
		h.logger.Error("record attempt", "kid_id", req.KidID, "game_id", gameID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record attempt")
		return
	}

	summary, err := h.games.BestFor(req.KidID, gameID)
	if err != nil {
		h.logger.Error("aggregate attempts", "kid_id", req.KidID, "game_id", gameID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate attempts")
		return
	}

	h.broadcast(websocket.NewEvent("game", "score_recorded", attempt.ID, map[string]any{
		"kid_id":  attempt.KidID,
		"game_id": attempt.GameID,
		"score":   attempt.Score,
	}))

	writeJSON(w, http.StatusCreated, map[string]any{
		"attempt":       attempt,
		"best_score":    summary.BestScore,
		"attempt_count": summary.AttemptCount,
	})
}

// GetScore handles GET /api/games/{id}/score?kid_id=.
func (h *GameHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	kidID, err := strconv.ParseInt(r.URL.Query().Get("kid_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "kid_id is required")
		return
	}
	if h.kidInHousehold(w, r, kidID) == nil {
		return
	}

	summary, err := h.games.BestFor(kidID, gameID)
	if err != nil {
		h.logger.Error("aggregate attempts", "kid_id", kidID, "game_id", gameID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to aggregate attempts")
		return
	}
	if summary.Recent == nil {
		summary.Recent = []model.GameAttempt{}
	}
	writeJSON(w, http.StatusOK, summary)
}

// Win handles POST /api/games/{id}/win.
func (h *GameHandler) Win(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

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
	if h.kidInHousehold(w, r, req.KidID) == nil {
		return
	}

	grant, err := h.luxuries.UnlockForWin(req.KidID, gameID)
	if err != nil {
		h.logger.Error("unlock for win", "kid_id", req.KidID, "game_id", gameID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process win")
		return
	}

	if grant != nil {
		h.broadcast(websocket.NewEvent("luxury", "granted", grant.LuxuryID, map[string]any{
			"kid_id": grant.KidID,
		}))
	}

	writeJSON(w, http.StatusOK, map[string]any{"granted": grant})
}
