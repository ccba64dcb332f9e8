package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AstroPony/KlusQuest/internal/auth"
	"github.com/AstroPony/KlusQuest/internal/model"
	"github.com/AstroPony/KlusQuest/internal/store"
	"github.com/AstroPony/KlusQuest/internal/websocket"
)

const maxLuxuryRank = 4

type LuxuryHandler struct {
	luxuries *store.LuxuryStore
	kids     *store.KidStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewLuxuryHandler(ls *store.LuxuryStore, ks *store.KidStore, hub *websocket.Hub, logger *slog.Logger) *LuxuryHandler {
	return &LuxuryHandler{luxuries: ls, kids: ks, hub: hub, logger: logger}
}

// Define handles POST /api/kids/{id}/luxuries. The body is either a single
// definition or an array of up to four, upserted by rank.
func (h *LuxuryHandler) Define(w http.ResponseWriter, r *http.Request) {
	if !auth.IsParent(r.Context()) {
		writeError(w, http.StatusForbidden, "only parents can define luxuries")
		return
	}

	kidID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	kid, err := h.kids.GetInHousehold(kidID, householdID)
	if err != nil {
		h.logger.Error("get kid", "kid_id", kidID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up kid")
		return
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var defs []store.LuxuryInput
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &defs)
	} else {
		var one store.LuxuryInput
		err = json.Unmarshal(raw, &one)
		defs = []store.LuxuryInput{one}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if msg := validateLuxuries(defs); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	out, err := h.luxuries.Define(householdID, kidID, defs)
	if err != nil {
		h.logger.Error("define luxuries", "kid_id", kidID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save luxuries")
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/kids/{id}/luxuries.
func (h *LuxuryHandler) List(w http.ResponseWriter, r *http.Request) {
	kidID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kid id")
		return
	}

	kid, err := h.kids.GetInHousehold(kidID, auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("get kid", "kid_id", kidID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up kid")
		return
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}

	luxuries, err := h.luxuries.ListActive(kidID)
	if err != nil {
		h.logger.Error("list luxuries", "kid_id", kidID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list luxuries")
		return
	}
	if luxuries == nil {
		luxuries = []model.Luxury{}
	}
	writeJSON(w, http.StatusOK, luxuries)
}

func validateLuxuries(defs []store.LuxuryInput) string {
	if len(defs) == 0 {
		return "at least one luxury is required"
	}
	if len(defs) > maxLuxuryRank {
		return "at most 4 luxuries can be defined"
	}

	seen := make(map[int]bool)
	for i := range defs {
		d := &defs[i]
		d.Title = strings.TrimSpace(d.Title)
		if len(d.Title) < 2 || len(d.Title) > 100 {
			return "title must be 2-100 characters"
		}
		if d.Kind == "" {
			d.Kind = model.LuxuryKindItem
		}
		if !model.ValidLuxuryKind(d.Kind) {
			return "kind must be TIME, ITEM, or PRIVILEGE"
		}
		if d.Rank < 1 || d.Rank > maxLuxuryRank {
			return "rank must be between 1 and 4"
		}
		if seen[d.Rank] {
			return "ranks must be unique"
		}
		seen[d.Rank] = true
		if d.Kind == model.LuxuryKindTime {
			if d.Minutes == nil {
				return "minutes is required for TIME luxuries"
			}
			if *d.Minutes < 1 || *d.Minutes > 240 {
				return "minutes must be between 1 and 240"
			}
		}
		if strings.TrimSpace(d.AssignedGame) == "" {
			return "assigned_game is required"
		}
	}
	return ""
}
