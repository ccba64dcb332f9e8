package handler

import (
	"log/slog"
	"net/http"

	"github.com/AstroPony/KlusQuest/internal/auth"
	"github.com/AstroPony/KlusQuest/internal/model"
	"github.com/AstroPony/KlusQuest/internal/store"
)

type KidHandler struct {
	kids       *store.KidStore
	households *store.HouseholdStore
	logger     *slog.Logger
}

func NewKidHandler(ks *store.KidStore, hs *store.HouseholdStore, logger *slog.Logger) *KidHandler {
	return &KidHandler{kids: ks, households: hs, logger: logger}
}

// Progress handles GET /api/kids/{id}/progress.
func (h *KidHandler) Progress(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, model.Progress{
		KidID: kid.ID,
		XP:    kid.XP,
		Coins: kid.Coins,
		Level: kid.Level,
	})
}

// Stats handles GET /api/household/stats.
func (h *KidHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.households.Stats(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("household stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if stats == nil {
		stats = []model.KidStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}
