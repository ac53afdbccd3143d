package handler

import (
	"log/slog"
	"net/http"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/couples"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
)

type CouplesHandler struct {
	couplesSvc       *couples.Service
	interactionStore *store.InteractionStore
	logger           *slog.Logger
}

func NewCouplesHandler(cs *couples.Service, is *store.InteractionStore, logger *slog.Logger) *CouplesHandler {
	return &CouplesHandler{
		couplesSvc:       cs,
		interactionStore: is,
		logger:           logger,
	}
}

// MutualLikes returns the properties every household member has liked,
// newest match first.
func (h *CouplesHandler) MutualLikes(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	mutual, err := h.couplesSvc.MutualLikes(householdID)
	if err != nil {
		h.logger.Error("mutual likes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute mutual likes")
		return
	}
	if mutual == nil {
		mutual = []model.MutualLike{}
	}
	writeJSON(w, http.StatusOK, mutual)
}

// Summary returns per-member swipe counts, the mutual-like count, and an
// agreement rate: of the properties at least two members decided on, the
// share where every decision agreed.
func (h *CouplesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	summaries, err := h.interactionStore.MemberSummaries(householdID)
	if err != nil {
		h.logger.Error("member summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize")
		return
	}
	if summaries == nil {
		summaries = []model.MemberSummary{}
	}

	mutual, err := h.couplesSvc.MutualLikes(householdID)
	if err != nil {
		h.logger.Error("mutual likes for summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize")
		return
	}

	agreed, decided, err := h.interactionStore.AgreementCounts(householdID)
	if err != nil {
		h.logger.Error("agreement counts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to summarize")
		return
	}
	var rate float64
	if decided > 0 {
		rate = float64(agreed) / float64(decided)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"members":           summaries,
		"mutual_like_count": len(mutual),
		"decided_together":  decided,
		"agreement_rate":    rate,
	})
}

// Notify fans out any unseen mutual likes over push and websocket. Repeat
// calls without new matches do nothing.
func (h *CouplesHandler) Notify(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	result, err := h.couplesSvc.Notify(r.Context(), householdID)
	if err != nil {
		h.logger.Error("notify mutual likes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send notifications")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
