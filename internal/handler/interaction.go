package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/couples"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
	"github.com/homematch/homematch/internal/websocket"
)

type InteractionHandler struct {
	interactionStore *store.InteractionStore
	propertyStore    *store.PropertyStore
	couplesSvc       *couples.Service
	hub              *websocket.Hub
	logger           *slog.Logger
}

func NewInteractionHandler(
	is *store.InteractionStore,
	ps *store.PropertyStore,
	cs *couples.Service,
	hub *websocket.Hub,
	logger *slog.Logger,
) *InteractionHandler {
	return &InteractionHandler{
		interactionStore: is,
		propertyStore:    ps,
		couplesSvc:       cs,
		hub:              hub,
		logger:           logger,
	}
}

// Create records a swipe. Views never overwrite an earlier like or dislike;
// a later like or dislike supersedes whatever came before. The response
// reports whether the swipe completed a mutual like.
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		PropertyID int64  `json:"property_id"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PropertyID == 0 {
		writeError(w, http.StatusBadRequest, "property_id is required")
		return
	}
	if !model.ValidInteractionKind(req.Kind) {
		writeError(w, http.StatusBadRequest, "kind must be like, dislike, or view")
		return
	}

	property, err := h.propertyStore.GetByID(req.PropertyID)
	if err != nil {
		h.logger.Error("interaction property lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if property == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}

	interaction, err := h.interactionStore.Record(ac.HouseholdID, ac.UserID, req.PropertyID, req.Kind)
	if err != nil {
		h.logger.Error("record interaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record interaction")
		return
	}

	mutual := false
	if req.Kind != model.InteractionView {
		h.couplesSvc.Invalidate(ac.HouseholdID)
		if req.Kind == model.InteractionLike {
			mutual, err = h.couplesSvc.IsMutualLike(ac.HouseholdID, req.PropertyID)
			if err != nil {
				h.logger.Error("check mutual like", "error", err)
			}
		}
		h.hub.Broadcast(ac.HouseholdID, websocket.NewMessage("interaction", "recorded", req.PropertyID, map[string]any{
			"user_id": ac.UserID,
			"kind":    req.Kind,
		}))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"interaction": interaction,
		"mutual_like": mutual,
	})
}

// List returns the caller's interactions, optionally filtered by kind.
func (h *InteractionHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	kind := r.URL.Query().Get("kind")
	if kind != "" && !model.ValidInteractionKind(kind) {
		writeError(w, http.StatusBadRequest, "kind must be like, dislike, or view")
		return
	}

	interactions, err := h.interactionStore.ListForUser(ac.HouseholdID, ac.UserID, kind)
	if err != nil {
		h.logger.Error("list interactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	if interactions == nil {
		interactions = []model.Interaction{}
	}
	writeJSON(w, http.StatusOK, interactions)
}

// Delete undoes the caller's swipe on a property.
func (h *InteractionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	propertyID, err := parseIDParam(r, "property_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	existing, err := h.interactionStore.Get(ac.HouseholdID, ac.UserID, propertyID)
	if err != nil {
		h.logger.Error("get interaction", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "interaction not found")
		return
	}

	if err := h.interactionStore.Delete(ac.HouseholdID, ac.UserID, propertyID); err != nil {
		h.logger.Error("delete interaction", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if existing.Kind == model.InteractionLike {
		h.couplesSvc.Invalidate(ac.HouseholdID)
	}

	w.WriteHeader(http.StatusNoContent)
}
