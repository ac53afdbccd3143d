package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/push"
	"github.com/homematch/homematch/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	pushSvc   *push.Service // nil when VAPID keys are not configured
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, pushSvc: svc, logger: logger}
}

// VAPIDKey hands the browser the public key it needs to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.pushSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.pushSvc.VAPIDPublicKey()})
}

// Subscribe registers a browser push subscription for the caller. The same
// endpoint re-subscribing moves to the caller.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Endpoint   string `json:"endpoint"`
		DeviceName string `json:"device_name"`
		Keys       struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint and keys are required")
		return
	}

	sub, err := h.pushStore.CreateSubscription(userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Subscriptions lists the caller's registered devices.
func (h *PushHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	subs, err := h.pushStore.ListSubscriptionsForUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe removes one of the caller's subscriptions.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}

	sub, err := h.pushStore.GetSubscription(id)
	if err != nil {
		h.logger.Error("get push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sub == nil || sub.UserID != userID {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}

	if err := h.pushStore.DeleteSubscription(id); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preferences returns the caller's notification preferences.
func (h *PushHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.pushStore.GetPreferences(userID)
	if err != nil {
		h.logger.Error("get push preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences sets the caller's notification preferences.
func (h *PushHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		MutualLikes bool `json:"mutual_likes"`
		NewListings bool `json:"new_listings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	prefs, err := h.pushStore.SetPreferences(userID, req.MutualLikes, req.NewListings)
	if err != nil {
		h.logger.Error("set push preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// Test sends a test notification to every one of the caller's devices.
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	if h.pushSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	userID := auth.UserID(r.Context())

	subs, err := h.pushStore.ListSubscriptionsForUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(subs) == 0 {
		writeError(w, http.StatusBadRequest, "no subscriptions to test")
		return
	}

	payload := push.Payload{
		Title: "HomeMatch",
		Body:  "Test notification",
		URL:   "/",
		Tag:   "test",
	}

	sent := 0
	for i := range subs {
		if err := h.pushSvc.Send(&subs[i], payload); err != nil {
			h.logger.Warn("test push failed", "error", err, "subscription_id", subs[i].ID)
			continue
		}
		sent++
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
