// Package couples computes shared search state for a household: the mutual
// likes both partners have swiped right on, agreement summaries, and the
// notification fan-out when a new match lands.
package couples

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/push"
	"github.com/homematch/homematch/internal/store"
	ws "github.com/homematch/homematch/internal/websocket"
)

const (
	cacheSize = 256
	cacheTTL  = 5 * time.Minute
)

// Service answers mutual-like queries with a small expirable LRU in front of
// the interaction store. Entries are invalidated on every interaction write
// or membership change for the household.
type Service struct {
	interactions *store.InteractionStore
	households   *store.HouseholdStore
	pushStore    *store.PushStore
	pushSvc      *push.Service // nil when VAPID keys are not configured
	hub          *ws.Hub
	cache        *expirable.LRU[int64, []model.MutualLike]
	logger       *slog.Logger
}

func NewService(
	interactions *store.InteractionStore,
	households *store.HouseholdStore,
	pushStore *store.PushStore,
	pushSvc *push.Service,
	hub *ws.Hub,
	logger *slog.Logger,
) *Service {
	return &Service{
		interactions: interactions,
		households:   households,
		pushStore:    pushStore,
		pushSvc:      pushSvc,
		hub:          hub,
		cache:        expirable.NewLRU[int64, []model.MutualLike](cacheSize, nil, cacheTTL),
		logger:       logger,
	}
}

// MutualLikes returns the household's mutual likes, newest match first.
func (s *Service) MutualLikes(householdID int64) ([]model.MutualLike, error) {
	if cached, ok := s.cache.Get(householdID); ok {
		return cached, nil
	}

	mutual, err := s.interactions.MutualLikes(householdID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(householdID, mutual)
	return mutual, nil
}

// Invalidate drops the household's cached mutual likes. Call it after any
// interaction write or membership change.
func (s *Service) Invalidate(householdID int64) {
	s.cache.Remove(householdID)
}

// IsMutualLike reports whether the property is currently a mutual like for
// the household.
func (s *Service) IsMutualLike(householdID, propertyID int64) (bool, error) {
	mutual, err := s.MutualLikes(householdID)
	if err != nil {
		return false, err
	}
	for _, ml := range mutual {
		if ml.Property.ID == propertyID {
			return true, nil
		}
	}
	return false, nil
}

// PendingMutualLikes returns mutual likes that have not yet been notified.
func (s *Service) PendingMutualLikes(householdID int64) ([]model.MutualLike, error) {
	mutual, err := s.MutualLikes(householdID)
	if err != nil {
		return nil, err
	}
	seen, err := s.interactions.SeenPropertyIDs(householdID)
	if err != nil {
		return nil, err
	}

	var pending []model.MutualLike
	for _, ml := range mutual {
		if !seen[ml.Property.ID] {
			pending = append(pending, ml)
		}
	}
	return pending, nil
}

// NotifyResult summarizes a notification fan-out.
type NotifyResult struct {
	Notified  int `json:"notified"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Notify delivers every pending mutual like to the household: a webpush to
// each member's subscribed devices (honoring their preferences), one
// websocket broadcast per match, then the match is marked seen. Calling it
// again without new matches is a no-op.
func (s *Service) Notify(ctx context.Context, householdID int64) (NotifyResult, error) {
	var result NotifyResult

	pending, err := s.PendingMutualLikes(householdID)
	if err != nil {
		return result, fmt.Errorf("pending mutual likes: %w", err)
	}
	if len(pending) == 0 {
		return result, nil
	}

	members, err := s.households.ListMembers(householdID)
	if err != nil {
		return result, fmt.Errorf("list members: %w", err)
	}

	for _, ml := range pending {
		delivered, failed := s.pushMatch(ctx, members, ml)
		result.Delivered += delivered
		result.Failed += failed

		s.hub.Broadcast(householdID, ws.NewMessage("mutual_like", "matched", ml.Property.ID, map[string]any{
			"address": ml.Property.Address,
			"price":   ml.Property.Price,
		}))

		if _, err := s.interactions.MarkMutualLikeSeen(householdID, ml.Property.ID); err != nil {
			s.logger.Error("mark mutual like seen", "error", err, "property_id", ml.Property.ID)
			continue
		}
		result.Notified++
	}

	return result, nil
}

// pushMatch sends one match to every subscribed device of every member who
// wants mutual-like pushes. Expired subscriptions are pruned as they surface.
func (s *Service) pushMatch(ctx context.Context, members []model.HouseholdMember, ml model.MutualLike) (delivered, failed int) {
	if s.pushSvc == nil {
		return 0, 0
	}

	payload := push.Payload{
		Title: "It's a HomeMatch!",
		Body:  fmt.Sprintf("You both liked %s", ml.Property.Address),
		URL:   fmt.Sprintf("/properties/%d", ml.Property.ID),
		Tag:   fmt.Sprintf("mutual-like-%d", ml.Property.ID),
	}

	for _, member := range members {
		prefs, err := s.pushStore.GetPreferences(member.UserID)
		if err != nil {
			s.logger.Error("get push preferences", "error", err, "user_id", member.UserID)
			continue
		}
		if !prefs.MutualLikes {
			continue
		}

		subs, err := s.pushStore.ListSubscriptionsForUser(member.UserID)
		if err != nil {
			s.logger.Error("list push subscriptions", "error", err, "user_id", member.UserID)
			continue
		}

		for i := range subs {
			err := s.pushSvc.SendWithRetry(ctx, &subs[i], payload)
			if errors.Is(err, push.ErrExpired) {
				if err := s.pushStore.DeleteSubscription(subs[i].ID); err != nil {
					s.logger.Error("prune expired subscription", "error", err, "subscription_id", subs[i].ID)
				}
				continue
			}
			if err != nil {
				s.logger.Warn("push delivery failed", "error", err, "subscription_id", subs[i].ID)
				failed++
				continue
			}
			delivered++
		}
	}
	return delivered, failed
}
