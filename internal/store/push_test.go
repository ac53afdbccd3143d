package store

import (
	"testing"

	"github.com/homematch/homematch/internal/database"
)

func setupPushTestDB(t *testing.T) (*PushStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := NewUserStore(db)
	alice, err := us.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := us.Create("bob@example.com", "Bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	return NewPushStore(db), alice.ID, bob.ID
}

func TestPushSubscriptionCreateAndList(t *testing.T) {
	ps, alice, _ := setupPushTestDB(t)

	sub, err := ps.CreateSubscription(alice, "https://push.example.com/ep1", "p256dh", "auth", "Pixel")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.DeviceName != "Pixel" {
		t.Errorf("device = %q, want Pixel", sub.DeviceName)
	}

	subs, err := ps.ListSubscriptionsForUser(alice)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}
}

func TestPushSubscriptionEndpointReassigned(t *testing.T) {
	ps, alice, bob := setupPushTestDB(t)

	if _, err := ps.CreateSubscription(alice, "https://push.example.com/ep1", "k", "a", "Shared"); err != nil {
		t.Fatalf("create for alice: %v", err)
	}
	sub, err := ps.CreateSubscription(bob, "https://push.example.com/ep1", "k2", "a2", "Shared")
	if err != nil {
		t.Fatalf("re-create for bob: %v", err)
	}
	if sub.UserID != bob {
		t.Errorf("subscription user = %d, want %d", sub.UserID, bob)
	}

	aliceSubs, _ := ps.ListSubscriptionsForUser(alice)
	if len(aliceSubs) != 0 {
		t.Errorf("alice still has %d subscriptions, want 0", len(aliceSubs))
	}
}

func TestPushSubscriptionDelete(t *testing.T) {
	ps, alice, _ := setupPushTestDB(t)

	sub, err := ps.CreateSubscription(alice, "https://push.example.com/ep1", "k", "a", "Pixel")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if err := ps.DeleteSubscription(sub.ID); err != nil {
		t.Fatalf("delete subscription: %v", err)
	}

	got, err := ps.GetSubscription(sub.ID)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestPushPreferencesDefaults(t *testing.T) {
	ps, alice, _ := setupPushTestDB(t)

	prefs, err := ps.GetPreferences(alice)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if !prefs.MutualLikes {
		t.Error("mutual likes should default on")
	}
}

func TestPushPreferencesSet(t *testing.T) {
	ps, alice, _ := setupPushTestDB(t)

	prefs, err := ps.SetPreferences(alice, false, true)
	if err != nil {
		t.Fatalf("set preferences: %v", err)
	}
	if prefs.MutualLikes || !prefs.NewListings {
		t.Errorf("prefs = %+v, want mutual off, new listings on", prefs)
	}

	got, err := ps.GetPreferences(alice)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if got.MutualLikes || !got.NewListings {
		t.Errorf("round trip prefs = %+v", got)
	}
}
