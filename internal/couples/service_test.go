package couples

import (
	"context"
	"log/slog"
	"testing"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/database"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
	ws "github.com/homematch/homematch/internal/websocket"
)

type fixture struct {
	svc          *Service
	interactions *store.InteractionStore
	properties   *store.PropertyStore
	households   *store.HouseholdStore
	householdID  int64
	alice        int64
	bob          int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := store.NewUserStore(db)
	hs := store.NewHouseholdStore(db)
	is := store.NewInteractionStore(db)
	ps := store.NewPropertyStore(db)
	pushStore := store.NewPushStore(db)

	alice, err := us.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := us.Create("bob@example.com", "Bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	h, err := hs.Create("The Smiths")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	hs.AddMember(h.ID, alice.ID, auth.RoleAdmin)
	hs.AddMember(h.ID, bob.ID, auth.RoleMember)

	hub := ws.NewHub(slog.Default())
	svc := NewService(is, hs, pushStore, nil, hub, slog.Default())

	return &fixture{
		svc:          svc,
		interactions: is,
		properties:   ps,
		households:   hs,
		householdID:  h.ID,
		alice:        alice.ID,
		bob:          bob.ID,
	}
}

func (f *fixture) likeBoth(t *testing.T, externalID string) int64 {
	t.Helper()
	p, err := f.properties.Create(&model.Property{
		ExternalID: externalID, Address: "123 Main St", City: "Portland",
		Price: 500000, Beds: 3, Status: model.PropertyStatusActive,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	if _, err := f.interactions.Record(f.householdID, f.alice, p.ID, model.InteractionLike); err != nil {
		t.Fatalf("alice like: %v", err)
	}
	if _, err := f.interactions.Record(f.householdID, f.bob, p.ID, model.InteractionLike); err != nil {
		t.Fatalf("bob like: %v", err)
	}
	return p.ID
}

func TestMutualLikesCached(t *testing.T) {
	f := setup(t)
	pid := f.likeBoth(t, "mls-1")

	mutual, err := f.svc.MutualLikes(f.householdID)
	if err != nil {
		t.Fatalf("mutual likes: %v", err)
	}
	if len(mutual) != 1 || mutual[0].Property.ID != pid {
		t.Fatalf("got %d mutual likes, want property %d", len(mutual), pid)
	}

	// A write that bypasses Invalidate is served stale from the cache.
	if err := f.interactions.Delete(f.householdID, f.bob, pid); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mutual, err = f.svc.MutualLikes(f.householdID)
	if err != nil {
		t.Fatalf("mutual likes: %v", err)
	}
	if len(mutual) != 1 {
		t.Fatalf("expected cached result, got %d", len(mutual))
	}

	f.svc.Invalidate(f.householdID)
	mutual, err = f.svc.MutualLikes(f.householdID)
	if err != nil {
		t.Fatalf("mutual likes: %v", err)
	}
	if len(mutual) != 0 {
		t.Fatalf("expected fresh result after invalidate, got %d", len(mutual))
	}
}

func TestIsMutualLike(t *testing.T) {
	f := setup(t)
	pid := f.likeBoth(t, "mls-1")

	ok, err := f.svc.IsMutualLike(f.householdID, pid)
	if err != nil {
		t.Fatalf("is mutual like: %v", err)
	}
	if !ok {
		t.Error("expected a mutual like")
	}

	ok, err = f.svc.IsMutualLike(f.householdID, pid+100)
	if err != nil {
		t.Fatalf("is mutual like: %v", err)
	}
	if ok {
		t.Error("unexpected mutual like for unknown property")
	}
}

func TestNotifyMarksSeenAndIsIdempotent(t *testing.T) {
	f := setup(t)
	f.likeBoth(t, "mls-1")
	f.likeBoth(t, "mls-2")
	f.svc.Invalidate(f.householdID)

	result, err := f.svc.Notify(context.Background(), f.householdID)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if result.Notified != 2 {
		t.Errorf("notified = %d, want 2", result.Notified)
	}

	// No new matches, nothing to do.
	result, err = f.svc.Notify(context.Background(), f.householdID)
	if err != nil {
		t.Fatalf("second notify: %v", err)
	}
	if result.Notified != 0 {
		t.Errorf("second notify = %d, want 0", result.Notified)
	}
}

func TestNotifyNewMatchAfterEarlierNotify(t *testing.T) {
	f := setup(t)
	f.likeBoth(t, "mls-1")
	f.svc.Invalidate(f.householdID)

	if _, err := f.svc.Notify(context.Background(), f.householdID); err != nil {
		t.Fatalf("notify: %v", err)
	}

	f.likeBoth(t, "mls-2")
	f.svc.Invalidate(f.householdID)

	result, err := f.svc.Notify(context.Background(), f.householdID)
	if err != nil {
		t.Fatalf("notify after new match: %v", err)
	}
	if result.Notified != 1 {
		t.Errorf("notified = %d, want 1", result.Notified)
	}
}

func TestPendingMutualLikesExcludesSeen(t *testing.T) {
	f := setup(t)
	seen := f.likeBoth(t, "mls-1")
	fresh := f.likeBoth(t, "mls-2")
	f.svc.Invalidate(f.householdID)

	if _, err := f.interactions.MarkMutualLikeSeen(f.householdID, seen); err != nil {
		t.Fatalf("mark seen: %v", err)
	}

	pending, err := f.svc.PendingMutualLikes(f.householdID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Property.ID != fresh {
		t.Fatalf("got %d pending, want just property %d", len(pending), fresh)
	}
}
