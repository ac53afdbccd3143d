package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/couples"
	"github.com/homematch/homematch/internal/database"
	"github.com/homematch/homematch/internal/model"
	"github.com/homematch/homematch/internal/store"
	ws "github.com/homematch/homematch/internal/websocket"
)

type swipeFixture struct {
	interactionH *InteractionHandler
	couplesH     *CouplesHandler
	properties   *store.PropertyStore
	householdID  int64
	alice        int64
	bob          int64
}

func setupSwipeFixture(t *testing.T) *swipeFixture {
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

	alice, _ := us.Create("alice@example.com", "Alice", "hash")
	bob, _ := us.Create("bob@example.com", "Bob", "hash")
	h, _ := hs.Create("The Smiths")
	hs.AddMember(h.ID, alice.ID, auth.RoleAdmin)
	hs.AddMember(h.ID, bob.ID, auth.RoleMember)

	hub := ws.NewHub(slog.Default())
	couplesSvc := couples.NewService(is, hs, pushStore, nil, hub, slog.Default())

	return &swipeFixture{
		interactionH: NewInteractionHandler(is, ps, couplesSvc, hub, slog.Default()),
		couplesH:     NewCouplesHandler(couplesSvc, is, slog.Default()),
		properties:   ps,
		householdID:  h.ID,
		alice:        alice.ID,
		bob:          bob.ID,
	}
}

func (f *swipeFixture) authCtx(userID int64) context.Context {
	role := auth.RoleMember
	if userID == f.alice {
		role = auth.RoleAdmin
	}
	return auth.WithAuth(context.Background(), auth.AuthContext{
		UserID:      userID,
		HouseholdID: f.householdID,
		Role:        role,
	})
}

func (f *swipeFixture) createProperty(t *testing.T, externalID string) int64 {
	t.Helper()
	p, err := f.properties.Create(&model.Property{
		ExternalID: externalID, Address: "123 Main St", City: "Portland",
		Price: 500000, Beds: 3, Status: model.PropertyStatusActive,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p.ID
}

func (f *swipeFixture) swipe(t *testing.T, userID, propertyID int64, kind string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"property_id":%d,"kind":%q}`, propertyID, kind)
	req := httptest.NewRequest(http.MethodPost, "/api/interactions", strings.NewReader(body))
	req = req.WithContext(f.authCtx(userID))
	rec := httptest.NewRecorder()
	f.interactionH.Create(rec, req)
	return rec
}

func TestSwipeCreate(t *testing.T) {
	f := setupSwipeFixture(t)
	pid := f.createProperty(t, "mls-1")

	rec := f.swipe(t, f.alice, pid, model.InteractionLike)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		MutualLike bool `json:"mutual_like"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MutualLike {
		t.Error("one like should not be a mutual like")
	}
}

func TestSwipeCompletesMutualLike(t *testing.T) {
	f := setupSwipeFixture(t)
	pid := f.createProperty(t, "mls-1")

	f.swipe(t, f.alice, pid, model.InteractionLike)
	rec := f.swipe(t, f.bob, pid, model.InteractionLike)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		MutualLike bool `json:"mutual_like"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.MutualLike {
		t.Error("second like should complete the mutual like")
	}
}

func TestSwipeInvalidKind(t *testing.T) {
	f := setupSwipeFixture(t)
	pid := f.createProperty(t, "mls-1")

	rec := f.swipe(t, f.alice, pid, "superlike")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSwipeUnknownProperty(t *testing.T) {
	f := setupSwipeFixture(t)

	rec := f.swipe(t, f.alice, 9999, model.InteractionLike)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSwipeDeleteUndo(t *testing.T) {
	f := setupSwipeFixture(t)
	pid := f.createProperty(t, "mls-1")
	f.swipe(t, f.alice, pid, model.InteractionLike)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/interactions/%d", pid), nil)
	req = req.WithContext(f.authCtx(f.alice))
	req.SetPathValue("property_id", fmt.Sprint(pid))
	rec := httptest.NewRecorder()
	f.interactionH.Delete(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	// Second delete finds nothing.
	rec = httptest.NewRecorder()
	f.interactionH.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCouplesMutualLikesEndpoint(t *testing.T) {
	f := setupSwipeFixture(t)
	pid := f.createProperty(t, "mls-1")
	f.swipe(t, f.alice, pid, model.InteractionLike)
	f.swipe(t, f.bob, pid, model.InteractionLike)

	req := httptest.NewRequest(http.MethodGet, "/api/couples/mutual-likes", nil)
	req = req.WithContext(f.authCtx(f.alice))
	rec := httptest.NewRecorder()
	f.couplesH.MutualLikes(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var mutual []model.MutualLike
	if err := json.Unmarshal(rec.Body.Bytes(), &mutual); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mutual) != 1 || mutual[0].Property.ID != pid {
		t.Fatalf("got %d mutual likes", len(mutual))
	}
}

func TestCouplesNotifyIdempotent(t *testing.T) {
	f := setupSwipeFixture(t)
	pid := f.createProperty(t, "mls-1")
	f.swipe(t, f.alice, pid, model.InteractionLike)
	f.swipe(t, f.bob, pid, model.InteractionLike)

	notify := func() couples.NotifyResult {
		req := httptest.NewRequest(http.MethodPost, "/api/couples/notify", nil)
		req = req.WithContext(f.authCtx(f.alice))
		rec := httptest.NewRecorder()
		f.couplesH.Notify(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("notify status = %d: %s", rec.Code, rec.Body.String())
		}
		var result couples.NotifyResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return result
	}

	if got := notify(); got.Notified != 1 {
		t.Errorf("first notify = %d, want 1", got.Notified)
	}
	if got := notify(); got.Notified != 0 {
		t.Errorf("second notify = %d, want 0", got.Notified)
	}
}

func TestCouplesSummary(t *testing.T) {
	f := setupSwipeFixture(t)
	agreed := f.createProperty(t, "mls-1")
	split := f.createProperty(t, "mls-2")

	f.swipe(t, f.alice, agreed, model.InteractionLike)
	f.swipe(t, f.bob, agreed, model.InteractionLike)
	f.swipe(t, f.alice, split, model.InteractionLike)
	f.swipe(t, f.bob, split, model.InteractionDislike)

	req := httptest.NewRequest(http.MethodGet, "/api/couples/summary", nil)
	req = req.WithContext(f.authCtx(f.alice))
	rec := httptest.NewRecorder()
	f.couplesH.Summary(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Members         []model.MemberSummary `json:"members"`
		MutualLikeCount int                   `json:"mutual_like_count"`
		DecidedTogether int                   `json:"decided_together"`
		AgreementRate   float64               `json:"agreement_rate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Members) != 2 {
		t.Errorf("members = %d, want 2", len(resp.Members))
	}
	if resp.MutualLikeCount != 1 {
		t.Errorf("mutual like count = %d, want 1", resp.MutualLikeCount)
	}
	if resp.DecidedTogether != 2 {
		t.Errorf("decided together = %d, want 2", resp.DecidedTogether)
	}
	if resp.AgreementRate != 0.5 {
		t.Errorf("agreement rate = %v, want 0.5", resp.AgreementRate)
	}
}
