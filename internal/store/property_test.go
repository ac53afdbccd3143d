package store

import (
	"database/sql"
	"testing"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/database"
	"github.com/homematch/homematch/internal/model"
)

func setupPropertyTestDB(t *testing.T) (*PropertyStore, *NeighborhoodStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPropertyStore(db), NewNeighborhoodStore(db), db
}

func testProperty(externalID string, price int64) *model.Property {
	return &model.Property{
		ExternalID:   externalID,
		Address:      "123 Main St",
		City:         "Portland",
		State:        "OR",
		ZipCode:      "97201",
		Price:        price,
		Beds:         3,
		Baths:        2,
		Sqft:         1800,
		YearBuilt:    1925,
		PropertyType: "house",
		Status:       model.PropertyStatusActive,
	}
}

func TestPropertyCreateAndGet(t *testing.T) {
	ps, _, _ := setupPropertyTestDB(t)

	created, err := ps.Create(testProperty("mls-100", 550000))
	if err != nil {
		t.Fatalf("create property: %v", err)
	}

	got, err := ps.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get property: %v", err)
	}
	if got.ExternalID != "mls-100" {
		t.Errorf("external id = %q, want %q", got.ExternalID, "mls-100")
	}
	if got.Price != 550000 {
		t.Errorf("price = %d, want 550000", got.Price)
	}
}

func TestPropertyUpsertUpdatesExisting(t *testing.T) {
	ps, _, _ := setupPropertyTestDB(t)

	first, err := ps.Upsert(testProperty("mls-100", 550000))
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	updated := testProperty("mls-100", 525000)
	updated.Status = model.PropertyStatusPending
	second, err := ps.Upsert(updated)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %d != %d", second.ID, first.ID)
	}
	if second.Price != 525000 {
		t.Errorf("price = %d, want 525000", second.Price)
	}
	if second.Status != model.PropertyStatusPending {
		t.Errorf("status = %q, want pending", second.Status)
	}
}

func TestPropertyListFilters(t *testing.T) {
	ps, _, _ := setupPropertyTestDB(t)

	cheap := testProperty("mls-1", 300000)
	cheap.Beds = 2
	mid := testProperty("mls-2", 500000)
	expensive := testProperty("mls-3", 900000)
	sold := testProperty("mls-4", 450000)
	sold.Status = model.PropertyStatusSold

	for _, p := range []*model.Property{cheap, mid, expensive, sold} {
		if _, err := ps.Create(p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := ps.List(PropertyFilter{Status: model.PropertyStatusActive, MinPrice: 400000, MaxPrice: 600000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "mls-2" {
		t.Fatalf("got %d properties, want just mls-2", len(got))
	}

	got, err = ps.List(PropertyFilter{Status: model.PropertyStatusActive, MinBeds: 3})
	if err != nil {
		t.Fatalf("list min beds: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d properties with 3+ beds, want 2", len(got))
	}
}

func TestPropertyListExcludesDecided(t *testing.T) {
	ps, _, db := setupPropertyTestDB(t)

	us := NewUserStore(db)
	hs := NewHouseholdStore(db)
	is := NewInteractionStore(db)

	u, _ := us.Create("alice@example.com", "Alice", "hash")
	h, _ := hs.Create("The Smiths")
	hs.AddMember(h.ID, u.ID, auth.RoleAdmin)

	liked, _ := ps.Create(testProperty("mls-1", 500000))
	viewed, _ := ps.Create(testProperty("mls-2", 500000))
	fresh, _ := ps.Create(testProperty("mls-3", 500000))

	if _, err := is.Record(h.ID, u.ID, liked.ID, model.InteractionLike); err != nil {
		t.Fatalf("record like: %v", err)
	}
	if _, err := is.Record(h.ID, u.ID, viewed.ID, model.InteractionView); err != nil {
		t.Fatalf("record view: %v", err)
	}

	got, err := ps.List(PropertyFilter{Status: model.PropertyStatusActive, ExcludeDecidedBy: u.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Views are not decisions, so the viewed property still shows.
	if len(got) != 2 {
		t.Fatalf("got %d properties, want 2", len(got))
	}
	seen := map[int64]bool{}
	for _, p := range got {
		seen[p.ID] = true
	}
	if seen[liked.ID] {
		t.Error("liked property still in the feed")
	}
	if !seen[viewed.ID] || !seen[fresh.ID] {
		t.Error("viewed and fresh properties should be in the feed")
	}
}

func TestNeighborhoodUpsertAndMedian(t *testing.T) {
	ps, ns, _ := setupPropertyTestDB(t)

	n, err := ns.Upsert(&model.Neighborhood{
		Name: "Alberta Arts", City: "Portland", WalkScore: 88, TransitScore: 55, Vibe: "artsy",
	})
	if err != nil {
		t.Fatalf("upsert neighborhood: %v", err)
	}

	again, err := ns.Upsert(&model.Neighborhood{
		Name: "Alberta Arts", City: "Portland", WalkScore: 90, TransitScore: 55, Vibe: "artsy",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != n.ID {
		t.Errorf("upsert created a new row: %d != %d", again.ID, n.ID)
	}
	if again.WalkScore != 90 {
		t.Errorf("walk score = %d, want 90", again.WalkScore)
	}

	for i, price := range []int64{300000, 500000, 700000} {
		p := testProperty("mls-"+string(rune('a'+i)), price)
		p.NeighborhoodID = &n.ID
		if _, err := ps.Create(p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	median, err := ns.MedianPrice(n.ID)
	if err != nil {
		t.Fatalf("median price: %v", err)
	}
	if median != 500000 {
		t.Errorf("median = %d, want 500000", median)
	}
}
