package store

import (
	"testing"

	"github.com/homematch/homematch/internal/auth"
	"github.com/homematch/homematch/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := NewUserStore(db)
	hs := NewHouseholdStore(db)
	u, err := us.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	h, err := hs.Create("The Smiths")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if _, err := hs.AddMember(h.ID, u.ID, auth.RoleAdmin); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return NewSessionStore(db), u.ID, h.ID
}

func TestSessionCreateAndGet(t *testing.T) {
	ss, userID, householdID := setupSessionTestDB(t)

	sess, err := ss.Create(userID, householdID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != userID || got.HouseholdID != householdID {
		t.Fatalf("got %+v, want user %d household %d", got, userID, householdID)
	}
}

func TestSessionGetByTokenUnknown(t *testing.T) {
	ss, _, _ := setupSessionTestDB(t)

	got, err := ss.GetByToken("nope")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, userID, householdID := setupSessionTestDB(t)

	sess, err := ss.Create(userID, householdID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteForUser(t *testing.T) {
	ss, userID, householdID := setupSessionTestDB(t)

	s1, _ := ss.Create(userID, householdID)
	s2, _ := ss.Create(userID, householdID)

	if err := ss.DeleteForUser(userID); err != nil {
		t.Fatalf("delete for user: %v", err)
	}
	for _, token := range []string{s1.Token, s2.Token} {
		if got, _ := ss.GetByToken(token); got != nil {
			t.Error("expected session gone after DeleteForUser")
		}
	}
}
