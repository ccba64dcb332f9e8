package store

import (
	"testing"
	"time"
)

func TestHouseholdCreateDefaultsLocale(t *testing.T) {
	db := newTestDB(t)

	h, err := NewHouseholdStore(db).Create("Testgezin", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.Locale != "nl" {
		t.Errorf("locale = %q, want nl", h.Locale)
	}
}

func TestHouseholdGetByIDMissing(t *testing.T) {
	db := newTestDB(t)

	h, err := NewHouseholdStore(db).GetByID(9999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if h != nil {
		t.Errorf("got %+v, want nil for missing household", h)
	}
}

func TestStatsCountsPendingPerKid(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	anna := newTestKid(t, db, h.ID, "Anna")
	bram := newTestKid(t, db, h.ID, "Bram")
	c1 := newTestChore(t, db, h.ID, nil, 30, 2)
	c2 := newTestChore(t, db, h.ID, nil, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)
	now := time.Now()

	approved, _, err := cs.Submit(h.ID, c1.ID, anna.ID, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := cs.Decide(approved.ID, h.ID, true, now); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, _, err := cs.Submit(h.ID, c2.ID, anna.ID, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := cs.Submit(h.ID, c1.ID, bram.ID, now); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stats, err := NewHouseholdStore(db).Stats(h.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats rows = %d, want 2", len(stats))
	}
	// Ordered by display name.
	if stats[0].DisplayName != "Anna" || stats[1].DisplayName != "Bram" {
		t.Fatalf("stats order = %q, %q", stats[0].DisplayName, stats[1].DisplayName)
	}
	if stats[0].XP != 30 || stats[0].Coins != 2 {
		t.Errorf("Anna totals = %d xp, %d coins, want 30/2", stats[0].XP, stats[0].Coins)
	}
	if stats[0].PendingCount != 1 {
		t.Errorf("Anna pending = %d, want 1", stats[0].PendingCount)
	}
	if stats[1].XP != 0 || stats[1].PendingCount != 1 {
		t.Errorf("Bram = %d xp, %d pending, want 0 xp and 1 pending", stats[1].XP, stats[1].PendingCount)
	}
}
