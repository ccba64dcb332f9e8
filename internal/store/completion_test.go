package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/AstroPony/KlusQuest/internal/model"
)

func newTestChore(t *testing.T, db *sql.DB, householdID int64, kidID *int64, baseXP, baseCoins int) *model.Chore {
	t.Helper()
	c, err := NewChoreStore(db).Create(householdID, "Vaatwasser uitruimen", "", model.FrequencyDaily, kidID, baseXP, baseCoins)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func TestSubmitCapturesRewardSnapshot(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	chore := newTestChore(t, db, h.ID, nil, 25, 4)
	cs := NewCompletionStore(db, PolicyApproval)

	comp, _, err := cs.Submit(h.ID, chore.ID, kid.ID, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if comp.XPEarned != 25 || comp.CoinsEarned != 4 {
		t.Errorf("snapshot = %d xp, %d coins, want 25/4", comp.XPEarned, comp.CoinsEarned)
	}
	if comp.State != model.StatePending {
		t.Errorf("state = %q, want pending", comp.State)
	}

	// Editing the chore afterwards must not change the captured amounts.
	if _, err := NewChoreStore(db).UpdateRewards(chore.ID, 999, 999); err != nil {
		t.Fatalf("update rewards: %v", err)
	}
	got, err := cs.GetInHousehold(comp.ID, h.ID)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	if got.XPEarned != 25 || got.CoinsEarned != 4 {
		t.Errorf("snapshot after edit = %d xp, %d coins, want 25/4", got.XPEarned, got.CoinsEarned)
	}
}

func TestSubmitRejectsSameDayRepeat(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	chore := newTestChore(t, db, h.ID, nil, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)

	morning := time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)
	evening := time.Date(2026, 3, 14, 21, 30, 0, 0, time.Local)
	nextDay := time.Date(2026, 3, 15, 0, 5, 0, 0, time.Local)

	if _, _, err := cs.Submit(h.ID, chore.ID, kid.ID, morning); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, _, err := cs.Submit(h.ID, chore.ID, kid.ID, evening); !errors.Is(err, ErrAlreadyCompletedToday) {
		t.Errorf("same-day repeat err = %v, want ErrAlreadyCompletedToday", err)
	}
	if _, _, err := cs.Submit(h.ID, chore.ID, kid.ID, nextDay); err != nil {
		t.Errorf("next-day submit: %v", err)
	}

	list, err := cs.ListByHousehold(h.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("completion count = %d, want 2", len(list))
	}
}

func TestSubmitSameChoreDifferentKids(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	a := newTestKid(t, db, h.ID, "Anna")
	b := newTestKid(t, db, h.ID, "Bram")
	chore := newTestChore(t, db, h.ID, nil, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)
	now := time.Now()

	if _, _, err := cs.Submit(h.ID, chore.ID, a.ID, now); err != nil {
		t.Fatalf("submit for first kid: %v", err)
	}
	if _, _, err := cs.Submit(h.ID, chore.ID, b.ID, now); err != nil {
		t.Errorf("submit for second kid: %v", err)
	}
}

func TestSubmitChoreAssignmentAndActivity(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	owner := newTestKid(t, db, h.ID, "Anna")
	other := newTestKid(t, db, h.ID, "Bram")
	assigned := newTestChore(t, db, h.ID, &owner.ID, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)
	now := time.Now()

	if _, _, err := cs.Submit(h.ID, assigned.ID, other.ID, now); !errors.Is(err, ErrChoreNotAssignable) {
		t.Errorf("wrong kid err = %v, want ErrChoreNotAssignable", err)
	}
	if _, _, err := cs.Submit(h.ID, assigned.ID, owner.ID, now); err != nil {
		t.Errorf("assigned kid submit: %v", err)
	}

	inactive := newTestChore(t, db, h.ID, nil, 10, 1)
	if err := NewChoreStore(db).SetActive(inactive.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := cs.Submit(h.ID, inactive.ID, owner.ID, now); !errors.Is(err, ErrChoreNotAssignable) {
		t.Errorf("inactive chore err = %v, want ErrChoreNotAssignable", err)
	}
}

func TestSubmitUnknownChoreOrForeignHousehold(t *testing.T) {
	db := newTestDB(t)
	h1 := newTestHousehold(t, db)
	h2 := newTestHousehold(t, db)
	kid := newTestKid(t, db, h1.ID, "Noor")
	chore := newTestChore(t, db, h1.ID, nil, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)
	now := time.Now()

	if _, _, err := cs.Submit(h1.ID, 9999, kid.ID, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown chore err = %v, want ErrNotFound", err)
	}
	if _, _, err := cs.Submit(h2.ID, chore.ID, kid.ID, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign household err = %v, want ErrNotFound", err)
	}
}

func TestApprovalPolicyCreditsOnApproveOnly(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	chore := newTestChore(t, db, h.ID, nil, 40, 6)
	cs := NewCompletionStore(db, PolicyApproval)
	ks := NewKidStore(db)

	comp, progress, err := cs.Submit(h.ID, chore.ID, kid.ID, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if progress != nil {
		t.Error("pending submission should not report progress")
	}
	p, err := ks.Snapshot(kid.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.XP != 0 || p.Coins != 0 {
		t.Errorf("ledger before approval = %d xp, %d coins, want 0/0", p.XP, p.Coins)
	}

	decided, progress, err := cs.Decide(comp.ID, h.ID, true, time.Now())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.State != model.StateApproved {
		t.Errorf("state = %q, want approved", decided.State)
	}
	if decided.DecidedAt == nil {
		t.Error("decided_at not recorded")
	}
	if progress == nil || progress.XP != 40 || progress.Coins != 6 {
		t.Errorf("progress after approval = %+v, want 40 xp, 6 coins", progress)
	}
}

func TestImmediatePolicyCreditsOnSubmit(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	chore := newTestChore(t, db, h.ID, nil, 40, 6)
	cs := NewCompletionStore(db, PolicyImmediate)

	comp, progress, err := cs.Submit(h.ID, chore.ID, kid.ID, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if progress == nil || progress.XP != 40 || progress.Coins != 6 {
		t.Errorf("progress on submit = %+v, want 40 xp, 6 coins", progress)
	}

	// Approval afterwards records the decision but must not credit again.
	if _, _, err := cs.Decide(comp.ID, h.ID, true, time.Now()); err != nil {
		t.Fatalf("decide: %v", err)
	}
	p, err := NewKidStore(db).Snapshot(kid.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.XP != 40 || p.Coins != 6 {
		t.Errorf("ledger after approve = %d xp, %d coins, want 40/6 (no double credit)", p.XP, p.Coins)
	}
}

func TestDecideIsFinal(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	chore := newTestChore(t, db, h.ID, nil, 40, 6)
	cs := NewCompletionStore(db, PolicyApproval)

	comp, _, err := cs.Submit(h.ID, chore.ID, kid.ID, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := cs.Decide(comp.ID, h.ID, true, time.Now()); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	if _, _, err := cs.Decide(comp.ID, h.ID, true, time.Now()); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("repeat approve err = %v, want ErrAlreadyDecided", err)
	}
	if _, _, err := cs.Decide(comp.ID, h.ID, false, time.Now()); !errors.Is(err, ErrAlreadyDecided) {
		t.Errorf("flip to deny err = %v, want ErrAlreadyDecided", err)
	}

	p, err := NewKidStore(db).Snapshot(kid.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.XP != 40 {
		t.Errorf("xp = %d, want 40 (credited exactly once)", p.XP)
	}
}

func TestDenyNeverCredits(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	chore := newTestChore(t, db, h.ID, nil, 40, 6)
	cs := NewCompletionStore(db, PolicyApproval)

	comp, _, err := cs.Submit(h.ID, chore.ID, kid.ID, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	decided, progress, err := cs.Decide(comp.ID, h.ID, false, time.Now())
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if decided.State != model.StateDenied {
		t.Errorf("state = %q, want denied", decided.State)
	}
	if progress != nil {
		t.Error("denial should not report progress")
	}

	p, err := NewKidStore(db).Snapshot(kid.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.XP != 0 || p.Coins != 0 {
		t.Errorf("ledger after deny = %d xp, %d coins, want 0/0", p.XP, p.Coins)
	}
}

func TestDecideScopedToHousehold(t *testing.T) {
	db := newTestDB(t)
	h1 := newTestHousehold(t, db)
	h2 := newTestHousehold(t, db)
	kid := newTestKid(t, db, h1.ID, "Noor")
	chore := newTestChore(t, db, h1.ID, nil, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)

	comp, _, err := cs.Submit(h1.ID, chore.ID, kid.ID, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := cs.Decide(comp.ID, h2.ID, true, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign household decide err = %v, want ErrNotFound", err)
	}
}

func TestListByHouseholdStateFilter(t *testing.T) {
	db := newTestDB(t)
	h := newTestHousehold(t, db)
	kid := newTestKid(t, db, h.ID, "Noor")
	c1 := newTestChore(t, db, h.ID, nil, 10, 1)
	c2 := newTestChore(t, db, h.ID, nil, 10, 1)
	cs := NewCompletionStore(db, PolicyApproval)
	now := time.Now()

	first, _, err := cs.Submit(h.ID, c1.ID, kid.ID, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := cs.Submit(h.ID, c2.ID, kid.ID, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := cs.Decide(first.ID, h.ID, true, now); err != nil {
		t.Fatalf("decide: %v", err)
	}

	pending, err := cs.ListByHousehold(h.ID, model.StatePending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ChoreID != c2.ID {
		t.Errorf("pending list = %+v, want only the undecided completion", pending)
	}

	all, err := cs.ListByHousehold(h.ID, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("full list length = %d, want 2", len(all))
	}
}

func TestParseCreditPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    CreditPolicy
		wantErr bool
	}{
		{"", PolicyApproval, false},
		{"approval", PolicyApproval, false},
		{"immediate", PolicyImmediate, false},
		{"banana", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCreditPolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCreditPolicy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCreditPolicy(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCreditPolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
