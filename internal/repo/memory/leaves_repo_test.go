package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
)

func seedStore(t *testing.T) (*Store, leave.LeaveRequest) {
	t.Helper()

	store := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Users().Create(ctx, user.User{
		ID: "emp-1", Email: "emp@example.com", Role: user.RoleEmployee,
		VacationDays: 20, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	rec, err := store.Leaves().Insert(ctx, leave.LeaveRequest{
		ID:     "req-1",
		UserID: "emp-1",
		Type:   leave.TypeVacation,
		From:   leave.NewDate(2025, time.September, 1),
		To:     leave.NewDate(2025, time.September, 3),
		Status: leave.StatusManagerApproved,
	})
	if err != nil {
		t.Fatalf("seed leave: %v", err)
	}
	return store, rec
}

// Many admins race to finalize the same request; exactly one wins and the
// ledger is charged exactly once.
func TestApplyDecisionIsAtomic(t *testing.T) {
	store, rec := seedStore(t)
	ctx := context.Background()

	const racers = 16

	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := store.Leaves().ApplyDecision(ctx, leave.Decision{
				RequestID:      rec.ID,
				ActorID:        "adm-1",
				Stage:          leave.StageAdmin,
				Target:         leave.StatusApproved,
				ExpectedStatus: leave.StatusManagerApproved,
				DecidedAt:      time.Now().UTC(),
				LedgerDays:     3,
			})
			if err == nil {
				wins <- struct{}{}
			} else if !errors.Is(err, leave.ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("%d decisions won, want exactly 1", won)
	}

	u, err := store.Users().GetByID(ctx, "emp-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.UsedDays != 3 {
		t.Fatalf("used days = %d, want 3", u.UsedDays)
	}
}

func TestApplyDecisionStampsStageFields(t *testing.T) {
	store, rec := seedStore(t)
	ctx := context.Background()

	decidedAt := time.Date(2025, time.September, 2, 9, 30, 0, 0, time.UTC)
	updated, err := store.Leaves().ApplyDecision(ctx, leave.Decision{
		RequestID:      rec.ID,
		ActorID:        "adm-1",
		Stage:          leave.StageAdmin,
		Target:         leave.StatusApproved,
		ExpectedStatus: leave.StatusManagerApproved,
		DecidedAt:      decidedAt,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if updated.AdminID == nil || *updated.AdminID != "adm-1" {
		t.Fatalf("admin id = %v", updated.AdminID)
	}
	if updated.AdminDecisionAt == nil || !updated.AdminDecisionAt.Equal(decidedAt) {
		t.Fatalf("admin decision at = %v", updated.AdminDecisionAt)
	}
	if updated.ManagerID != nil {
		t.Fatal("manager fields must stay untouched at the admin stage")
	}
}

func TestApplyDecisionUnknownRequest(t *testing.T) {
	store, _ := seedStore(t)

	_, err := store.Leaves().ApplyDecision(context.Background(), leave.Decision{
		RequestID:      "ghost",
		ExpectedStatus: leave.StatusSubmitted,
		Target:         leave.StatusManagerApproved,
	})
	if !errors.Is(err, leave.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateGuardedBySubmittedStatus(t *testing.T) {
	store, rec := seedStore(t)
	ctx := context.Background()

	comment := "changed"
	_, err := store.Leaves().Update(ctx, rec.ID, leave.UpdateLeaveRequest{Comment: &comment})
	if !errors.Is(err, leave.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition for non-submitted record", err)
	}
}
