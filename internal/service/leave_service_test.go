package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/jobs"
	"github.com/pabloosss/Urlopy/internal/repo/memory"
)

// fixture: one admin, one manager with two reports, one employee on another team

type fixture struct {
	svc    *LeaveService
	users  *memory.UsersRepo
	leaves *memory.LeavesRepo

	admin    user.Actor
	manager  user.Actor
	emp      user.Actor // reports to manager
	emp2     user.Actor // reports to manager
	stranger user.Actor // reports to nobody we know
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	users := store.Users()
	leaves := store.Leaves()

	f := &fixture{
		svc:    NewLeaveService(leaves, users, nil, nil),
		users:  users,
		leaves: leaves,
	}

	ctx := context.Background()
	now := time.Now().UTC()
	mgrID := "mgr-1"

	seed := []user.User{
		{ID: "adm-1", Email: "adm@example.com", Name: "Admin", Role: user.RoleAdmin, VacationDays: 26, CreatedAt: now, UpdatedAt: now},
		{ID: "mgr-1", Email: "mgr@example.com", Name: "Manager", Role: user.RoleManager, VacationDays: 26, CreatedAt: now, UpdatedAt: now},
		{ID: "emp-1", Email: "emp1@example.com", Name: "Emp One", Role: user.RoleEmployee, ManagerID: &mgrID, VacationDays: 20, CreatedAt: now, UpdatedAt: now},
		{ID: "emp-2", Email: "emp2@example.com", Name: "Emp Two", Role: user.RoleEmployee, ManagerID: &mgrID, VacationDays: 20, CreatedAt: now, UpdatedAt: now},
		{ID: "emp-9", Email: "emp9@example.com", Name: "Stranger", Role: user.RoleEmployee, VacationDays: 20, CreatedAt: now, UpdatedAt: now},
	}
	for _, u := range seed {
		if _, err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
	}

	f.admin = user.Actor{ID: "adm-1", Role: user.RoleAdmin}
	f.manager = user.Actor{ID: "mgr-1", Role: user.RoleManager}
	f.emp = user.Actor{ID: "emp-1", Role: user.RoleEmployee}
	f.emp2 = user.Actor{ID: "emp-2", Role: user.RoleEmployee}
	f.stranger = user.Actor{ID: "emp-9", Role: user.RoleEmployee}

	return f
}

func (f *fixture) submit(t *testing.T, actor user.Actor, typ leave.Type, from, to leave.Date) leave.LeaveRequest {
	t.Helper()

	rec, err := f.svc.Create(context.Background(), actor, leave.CreateLeaveRequest{
		Type: typ,
		From: from,
		To:   to,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return rec
}

func (f *fixture) usedDays(t *testing.T, id string) int {
	t.Helper()

	u, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %s: %v", id, err)
	}
	return u.UsedDays
}

func TestFullApprovalFlowChargesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.September, 2), leave.NewDate(2025, time.September, 3))

	rec, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved)
	if err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if rec.Status != leave.StatusManagerApproved {
		t.Fatalf("status = %s, want manager_approved", rec.Status)
	}
	if rec.ManagerID == nil || *rec.ManagerID != "mgr-1" || rec.ManagerDecisionAt == nil {
		t.Fatal("manager decision fields not stamped")
	}
	if got := f.usedDays(t, "emp-1"); got != 0 {
		t.Fatalf("ledger charged at manager stage: used=%d", got)
	}

	rec, err = f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved)
	if err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if rec.Status != leave.StatusApproved {
		t.Fatalf("status = %s, want approved", rec.Status)
	}
	if rec.AdminID == nil || *rec.AdminID != "adm-1" || rec.AdminDecisionAt == nil {
		t.Fatal("admin decision fields not stamped")
	}

	// 2 inclusive days
	if got := f.usedDays(t, "emp-1"); got != 2 {
		t.Fatalf("used days = %d, want 2", got)
	}
}

func TestRepeatedDecisionDoesNotDoubleCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.July, 7), leave.NewDate(2025, time.July, 11))

	if _, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved); err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if _, err := f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved); err != nil {
		t.Fatalf("admin approve: %v", err)
	}

	if got := f.usedDays(t, "emp-1"); got != 5 {
		t.Fatalf("used days = %d, want 5", got)
	}

	_, err := f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved)
	if !errors.Is(err, leave.ErrInvalidTransition) {
		t.Fatalf("second approval: got %v, want ErrInvalidTransition", err)
	}
	if got := f.usedDays(t, "emp-1"); got != 5 {
		t.Fatalf("used days after replay = %d, want 5", got)
	}
}

func TestRejectionNeverTouchesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.August, 4), leave.NewDate(2025, time.August, 8))

	if _, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusRejectedManager); err != nil {
		t.Fatalf("manager reject: %v", err)
	}
	if got := f.usedDays(t, "emp-1"); got != 0 {
		t.Fatalf("used days = %d, want 0", got)
	}
}

func TestNonCountableTypeApprovedWithoutCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeOther,
		leave.NewDate(2025, time.May, 5), leave.NewDate(2025, time.May, 9))

	if _, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved); err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if _, err := f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved); err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if got := f.usedDays(t, "emp-1"); got != 0 {
		t.Fatalf("used days = %d, want 0 for type other", got)
	}
}

func TestManagerOwnedRequestGoesStraightToAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.manager, leave.TypeVacation,
		leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 4))

	rec, err := f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved)
	if err != nil {
		t.Fatalf("admin direct approve: %v", err)
	}
	if rec.Status != leave.StatusApproved {
		t.Fatalf("status = %s, want approved", rec.Status)
	}
	if got := f.usedDays(t, "mgr-1"); got != 3 {
		t.Fatalf("used days = %d, want 3", got)
	}
}

func TestAdminCannotSkipManagerStageForEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.June, 2), leave.NewDate(2025, time.June, 4))

	_, err := f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved)
	if !errors.Is(err, leave.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
}

func TestNobodyDecidesTheirOwnRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// admin submits for themself, then tries to approve it
	rec, err := f.svc.Create(ctx, f.admin, leave.CreateLeaveRequest{
		Type: leave.TypeVacation,
		From: leave.NewDate(2025, time.April, 1),
		To:   leave.NewDate(2025, time.April, 2),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Decide(ctx, f.admin, rec.ID, leave.StatusApproved)
	if !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestManagerCannotDecideForeignTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.stranger, leave.TypeVacation,
		leave.NewDate(2025, time.March, 3), leave.NewDate(2025, time.March, 4))

	_, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved)
	if !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 3), leave.NewDate(2025, time.February, 4))
	f.submit(t, f.emp2, leave.TypeVacation,
		leave.NewDate(2025, time.February, 5), leave.NewDate(2025, time.February, 6))
	f.submit(t, f.stranger, leave.TypeVacation,
		leave.NewDate(2025, time.February, 7), leave.NewDate(2025, time.February, 8))

	admin, err := f.svc.List(ctx, f.admin, nil, nil)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(admin) != 3 {
		t.Fatalf("admin sees %d, want 3", len(admin))
	}

	mgr, err := f.svc.List(ctx, f.manager, nil, nil)
	if err != nil {
		t.Fatalf("manager list: %v", err)
	}
	if len(mgr) != 2 {
		t.Fatalf("manager sees %d, want 2 (both reports)", len(mgr))
	}

	emp, err := f.svc.List(ctx, f.emp, nil, nil)
	if err != nil {
		t.Fatalf("employee list: %v", err)
	}
	if len(emp) != 1 || emp[0].ID != mine.ID {
		t.Fatalf("employee sees %v, want only their own request", emp)
	}

	// filter for a user outside the manager's scope yields nothing, not an error
	out, err := f.svc.List(ctx, f.manager, nil, &f.stranger.ID)
	if err != nil {
		t.Fatalf("scoped list: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("manager should not see stranger's requests, got %d", len(out))
	}
}

func TestManagerScopeIncludesOwnRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own := f.submit(t, f.manager, leave.TypeVacation,
		leave.NewDate(2025, time.February, 10), leave.NewDate(2025, time.February, 11))
	f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 12), leave.NewDate(2025, time.February, 13))

	out, err := f.svc.List(ctx, f.manager, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("manager sees %d, want own + report's", len(out))
	}

	found := false
	for _, rec := range out {
		if rec.ID == own.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("manager's own request missing from their scope")
	}
}

func TestGetEnforcesVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 3), leave.NewDate(2025, time.February, 4))

	if _, err := f.svc.Get(ctx, f.manager, rec.ID); err != nil {
		t.Fatalf("manager get: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.admin, rec.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}

	_, err := f.svc.Get(ctx, f.stranger, rec.ID)
	if !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("stranger get: got %v, want ErrForbidden", err)
	}
}

func TestEditOnlyWhileSubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 3), leave.NewDate(2025, time.February, 4))

	newTo := leave.NewDate(2025, time.February, 5)
	updated, err := f.svc.Edit(ctx, f.emp, rec.ID, leave.UpdateLeaveRequest{To: &newTo})
	if err != nil {
		t.Fatalf("edit while submitted: %v", err)
	}
	if updated.Span() != 3 {
		t.Fatalf("span = %d, want 3", updated.Span())
	}

	// peer cannot edit
	_, err = f.svc.Edit(ctx, f.emp2, rec.ID, leave.UpdateLeaveRequest{To: &newTo})
	if !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("peer edit: got %v, want ErrForbidden", err)
	}

	if _, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved); err != nil {
		t.Fatalf("manager approve: %v", err)
	}

	// once decided, even the owner (and an admin) is locked out
	_, err = f.svc.Edit(ctx, f.emp, rec.ID, leave.UpdateLeaveRequest{To: &newTo})
	if !errors.Is(err, leave.ErrInvalidTransition) {
		t.Fatalf("owner edit after decision: got %v, want ErrInvalidTransition", err)
	}
	_, err = f.svc.Edit(ctx, f.admin, rec.ID, leave.UpdateLeaveRequest{To: &newTo})
	if !errors.Is(err, leave.ErrInvalidTransition) {
		t.Fatalf("admin edit after decision: got %v, want ErrInvalidTransition", err)
	}
}

func TestEditRevalidatesDatePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 3), leave.NewDate(2025, time.February, 4))

	// moving from past to would invert the range
	badFrom := leave.NewDate(2025, time.February, 10)
	_, err := f.svc.Edit(ctx, f.emp, rec.ID, leave.UpdateLeaveRequest{From: &badFrom})
	if !errors.Is(err, leave.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestCreateOnBehalf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// manager for a report: fine
	rec, err := f.svc.Create(ctx, f.manager, leave.CreateLeaveRequest{
		UserID: "emp-1",
		Type:   leave.TypeVacation,
		From:   leave.NewDate(2025, time.February, 3),
		To:     leave.NewDate(2025, time.February, 4),
	})
	if err != nil {
		t.Fatalf("manager create on behalf: %v", err)
	}
	if rec.UserID != "emp-1" || rec.Status != leave.StatusSubmitted {
		t.Fatalf("unexpected record %+v", rec)
	}

	// manager for a stranger: out of scope
	_, err = f.svc.Create(ctx, f.manager, leave.CreateLeaveRequest{
		UserID: "emp-9",
		Type:   leave.TypeVacation,
		From:   leave.NewDate(2025, time.February, 3),
		To:     leave.NewDate(2025, time.February, 4),
	})
	if !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}

	// employee for a peer: never
	_, err = f.svc.Create(ctx, f.emp, leave.CreateLeaveRequest{
		UserID: "emp-2",
		Type:   leave.TypeVacation,
		From:   leave.NewDate(2025, time.February, 3),
		To:     leave.NewDate(2025, time.February, 4),
	})
	if !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.emp, leave.CreateLeaveRequest{
		Type: leave.Type("sabbatical"),
		From: leave.NewDate(2025, time.February, 3),
		To:   leave.NewDate(2025, time.February, 4),
	})
	if !errors.Is(err, leave.ErrValidation) {
		t.Fatalf("bad type: got %v, want ErrValidation", err)
	}

	_, err = f.svc.Create(ctx, f.emp, leave.CreateLeaveRequest{
		Type: leave.TypeVacation,
		From: leave.NewDate(2025, time.February, 4),
		To:   leave.NewDate(2025, time.February, 3),
	})
	if !errors.Is(err, leave.ErrValidation) {
		t.Fatalf("inverted range: got %v, want ErrValidation", err)
	}
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 3), leave.NewDate(2025, time.February, 4))

	// peer cannot delete
	if err := f.svc.Delete(ctx, f.emp2, rec.ID); !errors.Is(err, leave.ErrForbidden) {
		t.Fatalf("peer delete: got %v, want ErrForbidden", err)
	}

	// owner can while submitted
	if err := f.svc.Delete(ctx, f.emp, rec.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	rec = f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 5), leave.NewDate(2025, time.February, 6))
	if _, err := f.svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved); err != nil {
		t.Fatalf("manager approve: %v", err)
	}

	// owner locked out after a decision, admin not
	if err := f.svc.Delete(ctx, f.emp, rec.ID); !errors.Is(err, leave.ErrInvalidTransition) {
		t.Fatalf("owner delete after decision: got %v, want ErrInvalidTransition", err)
	}
	if err := f.svc.Delete(ctx, f.admin, rec.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

// enqueue failures must not fail the decision

type failingQueue struct{ called bool }

func (q *failingQueue) EnqueueDecisionNotice(ctx context.Context, p jobs.DecisionNoticePayload) error {
	q.called = true
	return errors.New("redis is down")
}

func TestDecisionSurvivesQueueFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := &failingQueue{}
	svc := NewLeaveService(f.leaves, f.users, q, nil)

	rec := f.submit(t, f.emp, leave.TypeVacation,
		leave.NewDate(2025, time.February, 3), leave.NewDate(2025, time.February, 4))

	rec, err := svc.Decide(ctx, f.manager, rec.ID, leave.StatusManagerApproved)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if rec.Status != leave.StatusManagerApproved {
		t.Fatalf("status = %s, want manager_approved", rec.Status)
	}
	if !q.called {
		t.Fatal("queue was never invoked")
	}
}
