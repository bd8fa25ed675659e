package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
	"github.com/pabloosss/Urlopy/internal/jobs"
)

// UserDirectory is the slice of the user store the leave workflow needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, f user.ListUsersFilter) ([]user.User, error)
}

// LeaveStore is the persistence contract for leave requests. ApplyDecision and
// Update must be atomic per record: the store applies the mutation only if the
// stored status still matches the guard, so two racing decisions cannot both
// win.
type LeaveStore interface {
	Insert(ctx context.Context, rec leave.LeaveRequest) (leave.LeaveRequest, error)
	GetByID(ctx context.Context, id string) (leave.LeaveRequest, error)
	List(ctx context.Context, f leave.ListLeavesFilter) ([]leave.LeaveRequest, error)
	Update(ctx context.Context, id string, req leave.UpdateLeaveRequest) (leave.LeaveRequest, error)
	Delete(ctx context.Context, id string) error
	ApplyDecision(ctx context.Context, d leave.Decision) (leave.LeaveRequest, error)
}

// DecisionEnqueuer hands finished decisions to the notification pipeline.
type DecisionEnqueuer interface {
	EnqueueDecisionNotice(ctx context.Context, p jobs.DecisionNoticePayload) error
}

type LeaveService struct {
	store LeaveStore
	users UserDirectory
	queue DecisionEnqueuer // optional
	log   *slog.Logger
}

func NewLeaveService(store LeaveStore, users UserDirectory, queue DecisionEnqueuer, log *slog.Logger) *LeaveService {
	if log == nil {
		log = slog.Default()
	}
	return &LeaveService{
		store: store,
		users: users,
		queue: queue,
		log:   log,
	}
}

// Create inserts a new request in the submitted state. Anyone may create for
// themself; managers and admins may also create on behalf of users they can
// see.
func (s *LeaveService) Create(ctx context.Context, actor user.Actor, req leave.CreateLeaveRequest) (leave.LeaveRequest, error) {
	if !req.Type.IsValid() {
		return leave.LeaveRequest{}, fmt.Errorf("%w: unknown type %q", leave.ErrValidation, req.Type)
	}
	if err := leave.ValidateDates(req.From, req.To); err != nil {
		return leave.LeaveRequest{}, err
	}

	ownerID := req.UserID
	if ownerID == "" {
		ownerID = actor.ID
	}

	if ownerID != actor.ID {
		if actor.Role != user.RoleManager && actor.Role != user.RoleAdmin {
			return leave.LeaveRequest{}, fmt.Errorf("%w: employees can only create their own requests", leave.ErrForbidden)
		}

		owner, err := s.users.GetByID(ctx, ownerID)
		if err != nil {
			return leave.LeaveRequest{}, err
		}
		if !user.CanSee(actor, owner) {
			return leave.LeaveRequest{}, fmt.Errorf("%w: user %s is outside your scope", leave.ErrForbidden, ownerID)
		}
	}

	return s.store.Insert(ctx, leave.NewFromCreateRequest(ownerID, req))
}

// List returns the requests visible to the actor. The visibility filter is
// recomputed from the directory on every call.
func (s *LeaveService) List(ctx context.Context, actor user.Actor, status *leave.Status, ownerID *string) ([]leave.LeaveRequest, error) {
	visible, err := s.visibleIDs(ctx, actor)
	if err != nil {
		return nil, err
	}

	f := leave.ListLeavesFilter{UserIDs: visible, Status: status}

	if ownerID != nil && *ownerID != "" {
		if visible != nil && !contains(visible, *ownerID) {
			// asking for someone outside your scope just yields nothing
			return []leave.LeaveRequest{}, nil
		}
		f.UserIDs = []string{*ownerID}
	}

	return s.store.List(ctx, f)
}

func (s *LeaveService) Get(ctx context.Context, actor user.Actor, id string) (leave.LeaveRequest, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	owner, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	if !user.CanSee(actor, owner) {
		return leave.LeaveRequest{}, fmt.Errorf("%w: request %s is outside your scope", leave.ErrForbidden, id)
	}

	return rec, nil
}

// Edit patches type, dates or comment while the request is still submitted.
// Only the owner or an admin may edit; the owner and status fields are
// untouchable.
func (s *LeaveService) Edit(ctx context.Context, actor user.Actor, id string, patch leave.UpdateLeaveRequest) (leave.LeaveRequest, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	if rec.UserID != actor.ID && actor.Role != user.RoleAdmin {
		return leave.LeaveRequest{}, fmt.Errorf("%w: only the owner or an admin may edit", leave.ErrForbidden)
	}
	if rec.Status != leave.StatusSubmitted {
		return leave.LeaveRequest{}, fmt.Errorf("%w: only submitted requests can be edited", leave.ErrInvalidTransition)
	}

	if patch.Type != nil && !patch.Type.IsValid() {
		return leave.LeaveRequest{}, fmt.Errorf("%w: unknown type %q", leave.ErrValidation, *patch.Type)
	}

	// re-validate the date pair the patch would produce
	from, to := rec.From, rec.To
	if patch.From != nil {
		from = *patch.From
	}
	if patch.To != nil {
		to = *patch.To
	}
	if err := leave.ValidateDates(from, to); err != nil {
		return leave.LeaveRequest{}, err
	}

	return s.store.Update(ctx, id, patch)
}

// Decide runs one approval-stage transition. The transition table is checked
// up front; the store then applies status plus ledger bookkeeping as a single
// guarded write, so a racing second decision observes the new status and fails.
func (s *LeaveService) Decide(ctx context.Context, actor user.Actor, id string, target leave.Status) (leave.LeaveRequest, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	// nobody decides their own request, admins included
	if rec.UserID == actor.ID {
		return leave.LeaveRequest{}, fmt.Errorf("%w: cannot decide your own request", leave.ErrForbidden)
	}

	owner, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	if actor.Role == user.RoleManager && !user.IsDirectManager(actor, owner) {
		return leave.LeaveRequest{}, fmt.Errorf("%w: not the owner's manager", leave.ErrForbidden)
	}

	if err := leave.CheckTransition(actor.Role, owner.Role, rec.Status, target); err != nil {
		return leave.LeaveRequest{}, err
	}

	d := leave.Decision{
		RequestID:      id,
		ActorID:        actor.ID,
		Target:         target,
		ExpectedStatus: rec.Status,
		DecidedAt:      time.Now().UTC(),
	}

	switch actor.Role {
	case user.RoleManager:
		d.Stage = leave.StageManager
	case user.RoleAdmin:
		d.Stage = leave.StageAdmin
	}

	if target == leave.StatusApproved && rec.Type.Countable() {
		d.LedgerDays = rec.Span()
	}

	updated, err := s.store.ApplyDecision(ctx, d)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	s.enqueueNotice(ctx, updated, actor)

	return updated, nil
}

// Delete removes a request: the owner may while it is still submitted, an
// admin at any status.
func (s *LeaveService) Delete(ctx context.Context, actor user.Actor, id string) error {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role == user.RoleAdmin {
		return s.store.Delete(ctx, id)
	}

	if rec.UserID != actor.ID {
		return fmt.Errorf("%w: only the owner or an admin may delete", leave.ErrForbidden)
	}
	if rec.Status != leave.StatusSubmitted {
		return fmt.Errorf("%w: only submitted requests can be deleted by their owner", leave.ErrInvalidTransition)
	}

	return s.store.Delete(ctx, id)
}

// visibleIDs delegates the scoping rule to the domain resolver. Only the
// manager case needs a directory read; admins and employees resolve from the
// actor alone.
func (s *LeaveService) visibleIDs(ctx context.Context, actor user.Actor) ([]string, error) {
	if actor.Role != user.RoleManager {
		return user.VisibleIDs(actor, nil), nil
	}

	reports, err := s.users.List(ctx, user.ListUsersFilter{ManagerID: &actor.ID})
	if err != nil {
		return nil, err
	}
	return user.VisibleIDs(actor, reports), nil
}

// notification failures never fail the decision itself
func (s *LeaveService) enqueueNotice(ctx context.Context, rec leave.LeaveRequest, actor user.Actor) {
	if s.queue == nil {
		return
	}

	p := jobs.DecisionNoticePayload{
		RequestID: rec.ID,
		OwnerID:   rec.UserID,
		DeciderID: actor.ID,
		Status:    string(rec.Status),
		DecidedAt: time.Now().UTC(),
	}

	if err := s.queue.EnqueueDecisionNotice(ctx, p); err != nil {
		s.log.Error("enqueue decision notice failed", "request_id", rec.ID, "err", err)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
