package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
)

type LeavesRepo struct {
	s *Store
}

func (r *LeavesRepo) Insert(ctx context.Context, rec leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.leaves[rec.ID] = rec
	return rec, nil
}

func (r *LeavesRepo) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.leaves[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	return rec, nil
}

func (r *LeavesRepo) List(ctx context.Context, f leave.ListLeavesFilter) ([]leave.LeaveRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var allowed map[string]struct{}
	if f.UserIDs != nil {
		allowed = make(map[string]struct{}, len(f.UserIDs))
		for _, id := range f.UserIDs {
			allowed[id] = struct{}{}
		}
	}

	out := make([]leave.LeaveRequest, 0)
	for _, rec := range r.s.leaves {
		if allowed != nil {
			if _, ok := allowed[rec.UserID]; !ok {
				continue
			}
		}
		if f.Status != nil && rec.Status != *f.Status {
			continue
		}
		out = append(out, rec)
	}

	// stable ordering, newest first like the listings in the API
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

// Update applies a patch only while the stored status is still submitted.
// That guard also covers the race where a decision landed between the
// service's read and this write.
func (r *LeavesRepo) Update(ctx context.Context, id string, req leave.UpdateLeaveRequest) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.leaves[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	if rec.Status != leave.StatusSubmitted {
		return leave.LeaveRequest{}, fmt.Errorf("%w: request is %s", leave.ErrInvalidTransition, rec.Status)
	}

	if req.Type != nil {
		rec.Type = *req.Type
	}
	if req.From != nil {
		rec.From = *req.From
	}
	if req.To != nil {
		rec.To = *req.To
	}
	if req.Comment != nil {
		rec.Comment = *req.Comment
	}
	rec.UpdatedAt = time.Now().UTC()

	r.s.leaves[id] = rec
	return rec, nil
}

func (r *LeavesRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.leaves[id]; !ok {
		return leave.ErrNotFound
	}
	delete(r.s.leaves, id)
	return nil
}

// ApplyDecision performs the status swap and the ledger bump under one lock.
// The ExpectedStatus check is the compare-and-swap: a second decision racing
// the first observes the post-transition status and fails.
func (r *LeavesRepo) ApplyDecision(ctx context.Context, d leave.Decision) (leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.leaves[d.RequestID]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	if rec.Status != d.ExpectedStatus {
		return leave.LeaveRequest{}, fmt.Errorf("%w: request is already %s", leave.ErrInvalidTransition, rec.Status)
	}

	decidedAt := d.DecidedAt
	rec.Status = d.Target
	switch d.Stage {
	case leave.StageManager:
		rec.ManagerID = &d.ActorID
		rec.ManagerDecisionAt = &decidedAt
	case leave.StageAdmin:
		rec.AdminID = &d.ActorID
		rec.AdminDecisionAt = &decidedAt
	}
	rec.UpdatedAt = time.Now().UTC()

	if d.LedgerDays != 0 {
		owner, ok := r.s.users[rec.UserID]
		if !ok {
			return leave.LeaveRequest{}, user.ErrNotFound
		}
		owner.UsedDays += d.LedgerDays
		if owner.UsedDays < 0 {
			owner.UsedDays = 0
		}
		owner.UpdatedAt = time.Now().UTC()
		r.s.users[rec.UserID] = owner
	}

	r.s.leaves[d.RequestID] = rec
	return rec, nil
}
