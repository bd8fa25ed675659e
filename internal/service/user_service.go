package service

import (
	"context"
	"fmt"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
)

// UserStore is the full user persistence contract. Delete must cascade to the
// user's leave requests in the same atomic unit.
type UserStore interface {
	UserDirectory
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	AddUsedDays(ctx context.Context, id string, delta int) error
}

type Balance struct {
	UserID string `json:"userId"`
	Total  int    `json:"total"`
	Used   int    `json:"used"`
	Left   int    `json:"left"`
}

type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// List returns the users visible to the actor, same scoping rule as leave
// listings.
func (s *UserService) List(ctx context.Context, actor user.Actor) ([]user.User, error) {
	switch actor.Role {
	case user.RoleAdmin:
		return s.store.List(ctx, user.ListUsersFilter{})

	case user.RoleManager:
		self, err := s.store.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		reports, err := s.store.List(ctx, user.ListUsersFilter{ManagerID: &actor.ID})
		if err != nil {
			return nil, err
		}
		out := append([]user.User{self}, reports...)
		return out, nil

	default:
		self, err := s.store.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return []user.User{self}, nil
	}
}

func (s *UserService) Get(ctx context.Context, actor user.Actor, id string) (user.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if !user.CanSee(actor, u) {
		return user.User{}, fmt.Errorf("%w: user %s is outside your scope", leave.ErrForbidden, id)
	}
	return u, nil
}

func (s *UserService) Create(ctx context.Context, actor user.Actor, u user.User) (user.User, error) {
	if actor.Role != user.RoleAdmin {
		return user.User{}, fmt.Errorf("%w: admin role required", leave.ErrForbidden)
	}
	if u.ManagerID != nil {
		if _, err := s.store.GetByID(ctx, *u.ManagerID); err != nil {
			return user.User{}, fmt.Errorf("%w: managerId", user.ErrInvalidInput)
		}
	}
	return s.store.Create(ctx, u)
}

func (s *UserService) Update(ctx context.Context, actor user.Actor, id string, req user.UpdateUserRequest) (user.User, error) {
	if actor.Role != user.RoleAdmin {
		return user.User{}, fmt.Errorf("%w: admin role required", leave.ErrForbidden)
	}
	if req.ManagerID != nil {
		if *req.ManagerID == id {
			return user.User{}, fmt.Errorf("%w: user cannot manage themself", user.ErrInvalidInput)
		}
		if _, err := s.store.GetByID(ctx, *req.ManagerID); err != nil {
			return user.User{}, fmt.Errorf("%w: managerId", user.ErrInvalidInput)
		}
	}
	return s.store.Update(ctx, id, req)
}

// Delete removes the user and, by cascade, their leave requests.
func (s *UserService) Delete(ctx context.Context, actor user.Actor, id string) error {
	if actor.Role != user.RoleAdmin {
		return fmt.Errorf("%w: admin role required", leave.ErrForbidden)
	}
	return s.store.Delete(ctx, id)
}

// AdjustBalance applies a manual used-days correction, admin only. The store
// clamps the result at zero, so an over-correction downward cannot underflow
// the ledger.
func (s *UserService) AdjustBalance(ctx context.Context, actor user.Actor, id string, days int) (Balance, error) {
	if actor.Role != user.RoleAdmin {
		return Balance{}, fmt.Errorf("%w: admin role required", leave.ErrForbidden)
	}
	if days == 0 {
		return Balance{}, fmt.Errorf("%w: days must be non-zero", user.ErrInvalidInput)
	}

	if err := s.store.AddUsedDays(ctx, id, days); err != nil {
		return Balance{}, err
	}
	return s.Balance(ctx, actor, id)
}

func (s *UserService) Balance(ctx context.Context, actor user.Actor, id string) (Balance, error) {
	u, err := s.Get(ctx, actor, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		UserID: u.ID,
		Total:  u.VacationDays,
		Used:   u.UsedDays,
		Left:   u.VacationDays - u.UsedDays,
	}, nil
}
