package memory

import (
	"context"
	"strings"
	"time"

	"github.com/pabloosss/Urlopy/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if strings.ToLower(u.Email) == needle {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(ctx context.Context, f user.ListUsersFilter) ([]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var allowed map[string]struct{}
	if f.IDs != nil {
		allowed = make(map[string]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			allowed[id] = struct{}{}
		}
	}

	out := make([]user.User, 0)
	for _, u := range r.s.users {
		if allowed != nil {
			if _, ok := allowed[u.ID]; !ok {
				continue
			}
		}
		if f.ManagerID != nil {
			if u.ManagerID == nil || *u.ManagerID != *f.ManagerID {
				continue
			}
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, user.ErrEmailTaken
		}
	}

	r.s.users[u.ID] = u
	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.ManagerID != nil {
		u.ManagerID = req.ManagerID
	}
	if req.VacationDays != nil {
		u.VacationDays = *req.VacationDays
	}
	u.UpdatedAt = time.Now().UTC()

	r.s.users[id] = u
	return u, nil
}

// AddUsedDays bumps the ledger outside a decision path (admin corrections).
// Clamped at zero on the way down.
func (r *UsersRepo) AddUsedDays(ctx context.Context, id string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.ErrNotFound
	}

	u.UsedDays += delta
	if u.UsedDays < 0 {
		u.UsedDays = 0
	}
	u.UpdatedAt = time.Now().UTC()

	r.s.users[id] = u
	return nil
}

// Delete removes the user and cascades to their leave requests. Direct
// reports survive with their manager link cleared.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.s.users, id)

	for uid, u := range r.s.users {
		if u.ManagerID != nil && *u.ManagerID == id {
			u.ManagerID = nil
			u.UpdatedAt = time.Now().UTC()
			r.s.users[uid] = u
		}
	}

	for lid, rec := range r.s.leaves {
		if rec.UserID == id {
			delete(r.s.leaves, lid)
		}
	}
	return nil
}
