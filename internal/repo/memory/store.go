package memory

import (
	"sync"

	"github.com/pabloosss/Urlopy/internal/domain/leave"
	"github.com/pabloosss/Urlopy/internal/domain/user"
)

// Store holds everything behind one mutex so a decision can flip a request's
// status and bump the owner's used days as a single atomic unit, same as the
// postgres transaction does.
type Store struct {
	mu     sync.RWMutex
	users  map[string]user.User
	leaves map[string]leave.LeaveRequest
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]user.User),
		leaves: make(map[string]leave.LeaveRequest),
	}
}

func (s *Store) Users() *UsersRepo   { return &UsersRepo{s: s} }
func (s *Store) Leaves() *LeavesRepo { return &LeavesRepo{s: s} }
