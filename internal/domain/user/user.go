package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	ManagerID    *string   `json:"managerId,omitempty"` // one hierarchy level only
	VacationDays int       `json:"vacationDays"`        // annual entitlement
	UsedDays     int       `json:"usedDays"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor is the authenticated identity performing an operation.
// Built from JWT claims by the auth middleware; the core trusts it as-is.
type Actor struct {
	ID   string
	Role Role
}

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidInput = errors.New("invalid user payload")
)

type CreateUserRequest struct {
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=8"`
	Name         string  `json:"name" binding:"required,min=2,max=120"`
	Role         Role    `json:"role" binding:"required,oneof=employee manager admin"`
	ManagerID    *string `json:"managerId" binding:"omitempty,uuid"`
	VacationDays int     `json:"vacationDays" binding:"omitempty,min=0,max=365"`
}

// a patch: nil pointers mean "leave unchanged"
type UpdateUserRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=2,max=120"`
	Role         *Role   `json:"role" binding:"omitempty,oneof=employee manager admin"`
	ManagerID    *string `json:"managerId" binding:"omitempty,uuid"`
	VacationDays *int    `json:"vacationDays" binding:"omitempty,min=0,max=365"`
}

type ListUsersFilter struct {
	IDs       []string // nil means no id restriction
	ManagerID *string
}

// NewFromCreateRequest builds a User from the incoming DTO.
// Emails compare case-insensitively everywhere, so store them folded.
func NewFromCreateRequest(req CreateUserRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         req.Role,
		ManagerID:    req.ManagerID,
		VacationDays: req.VacationDays,
		UsedDays:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
