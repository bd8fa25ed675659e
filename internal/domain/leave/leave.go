package leave

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeVacation Type = "vacation"
	TypeOnDemand Type = "on-demand"
	TypeOther    Type = "other"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeVacation, TypeOnDemand, TypeOther:
		return true
	default:
		return false
	}
}

// Countable leave types draw down the owner's vacation balance when approved.
// "other" (unpaid, sick and so on) never touches the ledger.
func (t Type) Countable() bool {
	switch t {
	case TypeVacation, TypeOnDemand:
		return true
	default:
		return false
	}
}

type LeaveRequest struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"` // owner, immutable after creation
	Type              Type       `json:"type"`
	From              Date       `json:"from"`
	To                Date       `json:"to"`
	Comment           string     `json:"comment,omitempty"`
	Status            Status     `json:"status"`
	ManagerID         *string    `json:"managerId,omitempty"`
	ManagerDecisionAt *time.Time `json:"managerDecisionAt,omitempty"`
	AdminID           *string    `json:"adminId,omitempty"`
	AdminDecisionAt   *time.Time `json:"adminDecisionAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Span is the inclusive day count of the request.
func (r LeaveRequest) Span() int {
	return DaysInclusive(r.From, r.To)
}

var (
	ErrNotFound          = errors.New("leave request not found")
	ErrValidation        = errors.New("invalid leave request")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
)

type CreateLeaveRequest struct {
	// UserID is optional: empty means "for myself". Managers and admins may
	// create on behalf of users they can see.
	UserID  string `json:"userId" binding:"omitempty,uuid"`
	Type    Type   `json:"type" binding:"required,oneof=vacation on-demand other"`
	From    Date   `json:"from" binding:"required"`
	To      Date   `json:"to" binding:"required"`
	Comment string `json:"comment" binding:"omitempty,max=500"`
}

// a patch; nil pointers leave the field unchanged. Owner and status can never
// be patched.
type UpdateLeaveRequest struct {
	Type    *Type   `json:"type" binding:"omitempty,oneof=vacation on-demand other"`
	From    *Date   `json:"from"`
	To      *Date   `json:"to"`
	Comment *string `json:"comment" binding:"omitempty,max=500"`
}

type ListLeavesFilter struct {
	UserIDs []string // nil means no owner restriction (admin view)
	Status  *Status
}

// DecisionStage tells the store which bookkeeping columns a decision writes.
type DecisionStage string

const (
	StageManager DecisionStage = "manager"
	StageAdmin   DecisionStage = "admin"
)

// Decision is a fully validated transition, ready to be applied atomically.
// ExpectedStatus is the compare-and-swap guard: the store must refuse to apply
// the decision if the stored status no longer matches it.
type Decision struct {
	RequestID      string
	ActorID        string
	Stage          DecisionStage
	Target         Status
	ExpectedStatus Status
	DecidedAt      time.Time
	// LedgerDays is the inclusive span to add to the owner's used days,
	// zero when the decision does not touch the balance.
	LedgerDays int
}

// ValidateDates enforces the from <= to invariant shared by create and edit.
func ValidateDates(from, to Date) error {
	if from.Time.IsZero() || to.Time.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrValidation)
	}
	if from.Time.After(to.Time) {
		return fmt.Errorf("%w: from is after to", ErrValidation)
	}
	return nil
}

// NewFromCreateRequest builds a LeaveRequest in the initial submitted state.
func NewFromCreateRequest(ownerID string, req CreateLeaveRequest) LeaveRequest {
	now := time.Now().UTC()

	return LeaveRequest{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Type:      req.Type,
		From:      req.From,
		To:        req.To,
		Comment:   req.Comment,
		Status:    StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
