package leave

import (
	"fmt"

	"github.com/pabloosss/Urlopy/internal/domain/user"
)

type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusManagerApproved Status = "manager_approved"
	StatusRejectedManager Status = "rejected_manager"
	StatusApproved        Status = "approved"
	StatusRejectedAdmin   Status = "rejected_admin"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusManagerApproved, StatusRejectedManager, StatusApproved, StatusRejectedAdmin:
		return true
	default:
		return false
	}
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejectedManager, StatusRejectedAdmin:
		return true
	default:
		return false
	}
}

type edge struct {
	from Status
	to   Status
}

// The full transition table. Managers move submitted requests through the first
// stage; admins finalize manager-approved ones. The extra admin edges from
// "submitted" apply only when the request owner is themself a manager: their
// requests skip the manager stage entirely.
var (
	managerEdges = map[edge]struct{}{
		{StatusSubmitted, StatusManagerApproved}: {},
		{StatusSubmitted, StatusRejectedManager}: {},
	}

	adminEdges = map[edge]struct{}{
		{StatusManagerApproved, StatusApproved}:      {},
		{StatusManagerApproved, StatusRejectedAdmin}: {},
	}

	adminManagerOwnerEdges = map[edge]struct{}{
		{StatusSubmitted, StatusApproved}:      {},
		{StatusSubmitted, StatusRejectedAdmin}: {},
	}
)

// managerTargets / adminTargets are the outcomes each role is ever allowed to
// request. Asking for an outcome outside your role's set is an authorization
// failure; asking for a legal outcome from the wrong current status is a state
// failure. The distinction matters to callers (403 vs 409).
var (
	managerTargets = map[Status]struct{}{
		StatusManagerApproved: {},
		StatusRejectedManager: {},
	}

	adminTargets = map[Status]struct{}{
		StatusApproved:      {},
		StatusRejectedAdmin: {},
	}
)

// CheckTransition validates a decision attempt before any mutation happens.
// ownerRole is the role of the request owner, needed for the manager-owner
// admin-direct edges.
func CheckTransition(actorRole, ownerRole user.Role, current, target Status) error {
	if !target.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}
	if target == StatusSubmitted {
		return fmt.Errorf("%w: cannot transition back to %q", ErrInvalidTransition, StatusSubmitted)
	}

	switch actorRole {
	case user.RoleManager:
		if _, ok := managerTargets[target]; !ok {
			return fmt.Errorf("%w: managers cannot set status %q", ErrForbidden, target)
		}
		if _, ok := managerEdges[edge{current, target}]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
		}
		return nil

	case user.RoleAdmin:
		if _, ok := adminTargets[target]; !ok {
			return fmt.Errorf("%w: admins cannot set status %q", ErrForbidden, target)
		}
		if _, ok := adminEdges[edge{current, target}]; ok {
			return nil
		}
		if ownerRole == user.RoleManager {
			if _, ok := adminManagerOwnerEdges[edge{current, target}]; ok {
				return nil
			}
		}
		if current == StatusSubmitted {
			return fmt.Errorf("%w: manager approval required first", ErrInvalidTransition)
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)

	default:
		return fmt.Errorf("%w: role %q cannot decide requests", ErrForbidden, actorRole)
	}
}
