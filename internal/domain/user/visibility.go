package user

// Visibility rules: an admin sees everyone, a manager sees themself plus their
// direct reports (one hierarchy level), an employee only sees themself. These are
// pure functions of the directory snapshot and get reapplied on every read;
// nothing here is cached as a permission.

// CanSee reports whether the actor may see records owned by the given user.
func CanSee(actor Actor, owner User) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		if owner.ID == actor.ID {
			return true
		}
		return owner.ManagerID != nil && *owner.ManagerID == actor.ID
	default:
		return owner.ID == actor.ID
	}
}

// VisibleIDs computes the set of user ids whose requests the actor may see,
// given a directory snapshot. A nil result means "all users" (admin).
func VisibleIDs(actor Actor, users []User) []string {
	switch actor.Role {
	case RoleAdmin:
		return nil

	case RoleManager:
		ids := []string{actor.ID}
		for _, u := range users {
			if u.ID == actor.ID {
				continue
			}
			if u.ManagerID != nil && *u.ManagerID == actor.ID {
				ids = append(ids, u.ID)
			}
		}
		return ids

	default:
		return []string{actor.ID}
	}
}

// IsDirectManager reports whether the actor manages the owner directly.
func IsDirectManager(actor Actor, owner User) bool {
	if actor.Role != RoleManager {
		return false
	}
	return owner.ManagerID != nil && *owner.ManagerID == actor.ID
}
