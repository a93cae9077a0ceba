// Package moderation answers "is this user currently blocked" and enforces
// the role hierarchy on admin actions.
package moderation

// Role names, ordered. The hierarchy is a strict total order: an actor may
// only modify a target whose role is strictly lower, and may only assign a
// role strictly lower than their own.
const (
	RoleUser    = "user"
	RoleHost    = "host"
	RoleMod     = "mod"
	RoleCoOwner = "co_owner"
	RoleOwner   = "owner"
)

var roleLevels = map[string]int{
	RoleUser:    0,
	RoleHost:    1,
	RoleMod:     2,
	RoleCoOwner: 3,
	RoleOwner:   4,
}

// RoleLevel returns a role's position in the hierarchy, or -1 for an
// unknown role (which therefore outranks nothing and can assign nothing).
func RoleLevel(role string) int {
	if lvl, ok := roleLevels[role]; ok {
		return lvl
	}
	return -1
}

// ValidRole reports whether the role name is one of the five known roles.
func ValidRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// IsStaff reports whether the role grants access to the admin panel.
func IsStaff(role string) bool {
	return RoleLevel(role) >= roleLevels[RoleHost]
}

// CanModify reports whether actor may act on target (ban, restrict, change
// role). Equal ranks cannot touch each other; owner cannot be modified by
// anyone.
func CanModify(actorRole, targetRole string) bool {
	a, t := RoleLevel(actorRole), RoleLevel(targetRole)
	return a > 0 && t >= 0 && a > t
}

// CanAssign reports whether actor may hand out newRole. Assigning at or
// above the actor's own level is rejected, so a host can never mint an
// owner.
func CanAssign(actorRole, newRole string) bool {
	a, n := RoleLevel(actorRole), RoleLevel(newRole)
	return a > 0 && n >= 0 && a > n
}
