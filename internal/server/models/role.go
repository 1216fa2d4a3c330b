package models

// Role is a closed enumeration of account roles forming a strict total
// order: RoleUser < RoleModerator < RoleAdmin.
type Role int

const (
	RoleUser      Role = 1
	RoleModerator Role = 2
	RoleAdmin     Role = 3
)

// Meets reports whether r satisfies the required role level.
func (r Role) Meets(required Role) bool {
	return r >= required
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}
