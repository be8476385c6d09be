package domain

// Role is the access level carried by an access token.
type Role string

// Roles.
const (
	RoleAdmin Role = "admin"
)

var roleLevels = map[Role]int{
	RoleAdmin: 1,
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// HasPermission reports whether r grants at least the access of required.
func (r Role) HasPermission(required Role) bool {
	return r.IsValid() && roleLevels[r] >= roleLevels[required]
}
