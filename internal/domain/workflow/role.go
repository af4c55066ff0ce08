package workflow

// Role is the actor role carried in the session credential
type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleTravelAdmin Role = "HR Travel Admin"
	RoleEmployee    Role = "Employee"
	RoleManager     Role = "Manager"
)

// IsValid returns true if the role is one of the seeded roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTravelAdmin, RoleEmployee, RoleManager:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
