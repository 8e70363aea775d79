package domain

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleServiceAdmin    Role = "service_admin"
	RoleServiceEngineer Role = "service_engineer"
	RoleEndAdmin        Role = "end_admin"
	RoleEndEngineer     Role = "end_engineer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleServiceAdmin, RoleServiceEngineer, RoleEndAdmin, RoleEndEngineer:
		return true
	}
	return false
}

// IsEngineer reports whether the role is an engineer role of either side.
func (r Role) IsEngineer() bool {
	return r == RoleServiceEngineer || r == RoleEndEngineer
}

// Capability is a permission class derived from a role.
type Capability string

const (
	CapabilityService Capability = "service"
	CapabilityEnd     Capability = "end"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	UserID         string
	Role           Role
	OrganizationID string
}
