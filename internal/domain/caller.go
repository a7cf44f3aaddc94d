package domain

import "github.com/google/uuid"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"
)

// Caller is the identity a request acts as. It is resolved by the API layer.
type Caller struct {
	UserID         string
	Role           Role
	OrganizationID uuid.UUID
}

func (c Caller) IsPrivileged() bool {
	return c.Role == RoleAdmin || c.Role == RoleSuperAdmin
}

func (c Caller) CanAccess(orgID uuid.UUID) bool {
	return c.IsPrivileged() || c.OrganizationID == orgID
}
