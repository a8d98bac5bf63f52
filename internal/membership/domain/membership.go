package domain

import "time"

// Membership links a user to a company with a role and status. A user's role
// is meaningful only in the context of that company.
type Membership struct {
	ID        string
	CompanyID string
	UserID    string
	Role      Role
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleCompanyAdmin Role = "company_admin"
	RoleEmployee     Role = "employee"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCompanyAdmin, RoleEmployee:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInvited  Status = "invited"
	StatusDisabled Status = "disabled"
)

// Valid reports whether s is one of the closed set of membership statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInvited, StatusDisabled:
		return true
	}
	return false
}
