package domain

import "time"

// Role is the backend's role string for a console user. Values outside the
// known set are carried through untouched so a newer backend does not break
// older consoles.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleEngineer      Role = "ENGINEER"
	RoleCustomerAdmin Role = "CUSTOMER_ADMIN"
	RoleCustomerUser  Role = "CUSTOMER_USER"
	RoleAuditor       Role = "AUDITOR"
)

// Valid reports whether the role is one of the enumerated platform roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEngineer, RoleCustomerAdmin, RoleCustomerUser, RoleAuditor:
		return true
	}
	return false
}

// Identity is the normalized result of a successful credential exchange.
// Produced once per login and immutable afterwards.
type Identity struct {
	UserID       string
	Email        string
	DisplayName  string // first + last name as reported by the backend
	Role         Role
	CustomerID   string // empty for platform-level users
	CustomerName string
	LastLogin    time.Time
}
