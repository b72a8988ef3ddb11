package domain

import "time"

// OperatorRole enumerates back-office roles.
type OperatorRole string

const (
	OperatorRoleAdmin      OperatorRole = "ADMIN"
	OperatorRoleDispatcher OperatorRole = "DISPATCHER"
	OperatorRoleTechnician OperatorRole = "TECHNICIAN"
)

// Valid reports whether the role is known.
func (r OperatorRole) Valid() bool {
	switch r {
	case OperatorRoleAdmin, OperatorRoleDispatcher, OperatorRoleTechnician:
		return true
	}
	return false
}

// Operator is an authenticated user of the service desk. Technicians link to one operator.
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         OperatorRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
