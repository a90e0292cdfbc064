// Package models holds the mirror server's own persistence models. The six
// synchronized kinds live in internal/entity; only credentials are modeled
// here.
package models

import "time"

// Roles understood by the mirror. A tenant is scoped to its own company;
// the administrative console holds an admin user.
const (
	RoleTenant = "tenant"
	RoleAdmin  = "admin"
)

// User is a set of login credentials bound to a company.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CompanyID    string
	CreatedAt    time.Time
}
