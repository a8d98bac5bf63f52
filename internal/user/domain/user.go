package domain

import "time"

// User is the core user entity. EmailNormalized (trimmed, lower-cased) is the
// uniqueness key across all tenants; Email keeps the display form. A user has
// one identity even when linked to multiple companies via memberships.
type User struct {
	ID              string
	Email           string
	EmailNormalized string
	PasswordHash    string
	FullName        string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
