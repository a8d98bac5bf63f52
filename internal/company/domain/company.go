package domain

import "time"

// Company is a tenant. Slug is URL-safe, globally unique, and immutable after
// signup; only Name may change.
type Company struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
