package models

import "github.com/google/uuid"

// Profile mirrors the auth provider's user record.
type Profile struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Email    string    `db:"email" json:"email"`
	FullName string    `db:"full_name" json:"full_name"`
}

// Listing is the subset of a home listing the negotiation workflow reads.
type Listing struct {
	ID      uuid.UUID `db:"id" json:"id"`
	OwnerID uuid.UUID `db:"owner_id" json:"owner_id"`
	Title   string    `db:"title" json:"title"`
}
