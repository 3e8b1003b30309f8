// Package domain holds the types and errors the reconciliation core
// operates on, independent of HTTP transport or storage engine.
package domain

import "time"

// Precedence marks a Contact's position in its identity group.
type Precedence string

const (
	PrecedencePrimary   Precedence = "primary"
	PrecedenceSecondary Precedence = "secondary"
)

// Contact is one (email, phone) observation of a person plus its
// position in the identity graph. Email, Phone, LinkedID and DeletedAt
// are nil when absent.
type Contact struct {
	ID         int64
	Email      *string
	Phone      *string
	LinkedID   *int64
	Precedence Precedence
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// IsPrimary reports whether the contact is a group root.
func (c *Contact) IsPrimary() bool {
	return c.Precedence == PrecedencePrimary
}

// Request is the already-validated, already-normalized input to Reconcile.
type Request struct {
	Email *string
	Phone *string
}

// ConsolidatedContact is the public payload returned by a reconciliation.
type ConsolidatedContact struct {
	PrimaryContactID    int64    `json:"primaryContactId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}
