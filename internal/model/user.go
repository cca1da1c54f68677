package model

import "time"

// UserKind is the account role stored in users.kind and carried in the
// access token's role claim.
type UserKind string

const (
	UserCustomer UserKind = "customer"
	UserAdmin    UserKind = "admin"
)

// User represents an account as stored in the `users` table.
type User struct {
	ID           uint64    // users.id
	GivenName    string    // users.given_name
	LastName     string    // users.last_name
	Email        string    // users.email_addr
	PasswordHash string    // users.password_hash
	Kind         UserKind  // users.kind
	CreatedAt    time.Time // users.created_at
}
