package model

import (
	"strings"
	"time"
)

// Role names used in the users table and in the JWT "role" claim.
const (
	RoleAdmin     = "ADMIN"
	RoleOrganizer = "ORGANIZER"
	RoleCustomer  = "CUSTOMER"
)

// NormalizeRole upper-cases r and reports whether it is a known role.
func NormalizeRole(r string) (string, bool) {
	r = strings.ToUpper(strings.TrimSpace(r))
	switch r {
	case RoleAdmin, RoleOrganizer, RoleCustomer:
		return r, true
	}
	return "", false
}

// User represents an application user record as stored in the
// `users` table. PasswordHash never leaves the service.
//
// Fields:
//
//	ID           – user identifier (uuid).
//	Name         – display name.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash.
//	Role         – ADMIN, ORGANIZER or CUSTOMER.
//	AvatarImage  – optional base64 avatar.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	AvatarImage  string    `json:"avatarImage,omitempty" db:"avatar_image"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}
