package models

import "time"

// RoleAdmin is the only role.
const RoleAdmin = "admin"

// AuthToken is a stored bearer token. Token holds the JWT ID (jti).
type AuthToken struct {
	ID        int64      `db:"id"         json:"id"`
	Token     string     `db:"token"      json:"-"`
	Username  string     `db:"username"   json:"username"`
	Role      string     `db:"role"       json:"role"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	LastUsed  *time.Time `db:"last_used"  json:"last_used"`
}

// User is the authenticated principal.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}
