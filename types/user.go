package types

import (
	"strings"
	"time"
)

// Account roles. Participants register themselves; administrators are
// promoted out of band.
const (
	RoleParticipant = "user"
	RoleAdmin       = "admin"
)

// User is a contest account. Participants sign in with their email and are
// identified on results by registration number and department.
type User struct {
	ID         int    `json:"id" db:"id"`
	Email      string `json:"email" db:"email"`
	Name       string `json:"name" db:"name"`
	RegNo      string `json:"reg_no" db:"reg_no"`
	Department string `json:"department" db:"department"`
	Role       string `json:"role" db:"role"`

	// PasswordHash is a bcrypt hash and never leaves the server.
	PasswordHash string `json:"-" db:"password_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the account may manage contests.
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}
