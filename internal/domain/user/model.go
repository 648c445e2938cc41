// Package user manages staff accounts and authentication. Admin accounts
// are provisioned by the seed command; the API only creates staff.
package user

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is one account. PasswordHash never leaves the service layer.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Snapshot is the audit-log view of an account. Password hashes are
// deliberately excluded from the trail.
func (u *User) Snapshot() map[string]any {
	return map[string]any{
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      u.Role,
		"is_active": u.IsActive,
	}
}
