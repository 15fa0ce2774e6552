package models

import "time"

// User is an account that can log in and own presets.
type User struct {
	ID                  int64      `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	FullName            string     `db:"full_name" json:"full_name"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Email               *string    `db:"email" json:"email"`
	Role                UserRole   `db:"role" json:"role"`
	SuspendedAt         *time.Time `db:"suspended_at" json:"suspended_at,omitempty"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"last_login_at"`
	LoginCount          int        `db:"login_count" json:"login_count"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at" json:"-"`
}

// UserRole determines what a user may do.
type UserRole string

// Roles understood by the permission model.
const (
	RoleAdmin    UserRole = "admin"
	RoleEditor   UserRole = "editor"
	RoleListener UserRole = "listener"
)

// IsValid reports whether the role is known.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleListener:
		return true
	}
	return false
}

// IsSuspended reports whether the account has been suspended.
func (u *User) IsSuspended() bool {
	return u.SuspendedAt != nil
}
