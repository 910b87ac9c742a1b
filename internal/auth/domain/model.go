// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// ParseRole normalises role, defaulting blank values to staff.
func ParseRole(value string) (Role, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return RoleStaff, true
	}
	role := Role(v)
	return role, role.Valid()
}

// User represents a system user account.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:64"`
	Username     string     `json:"username" gorm:"size:128;not null;uniqueIndex"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	Role         Role       `json:"role" gorm:"size:16;not null"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
