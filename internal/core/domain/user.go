package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleAuditor = "auditor"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidUser  = errors.New("invalid user")
)

// User is an account record owned by the user store. The token core only
// reads it; provisioning goes through UserService.
type User struct {
	ID              string    `json:"id"`
	ApplicationType string    `json:"applicationType"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	IsActive        bool      `json:"isActive"`
	Roles           []string  `json:"roles"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
