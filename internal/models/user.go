package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolePlayer = "PLAYER"
	RoleAdmin  = "ADMIN"
)

type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Username        string     `json:"username"`
	Role            string     `json:"role"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Username     string
}
