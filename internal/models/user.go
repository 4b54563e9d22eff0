package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account holder
type User struct {
	PublicID       uuid.UUID
	Email          string
	FullName       string
	HashedPassword string // never serialized
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// UserResponse is the public view of a user
type UserResponse struct {
	PublicID  uuid.UUID `json:"public_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser builds an active user stamped with a fresh public id
func NewUser(email, fullName, hashedPassword string, now time.Time) *User {
	now = now.UTC()
	return &User{
		PublicID:       uuid.New(),
		Email:          email,
		FullName:       fullName,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Response maps the user to its public view
func (u *User) Response() UserResponse {
	return UserResponse{
		PublicID:  u.PublicID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
}
