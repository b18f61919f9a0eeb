// Package user implements component B's User entity: signup, profile
// management, and the delete-with-reassignment lifecycle rule.
package user

import (
	"time"

	"github.com/google/uuid"
)

// SignupRequest is the JSON body for POST /api/v1/users/signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
	Domain   string `json:"domain"`
}

// UpdateRequest is the JSON body for PUT /api/v1/users/:id.
type UpdateRequest struct {
	Email  string `json:"email" validate:"omitempty,email"`
	Domain string `json:"domain"`
}

// Response is the JSON response for a single user.
type Response struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	GlobalAdmin bool      `json:"global_admin"`
	Domain      string    `json:"domain"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
