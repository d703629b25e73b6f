package auth

import (
	"time"

	"github.com/sarpraslab/peminjaman-backend/internal/users"
	"github.com/sarpraslab/peminjaman-backend/pkg/events"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service signup form; the role is always borrower.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

// LoginResponse contains the token and the signed-in user.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
	// Events holds the login audit entry for the caller to dispatch.
	Events events.List `json:"-"`
}

type RegisterResponse struct {
	User   *users.UserDTO `json:"user"`
	Events events.List    `json:"-"`
}
