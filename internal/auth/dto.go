package auth

import (
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/users"
)

// GuestCart is the client-held cart sent along with register or login.
type GuestCart struct {
	Items []cart.GuestItem `json:"items"`
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name      string     `json:"name" validate:"required,min=2,max=50"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=6"`
	GuestCart *GuestCart `json:"guestCart,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required"`
	GuestCart *GuestCart `json:"guestCart,omitempty"`
}

// RefreshRequest trades a (possibly expired) access token and its refresh
// token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SessionResponse is returned by register, login and refresh.
type SessionResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user"`
}
