package dto

import "faculty-appraisal/internal/model"

// ── auth responses ──

// UserResponse account without password material
type UserResponse struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Dept   string `json:"dept"`
	Role   string `json:"role"`
	Desg   string `json:"desg"`
}

// NewUserResponse maps a stored account.
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:     u.ID,
		UserID: u.UserID,
		Name:   u.Name,
		Email:  u.Email,
		Dept:   u.Dept,
		Role:   u.Role.String(),
		Desg:   u.Designation(),
	}
}

// LoginResponse token plus profile
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"` // seconds
	User      UserResponse `json:"user"`
}

// MeResponse current account
type MeResponse struct {
	User UserResponse `json:"user"`
}

// RefreshResponse replacement token
type RefreshResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// SendOTPResponse OTP is only set while mail delivery is not wired.
type SendOTPResponse struct {
	Message   string `json:"message"`
	OTP       string `json:"otp,omitempty"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}
