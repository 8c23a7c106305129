package dto

// ── auth ──

// LoginRequest login body
type LoginRequest struct {
	UserID   string `json:"userId"   binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SendOTPRequest one-time code request
type SendOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// VerifyOTPRequest one-time code check
type VerifyOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
	OTP    string `json:"otp"    binding:"required"`
}

// ResetPasswordRequest password reset after a verified code
type ResetPasswordRequest struct {
	UserID      string `json:"userId"      binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}
