package handler

import (
	"github.com/gin-gonic/gin"

	"faculty-appraisal/internal/api/middleware"
	"faculty-appraisal/internal/dto"
	"faculty-appraisal/internal/service"
	"faculty-appraisal/pkg/response"
)

// AuthHandler authentication HTTP handlers
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login password login
// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// Me current account
// GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.authSvc.Me(c.Request.Context(), p.Subject)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// Logout revokes the presented token
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, ok := MustGetPrincipal(c); !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "Logged out successfully")
}

// Refresh issues a replacement token
// POST /refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	if _, ok := MustGetPrincipal(c); !ok {
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// SendOTP issues a one-time code
// POST /send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.SendOTP(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// VerifyOTP checks a one-time code
// POST /verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.VerifyOTP(c.Request.Context(), &req); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "OTP verified successfully")
}

// ResetPassword sets a new password after a verified code
// POST /reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.ResetPassword(c.Request.Context(), &req); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "Password reset successfully")
}
