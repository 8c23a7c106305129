package service

import (
	"go.uber.org/zap"

	"faculty-appraisal/config"
	"faculty-appraisal/internal/repository"
	"faculty-appraisal/pkg/jwt"
)

// Service aggregate of all services
type Service struct {
	Auth      AuthService
	OTP       OTPService
	Appraisal AppraisalService
}

// NewService wires every service over the shared repositories.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	tokens *jwt.Manager,
	logger *zap.Logger,
) *Service {
	otps := NewOTPService(repo, logger, nil)
	return &Service{
		Auth:      NewAuthService(cfg, repo, tokens, otps, logger),
		OTP:       otps,
		Appraisal: NewAppraisalService(repo, logger, nil),
	}
}
