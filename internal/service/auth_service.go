package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"faculty-appraisal/config"
	"faculty-appraisal/internal/dto"
	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/repository"
	pkgerrors "faculty-appraisal/pkg/errors"
	"faculty-appraisal/pkg/jwt"
	"faculty-appraisal/pkg/otp"
	"faculty-appraisal/pkg/validator"
)

var (
	ErrInvalidCredentials = pkgerrors.Unauthenticated("Invalid credentials")
	ErrAccountDisabled    = pkgerrors.Forbidden("Account is deactivated")
	ErrUserNotFound       = pkgerrors.NotFound("User not found")
	ErrInvalidOTP         = pkgerrors.Unauthenticated("Invalid or expired OTP")
	ErrInvalidToken       = pkgerrors.Unauthenticated("Invalid or expired token")
)

// comparePassword is swapped in tests to observe the comparisons made.
var comparePassword = bcrypt.CompareHashAndPassword

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// absentUserHash is compared against on the unknown-user path so that a
// missing account costs the same bcrypt work as a wrong password.
func absentUserHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("absent-user-placeholder"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// AuthService authentication use cases
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, userID string) (*dto.MeResponse, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*dto.RefreshResponse, error)
	SendOTP(ctx context.Context, req *dto.SendOTPRequest) (*dto.SendOTPResponse, error)
	VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	tokens *jwt.Manager
	otps   OTPService
	logger *zap.Logger
}

// NewAuthService creates an AuthService
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	tokens *jwt.Manager,
	otps OTPService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		tokens: tokens,
		otps:   otps,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	userID := validator.Sanitize(req.UserID)
	if err := validator.ValidateUserID(userID); err != nil {
		return nil, pkgerrors.Validation(err.Error())
	}

	// 1. look up the account
	user, err := s.repo.User.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = comparePassword(absentUserHash(), []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("load user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	// 2. password (bcrypt); deactivation is only revealed to the real owner
	if err := comparePassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// 3. token
	token, err := s.tokens.Issue(principalOf(user))
	if err != nil {
		s.logger.Error("issue token failed", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", userID), zap.String("role", user.Role.String()))
	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		User:      dto.NewUserResponse(user),
	}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.MeResponse, error) {
	user, err := s.repo.User.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, pkgerrors.Internal(err)
	}
	return &dto.MeResponse{User: dto.NewUserResponse(user)}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Error("revoke token failed", zap.Error(err))
		return pkgerrors.Internal(err)
	}
	return nil
}

func (s *authService) Refresh(ctx context.Context, token string) (*dto.RefreshResponse, error) {
	fresh, err := s.tokens.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenInvalid) || errors.Is(err, jwt.ErrTokenRevoked) {
			return nil, ErrInvalidToken
		}
		return nil, pkgerrors.Internal(err)
	}
	return &dto.RefreshResponse{Token: fresh, ExpiresIn: int(s.tokens.TTL().Seconds())}, nil
}

func (s *authService) SendOTP(ctx context.Context, req *dto.SendOTPRequest) (*dto.SendOTPResponse, error) {
	userID := validator.Sanitize(req.UserID)
	if err := validator.ValidateUserID(userID); err != nil {
		return nil, pkgerrors.Validation(err.Error())
	}

	user, err := s.repo.User.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, pkgerrors.Internal(err)
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}

	code, err := otp.Generate(s.cfg.OTP.Length)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	if err := s.otps.Store(ctx, userID, code, s.cfg.OTP.TTL); err != nil {
		s.logger.Error("store otp failed", zap.String("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	s.logger.Info("otp issued", zap.String("user_id", userID), zap.Duration("ttl", s.cfg.OTP.TTL))
	resp := &dto.SendOTPResponse{
		Message:   "OTP sent successfully",
		ExpiresIn: int(s.cfg.OTP.TTL.Seconds()),
	}
	if s.cfg.OTP.ReturnInResponse {
		resp.OTP = code
	}
	return resp, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *dto.VerifyOTPRequest) error {
	userID := validator.Sanitize(req.UserID)
	ok, err := s.otps.Verify(ctx, userID, validator.Sanitize(req.OTP), s.cfg.OTP.MaxAttempts)
	if err != nil {
		s.logger.Error("verify otp failed", zap.String("user_id", userID), zap.Error(err))
		return pkgerrors.Internal(err)
	}
	if !ok {
		return ErrInvalidOTP
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	userID := validator.Sanitize(req.UserID)
	if err := validator.ValidatePassword(req.NewPassword); err != nil {
		return pkgerrors.Validation(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return pkgerrors.Internal(err)
	}

	consumed, err := s.otps.Consume(ctx, userID)
	if err != nil {
		return pkgerrors.Internal(err)
	}
	if !consumed {
		return ErrInvalidOTP
	}

	if err := s.repo.User.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOTP
		}
		s.logger.Error("update password failed", zap.String("user_id", userID), zap.Error(err))
		return pkgerrors.Internal(err)
	}
	s.logger.Info("password reset", zap.String("user_id", userID))
	return nil
}

func principalOf(u *model.User) jwt.Principal {
	return jwt.Principal{
		Subject:    u.UserID,
		Role:       u.Role.String(),
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Dept,
	}
}
