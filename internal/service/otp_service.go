package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/repository"
	"faculty-appraisal/pkg/metrics"
	"faculty-appraisal/pkg/otp"
)

// OTPService hashed, attempt-bounded one-time codes.
type OTPService interface {
	// Store hashes code and replaces any previous record for subject.
	Store(ctx context.Context, subject, code string, ttl time.Duration) error
	// Verify reports whether candidate matches the live record. Every call that
	// reaches the comparison spends one attempt, matching or not.
	Verify(ctx context.Context, subject, candidate string, maxAttempts int) (bool, error)
	// Consume deletes a verified, unexpired record. False means there was none.
	Consume(ctx context.Context, subject string) (bool, error)
	// Cleanup deletes expired records and returns how many were removed.
	Cleanup(ctx context.Context) (int64, error)
}

type otpService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewOTPService creates an OTPService. now defaults to time.Now.
func NewOTPService(repo *repository.Repository, logger *zap.Logger, now func() time.Time) OTPService {
	if now == nil {
		now = time.Now
	}
	return &otpService{repo: repo, logger: logger, now: now}
}

func (s *otpService) Store(ctx context.Context, subject, code string, ttl time.Duration) error {
	now := s.now()
	return s.repo.OTP.Upsert(ctx, &model.OtpRecord{
		UserID:    subject,
		CodeHash:  otp.Hash(code),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

func (s *otpService) Verify(ctx context.Context, subject, candidate string, maxAttempts int) (bool, error) {
	record, err := s.repo.OTP.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.OTPVerified("refused")
			return false, nil
		}
		return false, err
	}

	now := s.now()
	if record.Verified || record.Expired(now) || record.Attempts >= maxAttempts {
		metrics.OTPVerified("refused")
		return false, nil
	}

	// spend the attempt before comparing; the conditional update caps concurrent
	// guesses and is pinned to the hash read above, so a code re-issued in the
	// meantime is never judged against the old one
	granted, err := s.repo.OTP.ConsumeAttempt(ctx, subject, record.CodeHash, maxAttempts, now)
	if err != nil {
		return false, err
	}
	if !granted {
		metrics.OTPVerified("refused")
		return false, nil
	}

	if !otp.Matches(record.CodeHash, candidate) {
		metrics.OTPVerified("mismatch")
		return false, nil
	}

	first, err := s.repo.OTP.MarkVerified(ctx, subject, record.CodeHash)
	if err != nil {
		return false, err
	}
	if !first {
		metrics.OTPVerified("refused")
		return false, nil
	}
	metrics.OTPVerified("ok")
	return true, nil
}

func (s *otpService) Consume(ctx context.Context, subject string) (bool, error) {
	return s.repo.OTP.DeleteVerified(ctx, subject, s.now())
}

func (s *otpService) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.repo.OTP.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired otp records removed", zap.Int64("count", n))
	}
	return n, nil
}
