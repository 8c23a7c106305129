package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"faculty-appraisal/internal/model"
)

// OTPRepository one-time code storage. Every mutation that races with
// concurrent verifications is a conditional update; callers read the
// boolean result instead of re-reading the row.
type OTPRepository interface {
	// Upsert replaces any previous code for the subject.
	Upsert(ctx context.Context, record *model.OtpRecord) error
	Get(ctx context.Context, userID string) (*model.OtpRecord, error)
	// ConsumeAttempt increments attempts only while the record still holds
	// codeHash and is unverified, unexpired and below maxAttempts. Returns
	// false when no attempt was left or the code was replaced.
	ConsumeAttempt(ctx context.Context, userID, codeHash string, maxAttempts int, now time.Time) (bool, error)
	// MarkVerified flips verified once for the record holding codeHash; a
	// second call, or a call after the code was replaced, returns false.
	MarkVerified(ctx context.Context, userID, codeHash string) (bool, error)
	// DeleteVerified removes a verified, unexpired record. Returns false if none matched.
	DeleteVerified(ctx context.Context, userID string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepo struct {
	db *gorm.DB
}

// NewOTPRepo creates an OTPRepository
func NewOTPRepo(db *gorm.DB) OTPRepository {
	return &otpRepo{db: db}
}

func (r *otpRepo) Upsert(ctx context.Context, record *model.OtpRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"code_hash":  record.CodeHash,
			"created_at": record.CreatedAt,
			"expires_at": record.ExpiresAt,
			"attempts":   0,
			"verified":   false,
		}),
	}).Create(record).Error
}

func (r *otpRepo) Get(ctx context.Context, userID string) (*model.OtpRecord, error) {
	var record model.OtpRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *otpRepo) ConsumeAttempt(ctx context.Context, userID, codeHash string, maxAttempts int, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OtpRecord{}).
		Where("user_id = ? AND code_hash = ? AND verified = ? AND attempts < ? AND expires_at > ?",
			userID, codeHash, false, maxAttempts, now).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *otpRepo) MarkVerified(ctx context.Context, userID, codeHash string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OtpRecord{}).
		Where("user_id = ? AND code_hash = ? AND verified = ?", userID, codeHash, false).
		UpdateColumn("verified", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *otpRepo) DeleteVerified(ctx context.Context, userID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND verified = ? AND expires_at > ?", userID, true, now).
		Delete(&model.OtpRecord{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *otpRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.OtpRecord{})
	return result.RowsAffected, result.Error
}
