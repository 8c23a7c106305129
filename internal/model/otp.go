package model

import "time"

// OtpRecord hashed one-time code, table otp_records
// One row per subject; a new code replaces the previous one.
type OtpRecord struct {
	UserID    string    `gorm:"type:varchar(50);primaryKey" json:"userId"`
	CodeHash  string    `gorm:"type:char(64);not null"      json:"-"`
	CreatedAt time.Time `gorm:"not null"                    json:"createdAt"`
	ExpiresAt time.Time `gorm:"not null;index"              json:"expiresAt"`
	Attempts  int       `gorm:"not null;default:0"          json:"attempts"`
	Verified  bool      `gorm:"not null;default:false"      json:"verified"`
}

// TableName table name
func (OtpRecord) TableName() string { return "otp_records" }

// Expired reports whether the record has reached its expiry at now.
func (r *OtpRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
