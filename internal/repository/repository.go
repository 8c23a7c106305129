package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicate a unique constraint rejected the write.
var ErrDuplicate = errors.New("record already exists")

// Repository aggregate of all repositories
type Repository struct {
	User      UserRepository
	OTP       OTPRepository
	Appraisal AppraisalRepository
}

// NewRepository builds the aggregate over one connection pool.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:      NewUserRepo(db),
		OTP:       NewOTPRepo(db),
		Appraisal: NewAppraisalRepo(db),
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
