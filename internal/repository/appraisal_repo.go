package repository

import (
	"context"

	"gorm.io/gorm"

	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/workflow"
	pkgerrors "faculty-appraisal/pkg/errors"
)

// AppraisalFilter list criteria; zero fields are ignored.
type AppraisalFilter struct {
	Department string
	Status     model.AppraisalStatus
}

// AppraisalRepository appraisal case data access
type AppraisalRepository interface {
	Get(ctx context.Context, department, facultyID string) (*model.AppraisalCase, error)
	// Apply persists a planned transition and its event in one transaction.
	// The update only matches while the row still carries the status and
	// version it was planned from; otherwise pkgerrors.ErrOptimisticLock.
	Apply(ctx context.Context, tr *workflow.Transition, event *model.AppraisalEvent) error
	List(ctx context.Context, filter AppraisalFilter) ([]model.AppraisalCase, error)
	Events(ctx context.Context, department, facultyID string) ([]model.AppraisalEvent, error)
	CountByStatus(ctx context.Context) (map[model.AppraisalStatus]int64, error)
}

type appraisalRepo struct {
	db *gorm.DB
}

// NewAppraisalRepo creates an AppraisalRepository
func NewAppraisalRepo(db *gorm.DB) AppraisalRepository {
	return &appraisalRepo{db: db}
}

func (r *appraisalRepo) Get(ctx context.Context, department, facultyID string) (*model.AppraisalCase, error) {
	var c model.AppraisalCase
	err := r.db.WithContext(ctx).
		Where("department = ? AND faculty_id = ?", department, facultyID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *appraisalRepo) Apply(ctx context.Context, tr *workflow.Transition, event *model.AppraisalEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tr.Created() {
			if err := tx.Create(tr.Next).Error; err != nil {
				// lost the race to another first submission
				if isUniqueViolation(err) {
					return pkgerrors.ErrOptimisticLock
				}
				return err
			}
		} else {
			result := tx.Model(tr.Next).
				Where("status = ? AND version = ?", tr.From, tr.ExpectedVersion()).
				Select(tr.Columns).
				Updates(tr.Next)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return pkgerrors.ErrOptimisticLock
			}
		}
		return tx.Create(event).Error
	})
}

func (r *appraisalRepo) List(ctx context.Context, filter AppraisalFilter) ([]model.AppraisalCase, error) {
	var cases []model.AppraisalCase
	db := r.db.WithContext(ctx)
	if filter.Department != "" {
		db = db.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	err := db.Order("submitted_at ASC").Find(&cases).Error
	return cases, err
}

func (r *appraisalRepo) Events(ctx context.Context, department, facultyID string) ([]model.AppraisalEvent, error) {
	var events []model.AppraisalEvent
	err := r.db.WithContext(ctx).
		Where("department = ? AND faculty_id = ?", department, facultyID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}

func (r *appraisalRepo) CountByStatus(ctx context.Context) (map[model.AppraisalStatus]int64, error) {
	var rows []struct {
		Status model.AppraisalStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.AppraisalCase{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.AppraisalStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
