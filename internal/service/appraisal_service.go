package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"faculty-appraisal/internal/dto"
	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/repository"
	"faculty-appraisal/internal/workflow"
	pkgerrors "faculty-appraisal/pkg/errors"
	"faculty-appraisal/pkg/jwt"
	"faculty-appraisal/pkg/metrics"
	"faculty-appraisal/pkg/validator"
)

const maxNoteLength = 2000

var (
	ErrUnknownDepartment = pkgerrors.Validation("Unknown department")
	ErrUnknownStatus     = pkgerrors.Validation("Unknown appraisal status")
	ErrFacultyNotFound   = pkgerrors.NotFound("Faculty member not found in department")
	ErrConcurrentUpdate  = pkgerrors.Conflict("Appraisal was changed by another request, reload and retry")
)

// AppraisalService appraisal workflow use cases
type AppraisalService interface {
	// Transition runs one workflow action on the case addressed by
	// (department, facultyID) and returns the confirmation message.
	Transition(ctx context.Context, action workflow.Action, department, facultyID string, actor jwt.Principal, req *dto.TransitionRequest) (string, error)
	Get(ctx context.Context, department, facultyID string) (*dto.AppraisalResponse, error)
	List(ctx context.Context, department, status string) (*dto.AppraisalListResponse, error)
	Summary(ctx context.Context) (*dto.SummaryResponse, error)
}

type appraisalService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAppraisalService creates an AppraisalService. now defaults to time.Now.
func NewAppraisalService(repo *repository.Repository, logger *zap.Logger, now func() time.Time) AppraisalService {
	if now == nil {
		now = time.Now
	}
	return &appraisalService{repo: repo, logger: logger, now: now}
}

func (s *appraisalService) Transition(
	ctx context.Context,
	action workflow.Action,
	department, facultyID string,
	actor jwt.Principal,
	req *dto.TransitionRequest,
) (string, error) {
	if err := validateCaseKey(department, facultyID); err != nil {
		return "", err
	}
	in := workflow.Input{
		ActorID:   actor.Subject,
		ActorRole: model.Role(actor.Role),
		Comments:  validator.Sanitize(req.Comments),
		Reason:    validator.Sanitize(req.Reason),
		At:        s.now(),
	}
	if err := validator.ValidateText("comments", in.Comments, maxNoteLength); err != nil {
		return "", pkgerrors.Validation(err.Error())
	}
	if err := validator.ValidateText("reason", in.Reason, maxNoteLength); err != nil {
		return "", pkgerrors.Validation(err.Error())
	}

	// 1. current state
	current, err := s.repo.Appraisal.Get(ctx, department, facultyID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		current = nil
	case err != nil:
		s.logger.Error("load appraisal failed", zap.String("faculty_id", facultyID), zap.Error(err))
		return "", pkgerrors.Internal(err)
	}

	if action == workflow.ActionSubmit && current == nil {
		if err := s.ensureFaculty(ctx, department, facultyID); err != nil {
			return "", err
		}
	}

	// 2. plan
	tr, err := workflow.Plan(action, current, facultyID, department, in)
	if err != nil {
		return "", err
	}

	// 3. guarded write plus history
	if err := s.repo.Appraisal.Apply(ctx, tr, tr.Event()); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Warn("appraisal transition lost race",
				zap.String("action", action.String()),
				zap.String("department", department),
				zap.String("faculty_id", facultyID),
			)
			return "", ErrConcurrentUpdate
		}
		s.logger.Error("apply appraisal transition failed", zap.String("action", action.String()), zap.Error(err))
		return "", pkgerrors.Internal(err)
	}

	metrics.Transition(action.String())
	s.logger.Info("appraisal transition",
		zap.String("action", action.String()),
		zap.String("department", department),
		zap.String("faculty_id", facultyID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("actor", actor.Subject),
	)
	return tr.Message, nil
}

func (s *appraisalService) ensureFaculty(ctx context.Context, department, facultyID string) error {
	user, err := s.repo.User.GetByUserID(ctx, facultyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFacultyNotFound
		}
		return pkgerrors.Internal(err)
	}
	if user.Dept != department {
		return ErrFacultyNotFound
	}
	return nil
}

func (s *appraisalService) Get(ctx context.Context, department, facultyID string) (*dto.AppraisalResponse, error) {
	if err := validateCaseKey(department, facultyID); err != nil {
		return nil, err
	}
	c, err := s.repo.Appraisal.Get(ctx, department, facultyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrCaseNotFound
		}
		return nil, pkgerrors.Internal(err)
	}
	events, err := s.repo.Appraisal.Events(ctx, department, facultyID)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	return &dto.AppraisalResponse{Case: c, Events: events}, nil
}

func (s *appraisalService) List(ctx context.Context, department, status string) (*dto.AppraisalListResponse, error) {
	if !model.ValidDepartment(department) {
		return nil, ErrUnknownDepartment
	}
	filter := repository.AppraisalFilter{Department: department}
	if status != "" {
		st := model.AppraisalStatus(status)
		if !st.Valid() {
			return nil, ErrUnknownStatus
		}
		filter.Status = st
	}
	cases, err := s.repo.Appraisal.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	if cases == nil {
		cases = []model.AppraisalCase{}
	}
	return &dto.AppraisalListResponse{Cases: cases, Total: len(cases)}, nil
}

func (s *appraisalService) Summary(ctx context.Context) (*dto.SummaryResponse, error) {
	byStatus, err := s.repo.Appraisal.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}
	byRole, err := s.repo.User.CountByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Internal(err)
	}

	resp := &dto.SummaryResponse{
		CasesByStatus: make(map[string]int64, len(model.AppraisalStatuses)),
		UsersByRole:   make(map[string]int64, len(model.Roles)),
	}
	for _, st := range model.AppraisalStatuses {
		resp.CasesByStatus[string(st)] = byStatus[st]
		resp.TotalCases += byStatus[st]
	}
	for _, r := range model.Roles {
		resp.UsersByRole[r.String()] = byRole[r]
	}
	return resp, nil
}

func validateCaseKey(department, facultyID string) error {
	if !model.ValidDepartment(department) {
		return ErrUnknownDepartment
	}
	if err := validator.ValidateUserID(facultyID); err != nil {
		return pkgerrors.Validation(err.Error())
	}
	return nil
}
