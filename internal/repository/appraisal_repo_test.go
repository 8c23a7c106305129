package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/workflow"
	pkgerrors "faculty-appraisal/pkg/errors"
)

var caseNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func actorInput(id string, role model.Role) workflow.Input {
	return workflow.Input{ActorID: id, ActorRole: role, At: caseNow}
}

// step plans action against the stored case and applies it.
func step(t *testing.T, repo AppraisalRepository, action workflow.Action, in workflow.Input) (*workflow.Transition, error) {
	t.Helper()
	ctx := context.Background()
	current, err := repo.Get(ctx, "CSE", "fac001")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		current = nil
	} else if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tr, err := workflow.Plan(action, current, "fac001", "CSE", in)
	if err != nil {
		t.Fatalf("Plan %s: %v", action, err)
	}
	return tr, repo.Apply(ctx, tr, tr.Event())
}

func TestAppraisalRepo_SubmitAndApprove(t *testing.T) {
	repo := NewAppraisalRepo(newTestDB(t))
	ctx := context.Background()

	if _, err := step(t, repo, workflow.ActionSubmit, actorInput("fac001", model.RoleFaculty)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	approve := actorInput("hod01", model.RoleHOD)
	approve.Comments = "good work"
	if _, err := step(t, repo, workflow.ActionApprove, approve); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got, err := repo.Get(ctx, "CSE", "fac001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusHODApproved || got.Version != 2 {
		t.Errorf("status=%s version=%d", got.Status, got.Version)
	}
	if got.HODID == nil || *got.HODID != "hod01" || got.HODComments == nil || *got.HODComments != "good work" {
		t.Errorf("hod fields = %v %v", got.HODID, got.HODComments)
	}

	events, err := repo.Events(ctx, "CSE", "fac001")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Action != "submit" || events[1].ToStatus != model.StatusHODApproved {
		t.Errorf("events = %+v", events)
	}
}

func TestAppraisalRepo_StalePlanLosesRace(t *testing.T) {
	repo := NewAppraisalRepo(newTestDB(t))
	ctx := context.Background()
	if _, err := step(t, repo, workflow.ActionSubmit, actorInput("fac001", model.RoleFaculty)); err != nil {
		t.Fatal(err)
	}

	current, _ := repo.Get(ctx, "CSE", "fac001")
	approveIn := actorInput("hod01", model.RoleHOD)
	rejectIn := actorInput("hod02", model.RoleHOD)
	rejectIn.Reason = "incomplete"
	approve, _ := workflow.Plan(workflow.ActionApprove, current, "fac001", "CSE", approveIn)
	reject, _ := workflow.Plan(workflow.ActionReject, current, "fac001", "CSE", rejectIn)

	if err := repo.Apply(ctx, approve, approve.Event()); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := repo.Apply(ctx, reject, reject.Event()); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("second apply err = %v, want ErrOptimisticLock", err)
	}

	got, _ := repo.Get(ctx, "CSE", "fac001")
	if got.Status != model.StatusHODApproved || got.HODRejectionReason != nil {
		t.Errorf("loser leaked into row: %+v", got)
	}
	events, _ := repo.Events(ctx, "CSE", "fac001")
	if len(events) != 2 {
		t.Errorf("events = %d, want 2 (loser must not be logged)", len(events))
	}
}

func TestAppraisalRepo_DuplicateFirstSubmission(t *testing.T) {
	repo := NewAppraisalRepo(newTestDB(t))
	ctx := context.Background()
	in := actorInput("fac001", model.RoleFaculty)

	a, _ := workflow.Plan(workflow.ActionSubmit, nil, "fac001", "CSE", in)
	b, _ := workflow.Plan(workflow.ActionSubmit, nil, "fac001", "CSE", in)
	if err := repo.Apply(ctx, a, a.Event()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Apply(ctx, b, b.Event()); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("err = %v, want ErrOptimisticLock", err)
	}
}

func TestAppraisalRepo_DeanRejectClearsFlag(t *testing.T) {
	repo := NewAppraisalRepo(newTestDB(t))
	step(t, repo, workflow.ActionSubmit, actorInput("fac001", model.RoleFaculty))
	step(t, repo, workflow.ActionEscalateToDean, actorInput("hod01", model.RoleHOD))

	in := actorInput("dean01", model.RoleDean)
	in.Reason = "needs evidence"
	if _, err := step(t, repo, workflow.ActionDeanReject, in); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.Get(context.Background(), "CSE", "fac001")
	if got.Status != model.StatusReturnedToHOD || got.EscalatedToDean {
		t.Errorf("status=%s escalated=%v", got.Status, got.EscalatedToDean)
	}
}

func TestAppraisalRepo_ListAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewAppraisalRepo(db)
	ctx := context.Background()

	for i, c := range []model.AppraisalCase{
		{FacultyID: "fac001", Department: "CSE", Status: model.StatusSubmitted},
		{FacultyID: "fac002", Department: "CSE", Status: model.StatusHODApproved},
		{FacultyID: "fac003", Department: "ECE", Status: model.StatusSubmitted},
	} {
		c.SubmittedAt = caseNow.Add(time.Duration(i) * time.Minute)
		c.Version = 1
		if err := db.Create(&c).Error; err != nil {
			t.Fatal(err)
		}
	}

	cse, err := repo.List(ctx, AppraisalFilter{Department: "CSE"})
	if err != nil || len(cse) != 2 {
		t.Fatalf("List CSE = %d, err %v", len(cse), err)
	}
	submitted, _ := repo.List(ctx, AppraisalFilter{Status: model.StatusSubmitted})
	if len(submitted) != 2 {
		t.Errorf("List submitted = %d", len(submitted))
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[model.StatusSubmitted] != 2 || counts[model.StatusHODApproved] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

// ── driver failure paths ──

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func TestAppraisalRepo_ApplyZeroRowsRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppraisalRepo(db)

	current := &model.AppraisalCase{FacultyID: "fac001", Department: "CSE", Status: model.StatusSubmitted}
	current.Version = 1
	in := actorInput("hod01", model.RoleHOD)
	tr, err := workflow.Plan(workflow.ActionApprove, current, "fac001", "CSE", in)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "appraisal_cases" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.Apply(context.Background(), tr, tr.Event()); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("err = %v, want ErrOptimisticLock", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAppraisalRepo_GetDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppraisalRepo(db)

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "appraisal_cases"`)).WillReturnError(boom)

	if _, err := repo.Get(context.Background(), "CSE", "fac001"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want driver error", err)
	}
}
