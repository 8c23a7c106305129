package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"faculty-appraisal/config"
	"faculty-appraisal/internal/model"
	"faculty-appraisal/internal/repository"
	"faculty-appraisal/internal/workflow"
	pkgerrors "faculty-appraisal/pkg/errors"
	"faculty-appraisal/pkg/jwt"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.UserID]; ok {
		return repository.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = "id-" + user.UserID
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByUserID(_ context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) SetActive(_ context.Context, userID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = active
	return nil
}

func (m *mockUserRepo) CountByRole(_ context.Context) (map[model.Role]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.Role]int64)
	for _, u := range m.users {
		counts[u.Role]++
	}
	return counts, nil
}

// ── Mock OTPRepository ──

type mockOTPRepo struct {
	mu      sync.Mutex
	records map[string]*model.OtpRecord
	// afterGet runs once Get has returned its copy, before the caller writes.
	afterGet func()
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{records: make(map[string]*model.OtpRecord)}
}

func (m *mockOTPRepo) Upsert(_ context.Context, record *model.OtpRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	cp.Attempts, cp.Verified = 0, false
	m.records[record.UserID] = &cp
	return nil
}

func (m *mockOTPRepo) Get(_ context.Context, userID string) (*model.OtpRecord, error) {
	m.mu.Lock()
	r, ok := m.records[userID]
	var cp model.OtpRecord
	if ok {
		cp = *r
	}
	hook := m.afterGet
	m.mu.Unlock()

	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (m *mockOTPRepo) ConsumeAttempt(_ context.Context, userID, codeHash string, maxAttempts int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok || r.CodeHash != codeHash || r.Verified || r.Attempts >= maxAttempts || !now.Before(r.ExpiresAt) {
		return false, nil
	}
	r.Attempts++
	return true, nil
}

func (m *mockOTPRepo) MarkVerified(_ context.Context, userID, codeHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok || r.CodeHash != codeHash || r.Verified {
		return false, nil
	}
	r.Verified = true
	return true, nil
}

func (m *mockOTPRepo) DeleteVerified(_ context.Context, userID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	if !ok || !r.Verified || !now.Before(r.ExpiresAt) {
		return false, nil
	}
	delete(m.records, userID)
	return true, nil
}

func (m *mockOTPRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if !now.Before(r.ExpiresAt) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// ── Mock AppraisalRepository ──

type mockAppraisalRepo struct {
	mu       sync.Mutex
	cases    map[string]*model.AppraisalCase // key: dept/faculty
	events   []model.AppraisalEvent
	applyErr error
	getErr   error
}

func newMockAppraisalRepo() *mockAppraisalRepo {
	return &mockAppraisalRepo{cases: make(map[string]*model.AppraisalCase)}
}

func caseKey(department, facultyID string) string { return department + "/" + facultyID }

func (m *mockAppraisalRepo) Get(_ context.Context, department, facultyID string) (*model.AppraisalCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.cases[caseKey(department, facultyID)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppraisalRepo) Apply(_ context.Context, tr *workflow.Transition, event *model.AppraisalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	key := caseKey(tr.Next.Department, tr.Next.FacultyID)
	stored, exists := m.cases[key]
	if tr.Created() {
		if exists {
			return pkgerrors.ErrOptimisticLock
		}
	} else if !exists || stored.Status != tr.From || stored.Version != tr.ExpectedVersion() {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *tr.Next
	m.cases[key] = &cp
	m.events = append(m.events, *event)
	return nil
}

func (m *mockAppraisalRepo) List(_ context.Context, filter repository.AppraisalFilter) ([]model.AppraisalCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AppraisalCase
	for _, c := range m.cases {
		if filter.Department != "" && c.Department != filter.Department {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockAppraisalRepo) Events(_ context.Context, department, facultyID string) ([]model.AppraisalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AppraisalEvent
	for _, e := range m.events {
		if e.Department == department && e.FacultyID == facultyID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockAppraisalRepo) CountByStatus(_ context.Context) (map[model.AppraisalStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.AppraisalStatus]int64)
	for _, c := range m.cases {
		counts[c.Status]++
	}
	return counts, nil
}

// ── test fixtures ──

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	cfg        *config.Config
	users      *mockUserRepo
	otpRecords *mockOTPRepo
	cases      *mockAppraisalRepo
	repo       *repository.Repository
	clock      *fakeClock
	tokens     *jwt.Manager
	otps       OTPService
	auth       AuthService
	appraisal  AppraisalService
}

func newFixture() *fixture {
	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret-0123456789", Issuer: "test", TokenTTL: 24 * time.Hour},
		OTP:  config.OTPConfig{Length: 6, TTL: 10 * time.Minute, MaxAttempts: 3, ReturnInResponse: true},
	}
	f := &fixture{
		cfg:        cfg,
		users:      newMockUserRepo(),
		otpRecords: newMockOTPRepo(),
		cases:      newMockAppraisalRepo(),
		clock:      newFakeClock(),
	}
	f.repo = &repository.Repository{User: f.users, OTP: f.otpRecords, Appraisal: f.cases}
	f.tokens = jwt.NewManager(&cfg.Auth, nil, jwt.WithClock(f.clock.Now))
	logger := zap.NewNop()
	f.otps = NewOTPService(f.repo, logger, f.clock.Now)
	f.auth = NewAuthService(cfg, f.repo, f.tokens, f.otps, logger)
	f.appraisal = NewAppraisalService(f.repo, logger, f.clock.Now)
	return f
}

func (f *fixture) addUser(userID, password string, role model.Role, dept string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.User{
		UserID:       userID,
		Name:         "User " + userID,
		Email:        userID + "@college.edu",
		Dept:         dept,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	_ = f.users.Create(context.Background(), u)
	return u
}
