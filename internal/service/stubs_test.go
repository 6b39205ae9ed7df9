package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"warden/internal/mailer"
	"warden/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var superadmin = Principal{ID: "root-1", Role: models.RoleSuperadmin}

type userRepoStub struct {
	getByIDFn      func(context.Context, string) (*models.User, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	listFn         func(context.Context) ([]models.User, error)
	listByStatusFn func(context.Context, models.UserStatus) ([]models.User, error)
	createFn       func(context.Context, *models.User) error
	updateFn       func(context.Context, *models.User) error
	updateFieldsFn func(context.Context, string, map[string]any) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) List(ctx context.Context) ([]models.User, error) {
	return s.listFn(ctx)
}
func (s *userRepoStub) ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	return s.listByStatusFn(ctx, status)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	return s.updateFieldsFn(ctx, id, fields)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:      func(_ context.Context, id string) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:   func(context.Context, string) (*models.User, error) { return nil, nil },
		listFn:         func(context.Context) ([]models.User, error) { return nil, nil },
		listByStatusFn: func(context.Context, models.UserStatus) ([]models.User, error) { return nil, nil },
		createFn:       func(context.Context, *models.User) error { return nil },
		updateFn:       func(context.Context, *models.User) error { return nil },
		updateFieldsFn: func(_ context.Context, id string, _ map[string]any) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
}

// memUserRepo backs the stub with a map and counts field writes.
type memUserRepo struct {
	*userRepoStub
	mu     sync.Mutex
	users  map[string]*models.User
	writes int
}

func newMemUserRepo(users ...models.User) *memUserRepo {
	m := &memUserRepo{userRepoStub: noopUserRepo(), users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	m.getByIDFn = func(_ context.Context, id string) (*models.User, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		u, ok := m.users[id]
		if !ok {
			return nil, models.NewNotFoundError("User", id)
		}
		cp := *u
		return &cp, nil
	}
	m.listByStatusFn = func(_ context.Context, status models.UserStatus) ([]models.User, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		var out []models.User
		for _, u := range m.users {
			if u.Status == status {
				out = append(out, *u)
			}
		}
		return out, nil
	}
	m.updateFieldsFn = func(_ context.Context, id string, fields map[string]any) (*models.User, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		u, ok := m.users[id]
		if !ok {
			return nil, models.NewNotFoundError("User", id)
		}
		m.writes++
		applyFields(u, fields)
		cp := *u
		return &cp, nil
	}
	return m
}

func (m *memUserRepo) get(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func applyFields(u *models.User, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "user_type":
			u.UserType = v.(models.Role)
		case "status":
			u.Status = v.(models.UserStatus)
		case "requested_role":
			if r, ok := v.(models.Role); ok {
				u.RequestedRole = &r
			} else {
				u.RequestedRole = nil
			}
		case "is_banned":
			u.IsBanned = v.(bool)
		case "banned_until":
			if t, ok := v.(*time.Time); ok {
				u.BannedUntil = t
			} else {
				u.BannedUntil = nil
			}
		case "ban_reason":
			if s, ok := v.(string); ok {
				u.BanReason = &s
			} else {
				u.BanReason = nil
			}
		}
	}
}

type approvalRepoStub struct {
	listFn    func(context.Context) ([]models.ApprovalRequest, error)
	getByIDFn func(context.Context, string) (*models.ApprovalRequest, error)
	createFn  func(context.Context, *models.ApprovalRequest) error
	updateFn  func(context.Context, *models.ApprovalRequest) error
}

func (s *approvalRepoStub) List(ctx context.Context) ([]models.ApprovalRequest, error) {
	return s.listFn(ctx)
}
func (s *approvalRepoStub) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *approvalRepoStub) Create(ctx context.Context, req *models.ApprovalRequest) error {
	return s.createFn(ctx, req)
}
func (s *approvalRepoStub) Update(ctx context.Context, req *models.ApprovalRequest) error {
	return s.updateFn(ctx, req)
}

func noopApprovalRepo() *approvalRepoStub {
	return &approvalRepoStub{
		listFn: func(context.Context) ([]models.ApprovalRequest, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id string) (*models.ApprovalRequest, error) {
			return nil, models.NewNotFoundError("Approval request", id)
		},
		createFn: func(_ context.Context, req *models.ApprovalRequest) error {
			req.ID = "created-" + req.UserID
			return nil
		},
		updateFn: func(context.Context, *models.ApprovalRequest) error { return nil },
	}
}

type sentNotification struct {
	UserID  string
	Message string
}

type notifierStub struct {
	err  error
	sent []sentNotification
}

func (n *notifierStub) Notify(_ context.Context, userID, message string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Message: message})
	return nil
}

type sentMail struct {
	Template string
	Payload  mailer.Payload
}

type mailStub struct {
	err  error
	sent []sentMail
}

func (m *mailStub) Send(_ context.Context, name string, p mailer.Payload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{Template: name, Payload: p})
	return nil
}

type broadcasterStub struct {
	err  error
	sent []string
}

func (b *broadcasterStub) Broadcast(_ context.Context, kind, message string) error {
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, kind+": "+message)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
