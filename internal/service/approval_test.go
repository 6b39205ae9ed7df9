package service

import (
	"context"
	"errors"
	"testing"

	"warden/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type approvalFixture struct {
	users     *memUserRepo
	approvals *approvalRepoStub
	notifier  *notifierStub
	created   []models.ApprovalRequest
	updated   []models.ApprovalRequest
	svc       *ApprovalService
}

func newApprovalFixture(users ...models.User) *approvalFixture {
	f := &approvalFixture{
		users:     newMemUserRepo(users...),
		approvals: noopApprovalRepo(),
		notifier:  &notifierStub{},
	}
	f.approvals.createFn = func(_ context.Context, req *models.ApprovalRequest) error {
		req.ID = "created-" + req.UserID
		f.created = append(f.created, *req)
		return nil
	}
	f.approvals.updateFn = func(_ context.Context, req *models.ApprovalRequest) error {
		f.updated = append(f.updated, *req)
		return nil
	}
	f.svc = NewApprovalService(f.approvals, f.users, f.notifier)
	f.svc.now = fixedClock(t3)
	return f
}

func TestApprovalService_ApproveSynthetic(t *testing.T) {
	t.Parallel()

	u := pendingUser("u1", t1)
	role := models.RoleAdmin
	u.RequestedRole = &role
	f := newApprovalFixture(u)

	res, err := f.svc.Decide(context.Background(), superadmin, SyntheticReview{User: SnapshotOf(u)}, ActionApprove, "")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	require.Len(t, f.created, 1)
	assert.Equal(t, "u1", f.created[0].UserID)
	assert.Equal(t, models.ApprovalStatusPending, f.created[0].Status)
	assert.Equal(t, models.RoleAdmin, f.created[0].RequestedRole)

	require.Len(t, f.updated, 1)
	assert.Equal(t, "created-u1", f.updated[0].ID)
	assert.Equal(t, models.ApprovalStatusApproved, f.updated[0].Status)
	require.NotNil(t, f.updated[0].ReviewedAt)
	assert.Equal(t, t3, *f.updated[0].ReviewedAt)
	require.NotNil(t, f.updated[0].ReviewedBy)
	assert.Equal(t, superadmin.ID, *f.updated[0].ReviewedBy)

	stored := f.users.get("u1")
	assert.Equal(t, models.RoleAdmin, stored.UserType)
	assert.Equal(t, models.UserStatusActive, stored.Status)
	assert.Nil(t, stored.RequestedRole)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "u1", f.notifier.sent[0].UserID)
	assert.Equal(t, "Your admin account request has been approved! You can now log in with your new role.", f.notifier.sent[0].Message)
}

func TestApprovalService_ApproveFormalKeepsExistingNotes(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture(pendingUser("u1", t1))
	existing := "asked via support"
	req := formalRequest("r1", "u1", t2, models.ApprovalStatusPending)
	req.Notes = &existing

	res, err := f.svc.Decide(context.Background(), superadmin, FormalReview{Request: req}, ActionApprove, "  ")
	require.NoError(t, err)
	assert.Empty(t, f.created, "formal review must not be re-inserted")
	require.Len(t, f.updated, 1)
	require.NotNil(t, f.updated[0].Notes)
	assert.Equal(t, existing, *f.updated[0].Notes)
	require.NotNil(t, res.Request)
	assert.Equal(t, models.ApprovalStatusApproved, res.Request.Status)
}

func TestApprovalService_Reject(t *testing.T) {
	t.Parallel()

	t.Run("requires notes", func(t *testing.T) {
		t.Parallel()
		f := newApprovalFixture(pendingUser("u1", t1))
		_, err := f.svc.Decide(context.Background(), superadmin, SyntheticReview{User: SnapshotOf(pendingUser("u1", t1))}, ActionReject, "   ")
		assertAppErrorCode(t, err, models.CodeValidation)
		assert.Empty(t, f.created)
		assert.Empty(t, f.updated)
		assert.Equal(t, 0, f.users.writes)
	})

	t.Run("demotes and notifies with reason", func(t *testing.T) {
		t.Parallel()
		u := pendingUser("u1", t1)
		u.UserType = models.RoleAdmin
		f := newApprovalFixture(u)
		req := formalRequest("r1", "u1", t2, models.ApprovalStatusPending)

		_, err := f.svc.Decide(context.Background(), superadmin, FormalReview{Request: req}, ActionReject, "not eligible")
		require.NoError(t, err)

		require.Len(t, f.updated, 1)
		assert.Equal(t, models.ApprovalStatusRejected, f.updated[0].Status)
		require.NotNil(t, f.updated[0].Notes)
		assert.Equal(t, "not eligible", *f.updated[0].Notes)

		stored := f.users.get("u1")
		assert.Equal(t, models.RoleUser, stored.UserType)
		assert.Equal(t, models.UserStatusActive, stored.Status)

		require.Len(t, f.notifier.sent, 1)
		assert.Equal(t, "Your admin account request has been rejected. Reason: not eligible", f.notifier.sent[0].Message)
	})
}

func TestApprovalService_Decide_Validation(t *testing.T) {
	t.Parallel()

	root := models.User{ID: "root", FirstName: "R", LastName: "Oot", UserType: models.RoleSuperadmin, Status: models.UserStatusPendingAdmin}

	cases := []struct {
		name      string
		principal Principal
		review    Review
		action    ApprovalAction
		notes     string
		code      string
	}{
		{"unknown action", superadmin, FormalReview{Request: formalRequest("r1", "u1", t1, models.ApprovalStatusPending)}, "escalate", "", models.CodeValidation},
		{"already reviewed", superadmin, FormalReview{Request: formalRequest("r1", "u1", t1, models.ApprovalStatusApproved)}, ActionApprove, "", models.CodeValidation},
		{"superadmin target", superadmin, SyntheticReview{User: SnapshotOf(root)}, ActionApprove, "", models.CodeForbidden},
		{"unknown user", superadmin, FormalReview{Request: formalRequest("r9", "ghost", t1, models.ApprovalStatusPending)}, ActionApprove, "", models.CodeNotFound},
		{"admin principal", Principal{ID: "a1", Role: models.RoleAdmin}, FormalReview{Request: formalRequest("r1", "u1", t1, models.ApprovalStatusPending)}, ActionApprove, "", models.CodeForbidden},
		{"anonymous principal", Principal{}, FormalReview{Request: formalRequest("r1", "u1", t1, models.ApprovalStatusPending)}, ActionApprove, "", models.CodeUnauth},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newApprovalFixture(pendingUser("u1", t1), root)
			_, err := f.svc.Decide(context.Background(), tc.principal, tc.review, tc.action, tc.notes)
			assertAppErrorCode(t, err, tc.code)
			assert.Empty(t, f.created)
			assert.Empty(t, f.updated)
			assert.Equal(t, 0, f.users.writes)
		})
	}
}

func TestApprovalService_MaterializeFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture(pendingUser("u1", t1))
	f.approvals.createFn = func(context.Context, *models.ApprovalRequest) error {
		return models.NewStoreWriteError("create approval request", errors.New("connection reset"))
	}

	_, err := f.svc.Decide(context.Background(), superadmin, SyntheticReview{User: SnapshotOf(pendingUser("u1", t1))}, ActionApprove, "")
	assertAppErrorCode(t, err, models.CodeStoreWrite)
	assert.Empty(t, f.updated)
	assert.Equal(t, 0, f.users.writes)
	assert.Equal(t, models.UserStatusPendingAdmin, f.users.get("u1").Status)
	assert.Empty(t, f.notifier.sent)
}

func TestApprovalService_TransitionFailureKeepsMaterializedRow(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture(pendingUser("u1", t1))
	f.approvals.updateFn = func(context.Context, *models.ApprovalRequest) error {
		return models.NewStoreWriteError("update approval request", errors.New("deadlock detected"))
	}

	_, err := f.svc.Decide(context.Background(), superadmin, SyntheticReview{User: SnapshotOf(pendingUser("u1", t1))}, ActionApprove, "")
	assertAppErrorCode(t, err, models.CodeStoreWrite)

	require.Len(t, f.created, 1)
	assert.Equal(t, models.ApprovalStatusPending, f.created[0].Status)
	assert.Equal(t, 0, f.users.writes)
	assert.Equal(t, models.UserStatusPendingAdmin, f.users.get("u1").Status)
	assert.Empty(t, f.notifier.sent)
}

func TestApprovalService_UserWriteFailureKeepsRequestTransition(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture(pendingUser("u1", t1))
	f.users.updateFieldsFn = func(context.Context, string, map[string]any) (*models.User, error) {
		return nil, models.NewStoreWriteError("update user", errors.New("connection reset"))
	}
	stored := formalRequest("r1", "u1", t2, models.ApprovalStatusPending)

	_, err := f.svc.Decide(context.Background(), superadmin, FormalReview{Request: stored}, ActionReject, "not now")
	assertAppErrorCode(t, err, models.CodeStoreWrite)

	assert.Empty(t, f.created)
	require.Len(t, f.updated, 1)
	assert.Equal(t, "r1", f.updated[0].ID)
	assert.Equal(t, models.ApprovalStatusRejected, f.updated[0].Status)
	assert.Equal(t, models.UserStatusPendingAdmin, f.users.get("u1").Status)
	assert.Empty(t, f.notifier.sent)
}

func TestApprovalService_NotificationFailureIsWarning(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture(pendingUser("u1", t1))
	f.notifier.err = errors.New("notifications table locked")

	res, err := f.svc.Decide(context.Background(), superadmin, SyntheticReview{User: SnapshotOf(pendingUser("u1", t1))}, ActionApprove, "")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, EffectInApp, res.Warnings[0].Effect)
	assert.Equal(t, models.RoleAdmin, f.users.get("u1").UserType)
}

func TestApprovalService_ListAndResolve(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture(pendingUser("u1", t1), pendingUser("u2", t3))
	stored := formalRequest("r1", "u1", t2, models.ApprovalStatusPending)
	f.approvals.listFn = func(context.Context) ([]models.ApprovalRequest, error) {
		return []models.ApprovalRequest{stored}, nil
	}
	f.approvals.getByIDFn = func(_ context.Context, id string) (*models.ApprovalRequest, error) {
		if id == stored.ID {
			cp := stored
			return &cp, nil
		}
		return nil, models.NewNotFoundError("Approval request", id)
	}

	reviews, err := f.svc.ListReviews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pending-u2", "r1"}, ids(reviews))

	r, err := f.svc.Resolve(context.Background(), "pending-u2")
	require.NoError(t, err)
	assert.True(t, r.IsSynthetic())

	r, err = f.svc.Resolve(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, r.IsSynthetic())

	_, err = f.svc.Resolve(context.Background(), "pending-u1")
	assertAppErrorCode(t, err, models.CodeNotFound)

	_, err = f.svc.Resolve(context.Background(), "missing")
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestApprovalService_ListReviewsPropagatesFetchError(t *testing.T) {
	t.Parallel()

	f := newApprovalFixture()
	f.approvals.listFn = func(context.Context) ([]models.ApprovalRequest, error) {
		return nil, errors.New("timeout")
	}
	_, err := f.svc.ListReviews(context.Background())
	require.Error(t, err)
}
