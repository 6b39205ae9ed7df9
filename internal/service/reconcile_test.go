package service

import (
	"testing"
	"time"

	"warden/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t1 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(24 * time.Hour)
	t3 = t2.Add(24 * time.Hour)
)

func pendingUser(id string, created time.Time) models.User {
	return models.User{
		ID:        id,
		FirstName: "P",
		LastName:  id,
		Email:     id + "@example.com",
		UserType:  models.RoleUser,
		Status:    models.UserStatusPendingAdmin,
		CreatedAt: created,
	}
}

func formalRequest(id, userID string, at time.Time, status models.ApprovalStatus) models.ApprovalRequest {
	return models.ApprovalRequest{
		ID:            id,
		UserID:        userID,
		RequestedRole: models.RoleAdmin,
		RequestedAt:   at,
		Status:        status,
	}
}

func ids(reviews []Review) []string {
	out := make([]string, len(reviews))
	for i, r := range reviews {
		out[i] = r.ID()
	}
	return out
}

func TestReconcile_SynthesizesMissingAndSortsNewestFirst(t *testing.T) {
	t.Parallel()

	formal := []models.ApprovalRequest{formalRequest("r1", "u1", t1, models.ApprovalStatusPending)}
	pending := []models.User{pendingUser("u2", t2), pendingUser("u3", t3)}

	got := Reconcile(formal, pending)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"pending-u3", "pending-u2", "r1"}, ids(got))
	assert.True(t, got[0].IsSynthetic())
	assert.False(t, got[2].IsSynthetic())

	rec := got[0].Record()
	assert.Equal(t, models.RoleAdmin, rec.RequestedRole)
	assert.Equal(t, models.ApprovalStatusPending, rec.Status)
	assert.Equal(t, t3, rec.RequestedAt)
	assert.Nil(t, rec.Notes)
	require.NotNil(t, rec.User)
	assert.Equal(t, "u3@example.com", rec.User.Email)
}

func TestReconcile_NeverDuplicatesUsersWithFormalRecord(t *testing.T) {
	t.Parallel()

	formal := []models.ApprovalRequest{
		formalRequest("r1", "u1", t1, models.ApprovalStatusRejected),
		formalRequest("r2", "u2", t2, models.ApprovalStatusPending),
	}
	pending := []models.User{pendingUser("u1", t3), pendingUser("u2", t3), pendingUser("u3", t1)}

	got := Reconcile(formal, pending)

	assert.Equal(t, []string{"r2", "r1", "pending-u3"}, ids(got))
	perUser := map[string]int{}
	for _, r := range got {
		perUser[r.UserID()]++
	}
	for user, n := range perUser {
		assert.Equal(t, 1, n, "user %s appears more than once", user)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	t.Parallel()

	formal := []models.ApprovalRequest{formalRequest("r1", "u1", t1, models.ApprovalStatusPending)}
	pending := []models.User{pendingUser("u2", t2), pendingUser("u3", t3)}

	first := Reconcile(formal, pending)
	second := Reconcile(formal, pending)
	assert.Equal(t, ids(first), ids(second))

	// Materialize every synthetic entry and reconcile again.
	next := append([]models.ApprovalRequest(nil), formal...)
	for _, r := range first {
		if s, ok := r.(SyntheticReview); ok {
			m := s.Materialize(nil)
			m.ID = "m-" + s.User.ID
			m.RequestedAt = s.User.CreatedAt
			next = append(next, m)
		}
	}
	third := Reconcile(next, pending)

	require.Len(t, third, len(first))
	for i := range third {
		assert.Equal(t, first[i].UserID(), third[i].UserID())
		assert.False(t, third[i].IsSynthetic())
	}
}

func TestReconcile_EdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Reconcile(nil, nil))
	})

	t.Run("duplicate pending user yields one entry", func(t *testing.T) {
		t.Parallel()
		u := pendingUser("u1", t1)
		got := Reconcile(nil, []models.User{u, u})
		assert.Equal(t, []string{"pending-u1"}, ids(got))
	})

	t.Run("empty id skipped", func(t *testing.T) {
		t.Parallel()
		got := Reconcile(nil, []models.User{pendingUser("", t2), pendingUser("u1", t1)})
		assert.Equal(t, []string{"pending-u1"}, ids(got))
	})

	t.Run("non pending users ignored", func(t *testing.T) {
		t.Parallel()
		u := pendingUser("u1", t1)
		u.Status = models.UserStatusActive
		assert.Empty(t, Reconcile(nil, []models.User{u}))
	})

	t.Run("equal times keep formal first", func(t *testing.T) {
		t.Parallel()
		formal := []models.ApprovalRequest{formalRequest("r1", "u1", t2, models.ApprovalStatusPending)}
		got := Reconcile(formal, []models.User{pendingUser("u2", t2)})
		assert.Equal(t, []string{"r1", "pending-u2"}, ids(got))
	})
}

func TestIsSyntheticID(t *testing.T) {
	t.Parallel()

	id, ok := IsSyntheticID("pending-abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = IsSyntheticID("pending-")
	assert.False(t, ok)
	_, ok = IsSyntheticID("0b4c2f9e-6a55-4c3d-9a19-3f0a6f1d2e11")
	assert.False(t, ok)
}
