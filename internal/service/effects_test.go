package service

import (
	"context"
	"errors"
	"testing"

	"warden/internal/models"
	"warden/internal/notifications"
	"warden/internal/repository"
	"warden/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherStub struct {
	err   error
	user  []string
	admin []notifications.Event
}

func (p *publisherStub) PublishUser(_ context.Context, userID string, _ notifications.Event) error {
	p.user = append(p.user, userID)
	return p.err
}

func (p *publisherStub) PublishAdmin(_ context.Context, ev notifications.Event) error {
	p.admin = append(p.admin, ev)
	return p.err
}

func TestStoreNotifier_PersistsAndPublishes(t *testing.T) {
	t.Parallel()

	db := testutil.NewSQLiteDB(t)
	u := testutil.CreateUser(t, db, "Ana", "Lim")
	pub := &publisherStub{}

	n := NewStoreNotifier(repository.NewNotificationRepository(db), pub)
	require.NoError(t, n.Notify(context.Background(), u.ID, "hello"))

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, u.ID, rows[0].UserID)
	assert.Equal(t, "hello", rows[0].Message)
	assert.Nil(t, rows[0].EmergencyReportID)
	assert.Equal(t, []string{u.ID}, pub.user)
}

func TestStoreNotifier_PublishFailureKeepsRow(t *testing.T) {
	t.Parallel()

	db := testutil.NewSQLiteDB(t)
	pub := &publisherStub{err: errors.New("redis down")}

	n := NewStoreNotifier(repository.NewNotificationRepository(db), pub)
	err := n.Notify(context.Background(), "u1", "hello")
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStoreBroadcaster(t *testing.T) {
	t.Parallel()

	db := testutil.NewSQLiteDB(t)
	pub := &publisherStub{}

	b := NewStoreBroadcaster(repository.NewAdminNotificationRepository(db), pub)
	require.NoError(t, b.Broadcast(context.Background(), models.AdminNotificationUserUnbanned, "User A B has been unbanned."))

	var rows []models.AdminNotification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "user_unbanned", rows[0].Type)
	require.Len(t, pub.admin, 1)
	assert.Equal(t, notifications.EventUserUnbanned, pub.admin[0].Type)
}

func TestRunEffects_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	var order []string
	step := func(name string, err error) effect {
		return effect{name: name, run: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}

	warnings := runEffects(context.Background(), "u1",
		step("a", errors.New("boom")),
		effect{name: "skipped"},
		step("b", nil),
		step("c", errors.New("bang")),
	)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	require.Len(t, warnings, 2)
	assert.Equal(t, "a", warnings[0].Effect)
	assert.Equal(t, "c", warnings[1].Effect)
	assert.Contains(t, warnings[1].Error(), "bang")
}
