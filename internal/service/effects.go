// Package service implements the moderation workflow: approval reconciliation,
// the ban state machine and role changes.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"warden/internal/models"
	"warden/internal/notifications"
	"warden/internal/observability"
	"warden/internal/repository"
)

// Principal is the authenticated actor behind a moderation operation.
type Principal struct {
	ID   string
	Role models.Role
}

// Side effect names reported in warnings and metrics.
const (
	EffectInApp          = "in_app_notification"
	EffectEmail          = "email"
	EffectAdminBroadcast = "admin_broadcast"
)

// SideEffectWarning records a best-effort side effect that failed after the
// primary write succeeded.
type SideEffectWarning struct {
	Effect string
	Err    error
}

func (w SideEffectWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Effect, w.Err)
}

// Result is returned by state-changing operations.
type Result struct {
	User *models.User
	// Request is set by approval decisions.
	Request  *models.ApprovalRequest
	Warnings []SideEffectWarning
}

// InAppNotifier delivers an in-app message to a single user.
type InAppNotifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// AdminBroadcaster notifies every admin session.
type AdminBroadcaster interface {
	Broadcast(ctx context.Context, kind, message string) error
}

// UserEventPublisher pushes realtime events to a single user.
type UserEventPublisher interface {
	PublishUser(ctx context.Context, userID string, ev notifications.Event) error
}

// AdminEventPublisher pushes realtime events to the admin channel.
type AdminEventPublisher interface {
	PublishAdmin(ctx context.Context, ev notifications.Event) error
}

// StoreNotifier persists a notification row then publishes it on the user's channel.
type StoreNotifier struct {
	repo      repository.NotificationRepository
	publisher UserEventPublisher
}

// NewStoreNotifier returns an InAppNotifier. publisher may be nil.
func NewStoreNotifier(repo repository.NotificationRepository, publisher UserEventPublisher) *StoreNotifier {
	return &StoreNotifier{repo: repo, publisher: publisher}
}

func (n *StoreNotifier) Notify(ctx context.Context, userID, message string) error {
	rec := &models.Notification{UserID: userID, Message: message}
	if err := n.repo.Create(ctx, rec); err != nil {
		return err
	}
	if n.publisher == nil {
		return nil
	}
	if err := n.publisher.PublishUser(ctx, userID, notifications.Event{
		Type:    notifications.EventNotification,
		Payload: rec,
	}); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// StoreBroadcaster persists an admin notification row then publishes it on the admin channel.
type StoreBroadcaster struct {
	repo      repository.AdminNotificationRepository
	publisher AdminEventPublisher
}

// NewStoreBroadcaster returns an AdminBroadcaster. publisher may be nil.
func NewStoreBroadcaster(repo repository.AdminNotificationRepository, publisher AdminEventPublisher) *StoreBroadcaster {
	return &StoreBroadcaster{repo: repo, publisher: publisher}
}

func (b *StoreBroadcaster) Broadcast(ctx context.Context, kind, message string) error {
	rec := &models.AdminNotification{Type: kind, Message: message}
	if err := b.repo.Create(ctx, rec); err != nil {
		return err
	}
	if b.publisher == nil {
		return nil
	}
	if err := b.publisher.PublishAdmin(ctx, notifications.Event{Type: kind, Payload: rec}); err != nil {
		return fmt.Errorf("publish admin notification: %w", err)
	}
	return nil
}

type effect struct {
	name string
	run  func(context.Context) error
}

// runEffects executes effects in order. A failing effect never stops the ones after it.
func runEffects(ctx context.Context, targetID string, effects ...effect) []SideEffectWarning {
	var warnings []SideEffectWarning
	for _, e := range effects {
		if e.run == nil {
			continue
		}
		err := e.run(ctx)
		if err == nil {
			continue
		}
		observability.SideEffectFailures.WithLabelValues(e.name).Inc()
		slog.WarnContext(ctx, "moderation side effect failed",
			slog.String("effect", e.name),
			slog.String("target_user_id", targetID),
			slog.String("error", err.Error()))
		warnings = append(warnings, SideEffectWarning{Effect: e.name, Err: err})
	}
	return warnings
}

func requireSuperadmin(p Principal) error {
	if p.ID == "" {
		return models.NewUnauthorizedError("Authentication required")
	}
	if p.Role != models.RoleSuperadmin {
		return models.NewForbiddenError("Superadmin access required")
	}
	return nil
}

// loadMutableTarget fetches a user that role and ban operations may touch.
func loadMutableTarget(ctx context.Context, users repository.UserRepository, id string) (*models.User, error) {
	if id == "" {
		return nil, models.NewValidationError("User id is required")
	}
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsSuperadmin() {
		return nil, models.NewForbiddenError("Superadmin accounts cannot be modified")
	}
	return user, nil
}

func reasonOrDefault(s string) string {
	if s == "" {
		return "No reason provided."
	}
	return s
}
