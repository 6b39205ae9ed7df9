// Package notifications provides real-time notification delivery and the user change feed.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"warden/internal/middleware"
	"warden/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// UserChangesChannel carries the full row of every updated user.
	UserChangesChannel = "changes:users"
	// AdminChannel carries admin broadcast events.
	AdminChannel = "notifications:admin"

	userChannelPrefix = "notifications:user:"
)

// Event type names carried in Event.Type.
const (
	EventNotification = "notification"
	EventUserUnbanned = models.AdminNotificationUserUnbanned
)

// Event is the envelope published on notification channels.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is attached.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

func (n *Notifier) publishEvent(ctx context.Context, channel string, ev Event) error {
	if !n.Enabled() {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return n.rdb.Publish(ctx, channel, b).Err()
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, ev Event) error {
	return n.publishEvent(ctx, UserChannel(userID), ev)
}

// PublishAdmin sends an event to every admin session.
func (n *Notifier) PublishAdmin(ctx context.Context, ev Event) error {
	return n.publishEvent(ctx, AdminChannel, ev)
}

// PublishUserChange publishes the full updated row on the change feed.
func (n *Notifier) PublishUserChange(ctx context.Context, user models.User) error {
	if !n.Enabled() {
		return nil
	}
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user change: %w", err)
	}
	return n.rdb.Publish(ctx, UserChangesChannel, b).Err()
}

// SubscribeUserUpdates delivers every row published on the change feed to onUpdate
// until ctx ends or the returned unsubscribe func is called. The subscription is
// confirmed before returning.
func (n *Notifier) SubscribeUserUpdates(ctx context.Context, onUpdate func(models.User)) (func(), error) {
	return n.subscribe(ctx, "UserUpdates", []string{UserChangesChannel}, func(_ string, payload string) {
		var user models.User
		if err := json.Unmarshal([]byte(payload), &user); err != nil {
			middleware.Logger.WarnContext(ctx, "dropping malformed change feed payload", slog.String("error", err.Error()))
			return
		}
		onUpdate(user)
	})
}

// SubscribeAdmin delivers admin broadcast events to onEvent.
func (n *Notifier) SubscribeAdmin(ctx context.Context, onEvent func(payload string)) (func(), error) {
	return n.subscribe(ctx, "AdminSubscriber", []string{AdminChannel}, func(_ string, payload string) {
		onEvent(payload)
	})
}

func (n *Notifier) subscribe(
	ctx context.Context, name string, channels []string, onMessage func(channel, payload string),
) (func(), error) {
	if !n.Enabled() {
		return func() {}, nil
	}

	sub := n.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}
	ch := sub.Channel()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in "+name,
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
