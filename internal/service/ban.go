package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warden/internal/mailer"
	"warden/internal/models"
	"warden/internal/observability"
	"warden/internal/repository"
)

// BanType selects between an expiring and a permanent ban.
type BanType string

const (
	BanTemporary BanType = "temporary"
	BanPermanent BanType = "permanent"
)

// MaxBanDays bounds temporary bans so the expiry stays representable.
const MaxBanDays = 36500

// BanInput describes a ban request.
type BanInput struct {
	UserID string
	Type   BanType
	Days   int
	Reason string
}

// ParseBanDays parses a day count typed by an operator. Only whole positive
// numbers are accepted.
func ParseBanDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, models.NewValidationError("Please enter a valid number of days (> 0)")
	}
	if days > MaxBanDays {
		return 0, models.NewValidationError(fmt.Sprintf("Ban length cannot exceed %d days", MaxBanDays))
	}
	return days, nil
}

// BanService drives the ban state of user accounts.
type BanService struct {
	users       repository.UserRepository
	notifier    InAppNotifier
	mail        mailer.Dispatcher
	broadcaster AdminBroadcaster
	now         func() time.Time
}

// NewBanService wires the ban workflow. notifier, mail and broadcaster may be nil.
func NewBanService(users repository.UserRepository, notifier InAppNotifier, mail mailer.Dispatcher, broadcaster AdminBroadcaster) *BanService {
	return &BanService{
		users:       users,
		notifier:    notifier,
		mail:        mail,
		broadcaster: broadcaster,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (in BanInput) validate() (BanInput, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return in, models.NewValidationError("Ban reason is required")
	}
	switch in.Type {
	case BanPermanent:
		in.Days = 0
	case BanTemporary:
		if in.Days <= 0 {
			return in, models.NewValidationError("Please enter a valid number of days (> 0)")
		}
		if in.Days > MaxBanDays {
			return in, models.NewValidationError(fmt.Sprintf("Ban length cannot exceed %d days", MaxBanDays))
		}
	default:
		return in, models.NewValidationError("Ban type must be temporary or permanent")
	}
	return in, nil
}

// Ban marks the user banned, then sends the in-app notice and the ban email.
// Side effect failures are reported as warnings only.
func (s *BanService) Ban(ctx context.Context, p Principal, in BanInput) (res *Result, err error) {
	ctx, finish := observability.StartOperation(ctx, "user.ban", in.UserID)
	defer func() {
		finish(err)
		observability.RecordAction("ban", err)
	}()

	if err := requireSuperadmin(p); err != nil {
		return nil, err
	}
	in, err = in.validate()
	if err != nil {
		return nil, err
	}
	target, err := loadMutableTarget(ctx, s.users, in.UserID)
	if err != nil {
		return nil, err
	}

	var until *time.Time
	if in.Type == BanTemporary {
		t := s.now().Add(time.Duration(in.Days) * 24 * time.Hour)
		until = &t
	}
	user, err := s.users.UpdateFields(ctx, target.ID, map[string]any{
		"is_banned":    true,
		"banned_until": until,
		"ban_reason":   in.Reason,
	})
	if err != nil {
		return nil, err
	}

	var message string
	if in.Type == BanPermanent {
		message = "Your account has been permanently banned. Reason: " + in.Reason
	} else {
		message = fmt.Sprintf("Your account has been banned for %d day(s). Reason: %s", in.Days, in.Reason)
	}

	warnings := runEffects(ctx, user.ID,
		effect{name: EffectInApp, run: s.notify(user.ID, message)},
		effect{name: EffectEmail, run: s.send(mailer.TemplateBan, mailer.Payload{
			To:        user.Email,
			Name:      user.DisplayName(),
			Reason:    in.Reason,
			ExpiresAt: until,
			Permanent: in.Type == BanPermanent,
		})},
	)
	return &Result{User: user, Warnings: warnings}, nil
}

// Unban lifts a ban, then notifies the user in-app and by email and tells
// every admin session.
func (s *BanService) Unban(ctx context.Context, p Principal, userID, message string) (res *Result, err error) {
	ctx, finish := observability.StartOperation(ctx, "user.unban", userID)
	defer func() {
		finish(err)
		observability.RecordAction("unban", err)
	}()

	if err := requireSuperadmin(p); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewValidationError("A message to the user is required")
	}
	target, err := loadMutableTarget(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateFields(ctx, target.ID, map[string]any{
		"is_banned":    false,
		"banned_until": nil,
		"ban_reason":   nil,
	})
	if err != nil {
		return nil, err
	}

	warnings := runEffects(ctx, user.ID,
		effect{name: EffectInApp, run: s.notify(user.ID, "Your account ban has been lifted. Message from admin: "+message)},
		effect{name: EffectEmail, run: s.send(mailer.TemplateUnban, mailer.Payload{
			To:      user.Email,
			Name:    user.DisplayName(),
			Message: message,
		})},
		effect{name: EffectAdminBroadcast, run: s.broadcast(models.AdminNotificationUserUnbanned,
			fmt.Sprintf("User %s %s has been unbanned.", user.FirstName, user.LastName))},
	)
	return &Result{User: user, Warnings: warnings}, nil
}

func (s *BanService) notify(userID, message string) func(context.Context) error {
	if s.notifier == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.notifier.Notify(ctx, userID, message)
	}
}

func (s *BanService) send(template string, p mailer.Payload) func(context.Context) error {
	if s.mail == nil || p.To == "" {
		return nil
	}
	return func(ctx context.Context) error {
		return s.mail.Send(ctx, template, p)
	}
}

func (s *BanService) broadcast(kind, message string) func(context.Context) error {
	if s.broadcaster == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.broadcaster.Broadcast(ctx, kind, message)
	}
}
