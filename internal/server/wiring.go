package server

import (
	"fmt"

	"warden/internal/cache"
	"warden/internal/config"
	"warden/internal/featureflags"
	"warden/internal/mailer"
	"warden/internal/notifications"
	"warden/internal/repository"
	"warden/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Moderation bundles the moderation services over one store. The HTTP server
// and the admin CLI share it.
type Moderation struct {
	Users     repository.UserRepository
	Notifier  *notifications.Notifier
	Flags     *featureflags.Manager
	Approvals *service.ApprovalService
	Bans      *service.BanService
	Roles     *service.RoleService
}

// NewModeration wires repositories, notification fan-out and mail into the
// moderation services. redisClient may be nil.
func NewModeration(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Moderation, error) {
	notifier := notifications.NewNotifier(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	mail, err := newMailer(cfg)
	if err != nil {
		return nil, err
	}
	gated := mailer.Gated{
		Next: mail,
		Enabled: func() bool {
			return flags.EnabledOr(featureflags.ModerationEmails, "", true)
		},
	}

	users := repository.NewUserRepository(db, cache.New(redisClient), notifier)
	inApp := service.NewStoreNotifier(repository.NewNotificationRepository(db), notifier)
	broadcaster := service.NewStoreBroadcaster(repository.NewAdminNotificationRepository(db), notifier)

	return &Moderation{
		Users:     users,
		Notifier:  notifier,
		Flags:     flags,
		Approvals: service.NewApprovalService(repository.NewApprovalRepository(db), users, inApp),
		Bans:      service.NewBanService(users, inApp, gated, broadcaster),
		Roles:     service.NewRoleService(users),
	}, nil
}

func newMailer(cfg *config.Config) (*mailer.Mailer, error) {
	var sender mailer.Sender = mailer.LogSender{}
	if cfg.MailEnabled() {
		smtp, err := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			return nil, fmt.Errorf("smtp sender: %w", err)
		}
		sender = smtp
	}
	return mailer.New(cfg.MailFrom, sender)
}
