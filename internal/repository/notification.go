package repository

import (
	"context"

	"warden/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores in-app notifications. Write-only from the core.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
}

// AdminNotificationRepository stores admin broadcast records.
type AdminNotificationRepository interface {
	Create(ctx context.Context, n *models.AdminNotification) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewStoreWriteError("create notification", err)
	}
	return nil
}

type adminNotificationRepository struct {
	db *gorm.DB
}

// NewAdminNotificationRepository returns a new AdminNotificationRepository implementation.
func NewAdminNotificationRepository(db *gorm.DB) AdminNotificationRepository {
	return &adminNotificationRepository{db: db}
}

func (r *adminNotificationRepository) Create(ctx context.Context, n *models.AdminNotification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewStoreWriteError("create admin notification", err)
	}
	return nil
}
