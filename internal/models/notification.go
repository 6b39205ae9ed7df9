package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is an in-app message delivered to a single user.
type Notification struct {
	ID                string    `gorm:"primaryKey;size:64" json:"id"`
	UserID            string    `gorm:"size:64;not null;index" json:"user_id"`
	Message           string    `gorm:"type:text;not null" json:"message"`
	EmergencyReportID *string   `gorm:"size:64" json:"emergency_report_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// AdminNotificationUserUnbanned drives the unban overlay in admin sessions.
const AdminNotificationUserUnbanned = "user_unbanned"

// AdminNotification is a broadcast record for every admin session.
type AdminNotification struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Type      string    `gorm:"size:64;not null;index" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (AdminNotification) TableName() string {
	return "admin_notifications"
}

func (n *AdminNotification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
