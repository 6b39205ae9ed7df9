package database

import "warden/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ApprovalRequest{},
		&models.Notification{},
		&models.AdminNotification{},
	}
}
