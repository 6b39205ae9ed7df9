// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"warden/internal/database"
	"warden/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an isolated in-memory database with the full schema.
// The pool is pinned to one connection so every query sees the same memory DB.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// UserOpt customizes a fixture user.
type UserOpt func(*models.User)

// WithRole sets user_type.
func WithRole(r models.Role) UserOpt {
	return func(u *models.User) { u.UserType = r }
}

// WithStatus sets status.
func WithStatus(s models.UserStatus) UserOpt {
	return func(u *models.User) { u.Status = s }
}

// WithCreatedAt sets created_at.
func WithCreatedAt(ts time.Time) UserOpt {
	return func(u *models.User) { u.CreatedAt = ts }
}

// Banned marks the user banned with reason.
func Banned(reason string, until *time.Time) UserOpt {
	return func(u *models.User) {
		u.IsBanned = true
		u.BanReason = &reason
		u.BannedUntil = until
	}
}

// CreateUser inserts a user named first/last with an email derived from both.
func CreateUser(t *testing.T, db *gorm.DB, first, last string, opts ...UserOpt) models.User {
	t.Helper()
	u := models.User{
		FirstName: first,
		LastName:  last,
		Email:     first + "." + last + "." + uuid.NewString()[:8] + "@example.com",
		UserType:  models.RoleUser,
		Status:    models.UserStatusActive,
	}
	for _, opt := range opts {
		opt(&u)
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
