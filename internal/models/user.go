// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Rank orders roles for listing. Unknown roles sort last.
func (r Role) Rank() int {
	switch r {
	case RoleSuperadmin:
		return 0
	case RoleAdmin:
		return 1
	case RoleUser:
		return 2
	}
	return int(^uint(0) >> 1)
}

// ParseRole normalizes a role string.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// UserStatus is the account status column. Values other than the
// known ones are preserved as-is.
type UserStatus string

const (
	UserStatusActive       UserStatus = "active"
	UserStatusPendingAdmin UserStatus = "pending_admin"
)

// IsPendingAdmin reports whether the user asked for elevation without a formal request.
func (s UserStatus) IsPendingAdmin() bool {
	return s == UserStatusPendingAdmin
}

// User is an account managed by the console.
type User struct {
	ID            string     `gorm:"primaryKey;size:64" json:"id"`
	FirstName     string     `gorm:"size:100;not null" json:"firstName"`
	MiddleName    *string    `gorm:"size:100" json:"middleName,omitempty"`
	LastName      string     `gorm:"size:100;not null" json:"lastName"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	MobileNumber  *string    `gorm:"size:32" json:"mobileNumber,omitempty"`
	UserType      Role       `gorm:"column:user_type;type:varchar(20);not null;default:'user';index" json:"user_type"`
	Status        UserStatus `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	RequestedRole *Role      `gorm:"type:varchar(20)" json:"requested_role,omitempty"`
	IsBanned      bool       `gorm:"not null;default:false;index" json:"is_banned"`
	BannedUntil   *time.Time `json:"banned_until"`
	BanReason     *string    `gorm:"type:text" json:"ban_reason"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsSuperadmin reports whether role and ban fields are frozen for this user.
func (u *User) IsSuperadmin() bool {
	return u.UserType == RoleSuperadmin
}

// FullName joins first, middle and last name.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, deref(u.MiddleName), u.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// DisplayName is first and last name, used in notifications and emails.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
