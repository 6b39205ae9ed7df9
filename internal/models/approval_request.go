package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalStatus defines lifecycle states for role-elevation requests.
type ApprovalStatus string

const (
	// ApprovalStatusPending indicates the request is awaiting review.
	ApprovalStatusPending ApprovalStatus = "pending"
	// ApprovalStatusApproved indicates the request was accepted.
	ApprovalStatusApproved ApprovalStatus = "approved"
	// ApprovalStatusRejected indicates the request was denied.
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is a persisted request for role elevation.
type ApprovalRequest struct {
	ID            string         `gorm:"primaryKey;size:64" json:"id"`
	UserID        string         `gorm:"size:64;not null;index" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RequestedRole Role           `gorm:"type:varchar(20);not null;default:'admin'" json:"requested_role"`
	RequestedAt   time.Time      `gorm:"not null;index" json:"requested_at"`
	Status        ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedAt    *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy    *string        `gorm:"size:64" json:"reviewed_by,omitempty"`
	Notes         *string        `gorm:"type:text" json:"notes"`
}

// TableName specifies the table name for GORM.
func (ApprovalRequest) TableName() string {
	return "approval_requests"
}

// BeforeCreate assigns the id and request time when missing.
func (r *ApprovalRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now().UTC()
	}
	return nil
}
