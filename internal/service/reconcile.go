package service

import (
	"sort"
	"strings"
	"time"

	"warden/internal/models"
)

// SyntheticIDPrefix marks review ids derived from a pending_admin user rather
// than a stored request. UUIDs never start with it.
const SyntheticIDPrefix = "pending-"

// Review is a reconciled approval entry: either a stored request or one
// implied by a user's pending_admin status.
type Review interface {
	ID() string
	UserID() string
	// Record is the request as presented; synthetic reviews return the
	// would-be record with the synthetic id.
	Record() models.ApprovalRequest
	IsSynthetic() bool

	sealed()
}

// FormalReview wraps a persisted request.
type FormalReview struct {
	Request models.ApprovalRequest
}

func (r FormalReview) ID() string                     { return r.Request.ID }
func (r FormalReview) UserID() string                 { return r.Request.UserID }
func (r FormalReview) Record() models.ApprovalRequest { return r.Request }
func (FormalReview) IsSynthetic() bool                { return false }
func (FormalReview) sealed()                          {}

// UserSnapshot is the part of a user a synthetic review carries.
type UserSnapshot struct {
	ID           string
	FirstName    string
	MiddleName   *string
	LastName     string
	Email        string
	MobileNumber *string
	CreatedAt    time.Time
}

// SnapshotOf copies the fields a synthetic review needs.
func SnapshotOf(u models.User) UserSnapshot {
	return UserSnapshot{
		ID:           u.ID,
		FirstName:    u.FirstName,
		MiddleName:   u.MiddleName,
		LastName:     u.LastName,
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		CreatedAt:    u.CreatedAt,
	}
}

// SyntheticReview stands in for a request that was never written.
type SyntheticReview struct {
	User UserSnapshot
}

func (r SyntheticReview) ID() string     { return SyntheticIDPrefix + r.User.ID }
func (r SyntheticReview) UserID() string { return r.User.ID }
func (SyntheticReview) IsSynthetic() bool { return true }
func (SyntheticReview) sealed()           {}

func (r SyntheticReview) Record() models.ApprovalRequest {
	return models.ApprovalRequest{
		ID:            r.ID(),
		UserID:        r.User.ID,
		User:          &models.User{ID: r.User.ID, FirstName: r.User.FirstName, MiddleName: r.User.MiddleName, LastName: r.User.LastName, Email: r.User.Email, MobileNumber: r.User.MobileNumber},
		RequestedRole: models.RoleAdmin,
		RequestedAt:   r.User.CreatedAt,
		Status:        models.ApprovalStatusPending,
	}
}

// Materialize returns the pending record to insert for this review. The id
// and request time are assigned on insert.
func (r SyntheticReview) Materialize(notes *string) models.ApprovalRequest {
	return models.ApprovalRequest{
		UserID:        r.User.ID,
		RequestedRole: models.RoleAdmin,
		Status:        models.ApprovalStatusPending,
		Notes:         notes,
	}
}

// IsSyntheticID reports whether id names a synthetic review and returns the user id.
func IsSyntheticID(id string) (string, bool) {
	userID, ok := strings.CutPrefix(id, SyntheticIDPrefix)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// Reconcile merges stored requests with synthetic ones for pending_admin users
// that have no stored request of any status. The result is sorted by request
// time, newest first; equal times keep stored entries ahead of synthetic ones.
func Reconcile(formal []models.ApprovalRequest, pendingUsers []models.User) []Review {
	covered := make(map[string]struct{}, len(formal)+len(pendingUsers))
	out := make([]Review, 0, len(formal)+len(pendingUsers))

	for _, req := range formal {
		covered[req.UserID] = struct{}{}
		out = append(out, FormalReview{Request: req})
	}
	for _, u := range pendingUsers {
		if u.ID == "" || !u.Status.IsPendingAdmin() {
			continue
		}
		if _, ok := covered[u.ID]; ok {
			continue
		}
		covered[u.ID] = struct{}{}
		out = append(out, SyntheticReview{User: SnapshotOf(u)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return requestedAt(out[i]).After(requestedAt(out[j]))
	})
	return out
}

func requestedAt(r Review) time.Time {
	switch v := r.(type) {
	case FormalReview:
		return v.Request.RequestedAt
	case SyntheticReview:
		return v.User.CreatedAt
	}
	return time.Time{}
}
