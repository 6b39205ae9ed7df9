package service

import (
	"context"
	"strings"
	"time"

	"warden/internal/models"
	"warden/internal/observability"
	"warden/internal/repository"
)

// ApprovalAction is the decision taken on a review.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// ApprovalService reviews role-elevation requests.
type ApprovalService struct {
	approvals repository.ApprovalRepository
	users     repository.UserRepository
	notifier  InAppNotifier
	now       func() time.Time
}

// NewApprovalService wires the approval workflow. notifier may be nil.
func NewApprovalService(approvals repository.ApprovalRepository, users repository.UserRepository, notifier InAppNotifier) *ApprovalService {
	return &ApprovalService{
		approvals: approvals,
		users:     users,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListReviews returns stored requests merged with synthetic ones.
func (s *ApprovalService) ListReviews(ctx context.Context) ([]Review, error) {
	formal, err := s.approvals.List(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.users.ListByStatus(ctx, models.UserStatusPendingAdmin)
	if err != nil {
		return nil, err
	}
	return Reconcile(formal, pending), nil
}

// Resolve finds the review behind id, which is either a stored request id or a
// synthetic pending-<user id>.
func (s *ApprovalService) Resolve(ctx context.Context, id string) (Review, error) {
	if _, ok := IsSyntheticID(id); !ok {
		req, err := s.approvals.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return FormalReview{Request: *req}, nil
	}

	reviews, err := s.ListReviews(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, models.NewNotFoundError("Approval request", id)
}

// Decide approves or rejects a review. A synthetic review is first written as a
// pending request. The three writes are not transactional; the first failure is
// returned and nothing is undone. The user notification is best effort.
func (s *ApprovalService) Decide(ctx context.Context, p Principal, review Review, action ApprovalAction, notes string) (res *Result, err error) {
	if review == nil {
		return nil, models.NewValidationError("Approval request is required")
	}
	ctx, finish := observability.StartOperation(ctx, "approval."+string(action), review.UserID())
	defer func() {
		finish(err)
		observability.RecordAction(string(action), err)
	}()

	if err := requireSuperadmin(p); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	switch action {
	case ActionApprove:
	case ActionReject:
		if notes == "" {
			return nil, models.NewValidationError("Rejection notes are required")
		}
	default:
		return nil, models.NewValidationError("Action must be approve or reject")
	}

	rec := review.Record()
	if rec.Status != models.ApprovalStatusPending {
		return nil, models.NewValidationError("Request has already been reviewed")
	}
	if rec.RequestedRole != models.RoleAdmin {
		return nil, models.NewValidationError("Only admin role requests can be reviewed")
	}
	if _, err := loadMutableTarget(ctx, s.users, review.UserID()); err != nil {
		return nil, err
	}

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	working := rec
	if synthetic, ok := review.(SyntheticReview); ok {
		working = synthetic.Materialize(notesPtr)
		if err := s.approvals.Create(ctx, &working); err != nil {
			return nil, err
		}
	}

	reviewedAt := s.now()
	reviewer := p.ID
	working.ReviewedAt = &reviewedAt
	working.ReviewedBy = &reviewer
	if notesPtr != nil {
		working.Notes = notesPtr
	}

	var fields map[string]any
	var message string
	switch action {
	case ActionApprove:
		working.Status = models.ApprovalStatusApproved
		fields = map[string]any{
			"user_type":      working.RequestedRole,
			"status":         models.UserStatusActive,
			"requested_role": nil,
		}
		message = "Your " + string(working.RequestedRole) + " account request has been approved! You can now log in with your new role."
	case ActionReject:
		working.Status = models.ApprovalStatusRejected
		fields = map[string]any{
			"user_type": models.RoleUser,
			"status":    models.UserStatusActive,
		}
		message = "Your " + string(working.RequestedRole) + " account request has been rejected. Reason: " + reasonOrDefault(notes)
	}

	if err := s.approvals.Update(ctx, &working); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateFields(ctx, working.UserID, fields)
	if err != nil {
		return nil, err
	}

	warnings := runEffects(ctx, user.ID, effect{
		name: EffectInApp,
		run:  s.notify(user.ID, message),
	})
	working.User = nil
	return &Result{User: user, Request: &working, Warnings: warnings}, nil
}

func (s *ApprovalService) notify(userID, message string) func(context.Context) error {
	if s.notifier == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.notifier.Notify(ctx, userID, message)
	}
}
