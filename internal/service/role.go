package service

import (
	"context"

	"warden/internal/models"
	"warden/internal/observability"
	"warden/internal/repository"
)

// RoleService grants and revokes admin privileges.
type RoleService struct {
	users repository.UserRepository
}

func NewRoleService(users repository.UserRepository) *RoleService {
	return &RoleService{users: users}
}

// SetRole switches a non-superadmin account between admin and user.
func (s *RoleService) SetRole(ctx context.Context, p Principal, userID string, role models.Role) (res *Result, err error) {
	ctx, finish := observability.StartOperation(ctx, "user.set_role", userID)
	defer func() {
		finish(err)
		observability.RecordAction("set_role", err)
	}()

	if err := requireSuperadmin(p); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleAdmin, models.RoleUser:
	case models.RoleSuperadmin:
		return nil, models.NewForbiddenError("The superadmin role cannot be granted")
	default:
		return nil, models.NewValidationError("Role must be admin or user")
	}
	target, err := loadMutableTarget(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if target.UserType == role {
		return &Result{User: target}, nil
	}

	user, err := s.users.UpdateFields(ctx, target.ID, map[string]any{"user_type": role})
	if err != nil {
		return nil, err
	}
	return &Result{User: user}, nil
}
