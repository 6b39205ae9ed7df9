package server

import (
	"encoding/json"

	"warden/internal/console"
	"warden/internal/models"
	"warden/internal/service"

	"github.com/gofiber/fiber/v2"
)

var (
	roleFilters   = map[string]bool{"all": true, "superadmin": true, "admin": true, "user": true}
	statusFilters = map[string]bool{"all": true, "active": true, "banned": true}
	reviewFilters = map[string]bool{"all": true, "pending": true, "approved": true, "rejected": true}
)

func (s *Server) pageSize() int {
	if s.config != nil && s.config.ConsolePageSize > 0 {
		return s.config.ConsolePageSize
	}
	return console.DefaultPageSize
}

func (s *Server) queryFromRequest(c *fiber.Ctx) (console.Query, error) {
	q := console.Query{
		Search:   c.Query("search"),
		Role:     c.Query("role", console.FilterAll),
		Status:   c.Query("status", console.FilterAll),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", s.pageSize()),
	}
	if !roleFilters[q.Role] {
		return q, models.NewValidationError("role must be one of all, superadmin, admin, user")
	}
	if !statusFilters[q.Status] {
		return q, models.NewValidationError("status must be one of all, active, banned")
	}
	if q.PageSize <= 0 || q.PageSize > maxPageSize {
		q.PageSize = s.pageSize()
	}
	return q, nil
}

// ListUsers handles GET /api/admin/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	q, err := s.queryFromRequest(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	users, err := s.userRepo.List(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(console.Derive(users, q))
}

// ListApprovals handles GET /api/admin/approvals
func (s *Server) ListApprovals(c *fiber.Ctx) error {
	status := c.Query("status", console.DefaultReviewFilter)
	if !reviewFilters[status] {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("status must be one of all, pending, approved, rejected"))
	}
	reviews, err := s.approvalService.ListReviews(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(toReviewResponses(console.FilterReviews(reviews, status)))
}

type decisionRequest struct {
	Notes string `json:"notes"`
}

// ApproveRequest handles POST /api/admin/approvals/:id/approve
func (s *Server) ApproveRequest(c *fiber.Ctx) error {
	return s.decide(c, service.ActionApprove)
}

// RejectRequest handles POST /api/admin/approvals/:id/reject
func (s *Server) RejectRequest(c *fiber.Ctx) error {
	return s.decide(c, service.ActionReject)
}

func (s *Server) decide(c *fiber.Ctx, action service.ApprovalAction) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body decisionRequest
	if err := parseBody(c, &body); err != nil {
		return nil
	}

	ctx := c.UserContext()
	review, err := s.approvalService.Resolve(ctx, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	res, err := s.approvalService.Decide(ctx, principal(c), review, action, body.Notes)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(toResultResponse(res))
}

type banRequest struct {
	Type   string          `json:"type"`
	Days   json.RawMessage `json:"days"`
	Reason string          `json:"reason"`
}

// BanUser handles POST /api/admin/users/:id/ban
func (s *Server) BanUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body banRequest
	if err := parseBody(c, &body); err != nil {
		return nil
	}

	in := service.BanInput{UserID: id, Type: service.BanType(body.Type), Reason: body.Reason}
	if in.Type == service.BanTemporary {
		days, err := banDays(body.Days)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		in.Days = days
	}

	res, err := s.banService.Ban(c.UserContext(), principal(c), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(toResultResponse(res))
}

type unbanRequest struct {
	Message string `json:"message"`
}

// UnbanUser handles POST /api/admin/users/:id/unban
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body unbanRequest
	if err := parseBody(c, &body); err != nil {
		return nil
	}

	res, err := s.banService.Unban(c.UserContext(), principal(c), id, body.Message)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(toResultResponse(res))
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetUserRole handles PUT /api/admin/users/:id/role
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body roleRequest
	if err := parseBody(c, &body); err != nil {
		return nil
	}

	role, _ := models.ParseRole(body.Role)
	res, err := s.roleService.SetRole(c.UserContext(), principal(c), id, role)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(toResultResponse(res))
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	p := principal(c)
	return c.JSON(fiber.Map{
		"flags":   s.featureFlags.Raw(),
		"enabled": s.featureFlags.Snapshot(p.ID),
	})
}
