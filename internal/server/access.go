package server

import (
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminRequired returns middleware that rejects anyone who is not currently an
// admin or superadmin. The role is read from the users table, not trusted from
// the token, so a demotion takes effect immediately.
// Must be placed after AuthRequired so that the principal is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		user, err := s.userRepo.GetByID(c.UserContext(), p.ID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewForbiddenError("Admin access required"))
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}

		p.Role = user.UserType
		if !p.IsAdmin() || user.IsBanned {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		middleware.SetPrincipal(c, p)
		return c.Next()
	}
}

// SuperadminRequired rejects admins that are not superadmins.
// Must be placed after AdminRequired.
func (s *Server) SuperadminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := middleware.PrincipalFrom(c)
		if !ok || !p.IsSuperadmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Superadmin access required"))
		}
		return c.Next()
	}
}

func principal(c *fiber.Ctx) service.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return service.Principal{ID: p.ID, Role: p.Role}
}
