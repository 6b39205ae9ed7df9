// Package middleware provides authentication, logging and rate limiting middleware for the application.
package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer is the iss claim stamped on and required of console tokens.
	TokenIssuer = "warden-api"
	// TokenAudience is the aud claim required of console tokens.
	TokenAudience = "warden-console"

	principalLocal = "principal"
)

// Principal is the authenticated actor behind a request.
type Principal struct {
	ID   string
	Role models.Role
}

// IsAdmin reports whether the principal may open the console.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleSuperadmin
}

// IsSuperadmin reports whether the principal may run moderation actions.
func (p Principal) IsSuperadmin() bool {
	return p.Role == models.RoleSuperadmin
}

// Claims is the JWT payload for console tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var (
	errMissingToken  = errors.New("authorization required")
	errInvalidFormat = errors.New("invalid authorization header format")
)

// IssueToken signs a console token for p valid for ttl.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a console token and extracts the principal.
func ParseToken(secret, tokenString string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("invalid or expired token: %w", err)
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("invalid token structure - missing subject")
	}
	return Principal{ID: claims.Subject, Role: models.Role(claims.Role)}, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		// Browsers cannot set headers on websocket upgrades.
		if t := c.Query("token"); t != "" && strings.HasSuffix(c.Path(), "/ws") {
			return t, nil
		}
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

// AuthRequired enforces a valid console token and stores the principal in locals.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		p, err := ParseToken(secret, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals(principalLocal, p)
		c.Locals("userID", p.ID)
		c.SetUserContext(WithUserID(c.UserContext(), p.ID))

		return c.Next()
	}
}

// SetPrincipal replaces the principal in locals, e.g. after a role re-check.
func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalLocal, p)
}

// PrincipalFrom returns the principal stored by AuthRequired.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalLocal).(Principal)
	return p, ok
}
