package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warden/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/test", AuthRequired(testSecret), func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": p.ID, "role": p.Role})
	})

	valid, err := IssueToken(testSecret, Principal{ID: "u-1", Role: models.RoleSuperadmin}, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, Principal{ID: "u-1", Role: models.RoleAdmin}, -time.Hour)
	require.NoError(t, err)

	foreignIssuer := func() string {
		claims := jwt.MapClaims{
			"sub":  "u-1",
			"role": "superadmin",
			"iss":  "someone-else",
			"aud":  TokenAudience,
			"exp":  time.Now().Add(time.Hour).Unix(),
		}
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		return s
	}()

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Happy Path", "Bearer " + valid, http.StatusOK},
		{"Missing Header", "", http.StatusUnauthorized},
		{"Invalid Format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"Malformed Token", "Bearer malformed.token.here", http.StatusUnauthorized},
		{"Expired Token", "Bearer " + expired, http.StatusUnauthorized},
		{"Wrong Issuer", "Bearer " + foreignIssuer, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "u-1", body["id"])
				assert.Equal(t, "superadmin", body["role"])
			}
		})
	}
}

func TestParseToken_RejectsOtherSecret(t *testing.T) {
	tok, err := IssueToken("another-secret-another-secret-xxxxx", Principal{ID: "u-2", Role: models.RoleAdmin}, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, tok)
	assert.Error(t, err)
}

func TestPrincipalRoles(t *testing.T) {
	assert.True(t, Principal{Role: models.RoleAdmin}.IsAdmin())
	assert.True(t, Principal{Role: models.RoleSuperadmin}.IsAdmin())
	assert.False(t, Principal{Role: models.RoleUser}.IsAdmin())
	assert.False(t, Principal{Role: models.RoleAdmin}.IsSuperadmin())
}
