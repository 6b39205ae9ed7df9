package server

import (
	"encoding/json"
	"errors"
	"strings"

	"warden/internal/models"
	"warden/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const maxPageSize = 100

// parseID extracts a non-empty route parameter. On failure it writes a 400
// JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (string, error) {
	id := strings.TrimSpace(c.Params(param))
	if id == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return "", errResponseWritten
	}
	return id, nil
}

// parseBody decodes the JSON body into dest. On failure it writes a 400 JSON
// response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// reviewResponse is the wire form of a reconciled review.
type reviewResponse struct {
	models.ApprovalRequest
	IsSynthetic bool `json:"is_synthetic"`
}

func toReviewResponses(reviews []service.Review) []reviewResponse {
	out := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, reviewResponse{ApprovalRequest: r.Record(), IsSynthetic: r.IsSynthetic()})
	}
	return out
}

type warningResponse struct {
	Effect string `json:"effect"`
	Error  string `json:"error"`
}

type resultResponse struct {
	User     *models.User            `json:"user"`
	Request  *models.ApprovalRequest `json:"request,omitempty"`
	Warnings []warningResponse       `json:"warnings"`
}

func toResultResponse(res *service.Result) resultResponse {
	out := resultResponse{User: res.User, Request: res.Request, Warnings: []warningResponse{}}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, warningResponse{Effect: w.Effect, Error: w.Err.Error()})
	}
	return out
}

// banDays accepts the day count as a JSON number or string and parses it strictly.
func banDays(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return service.ParseBanDays("")
	}
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, models.NewValidationError("Please enter a valid number of days (> 0)")
		}
		s = text
	}
	return service.ParseBanDays(s)
}
