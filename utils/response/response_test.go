package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"bad request", apperr.BadRequest("weight %.1f too high", 1.2), fiber.StatusBadRequest, "BAD_REQUEST"},
		{"unauthorized", apperr.Unauthorized("nope"), fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", apperr.Forbidden(""), fiber.StatusForbidden, "FORBIDDEN"},
		{"not found", apperr.NotFound("pillar not found"), fiber.StatusNotFound, "NOT_FOUND"},
		{"conflict", apperr.Conflict("exists"), fiber.StatusConflict, "CONFLICT"},
		{"unavailable", apperr.Unavailable("storage"), fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"internal", apperr.Internal("db", errors.New("boom")), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
		{"plain error", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(requestid.New())
			app.Get("/", func(c *fiber.Ctx) error { return FromError(c, tc.err) })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)

			var body Response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), body.Error.RequestID)
		})
	}
}

func TestFromErrorHidesInternalCause(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return FromError(c, apperr.Internal("failed to load", errors.New("pq: password authentication failed")))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body.Error.Message)
}

func TestInvalidCarriesFields(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return FromError(c, apperr.Invalid("invalid form data", map[string]string{"enrolled": "must be a number"}))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "must be a number", body.Error.Fields["enrolled"])
}
