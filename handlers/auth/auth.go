package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/middleware"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
	"github.com/sahilchouksey/kpi-tracker-api/utils/validation"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	svc                  *services.AuthService
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler. bruteForce may be nil.
func NewAuthHandler(svc *services.AuthService, bruteForce *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		svc:                  svc,
		bruteForceProtection: bruteForce,
		validator:            validation.NewValidator(),
	}
}

// recordOutcome feeds the lockout counter. Only credential failures count.
func (h *AuthHandler) recordOutcome(c *fiber.Ctx, err error) {
	switch {
	case err == nil:
		h.bruteForceProtection.RecordSuccess(c.UserContext(), c.IP())
	case apperr.Is(err, apperr.KindUnauthorized):
		h.bruteForceProtection.RecordFailure(c.UserContext(), c.IP())
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	res, err := h.svc.Login(c.UserContext(), req)
	h.recordOutcome(c, err)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, res)
}

// Google handles POST /api/auth/google
func (h *AuthHandler) Google(c *fiber.Ctx) error {
	var req services.GoogleLoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	res, err := h.svc.LoginWithGoogle(c.UserContext(), req)
	h.recordOutcome(c, err)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, res)
}

// RequestOTP handles POST /api/auth/otp/request
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req services.OTPRequestInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if err := h.svc.RequestOTP(c.UserContext(), req); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "A login code has been sent to your email", nil)
}

// VerifyOTP handles POST /api/auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req services.OTPVerifyInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	res, err := h.svc.VerifyOTP(c.UserContext(), req)
	h.recordOutcome(c, err)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, res)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	if err := h.svc.Logout(c.UserContext(), claims); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	user, err := h.svc.Me(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, user)
}
