package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
)

var log = logger.Nop()

// SetLogger sets the logger used to record internal errors before they are masked.
func SetLogger(l *logger.Logger) {
	if l != nil {
		log = l
	}
}

// Response represents a standardized API response
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information. RequestID matches the X-Request-ID
// header so a report can be traced to the server log.
type ErrorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeError(c *fiber.Ctx, status int, detail ErrorDetail) error {
	if id, ok := c.Locals("requestid").(string); ok {
		detail.RequestID = id
	}
	return c.Status(status).JSON(Response{Success: false, Error: &detail})
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage returns a successful response with a message
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created returns a 201 Created response
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: "Resource created successfully",
		Data:    data,
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, statusCode int, message string, code string) error {
	return writeError(c, statusCode, ErrorDetail{Code: code, Message: message})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message, "BAD_REQUEST")
}

// Unauthorized returns a 401 Unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Unauthorized access"
	}
	return Error(c, fiber.StatusUnauthorized, message, "UNAUTHORIZED")
}

// Forbidden returns a 403 Forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Access forbidden"
	}
	return Error(c, fiber.StatusForbidden, message, "FORBIDDEN")
}

// NotFound returns a 404 Not Found response
func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return Error(c, fiber.StatusNotFound, message, "NOT_FOUND")
}

// TooManyRequests returns a 429 Too Many Requests response
func TooManyRequests(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Too many requests"
	}
	return Error(c, fiber.StatusTooManyRequests, message, "TOO_MANY_REQUESTS")
}

// ValidationError returns a 422 Unprocessable Entity response with per-field messages
func ValidationError(c *fiber.Ctx, fields map[string]string) error {
	return writeError(c, fiber.StatusUnprocessableEntity, ErrorDetail{
		Code:    "VALIDATION_ERROR",
		Message: "Validation failed",
		Fields:  fields,
	})
}

// InternalServerError returns a 500 Internal Server Error response
func InternalServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, fiber.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// FromError writes the response for an error returned by a service.
func FromError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Error("unhandled error", "path", c.Path(), "method", c.Method(), "request_id", c.Locals("requestid"), "error", err)
		return InternalServerError(c, "")
	}

	switch appErr.Kind {
	case apperr.KindBadRequest:
		if len(appErr.Fields) > 0 {
			return writeError(c, fiber.StatusBadRequest, ErrorDetail{
				Code:    "BAD_REQUEST",
				Message: appErr.Message,
				Fields:  appErr.Fields,
			})
		}
		return BadRequest(c, appErr.Message)
	case apperr.KindUnauthorized:
		return Unauthorized(c, appErr.Message)
	case apperr.KindForbidden:
		return Forbidden(c, appErr.Message)
	case apperr.KindNotFound:
		return NotFound(c, appErr.Message)
	case apperr.KindConflict:
		return Error(c, fiber.StatusConflict, appErr.Message, "CONFLICT")
	case apperr.KindUnavailable:
		return Error(c, fiber.StatusServiceUnavailable, appErr.Message, "SERVICE_UNAVAILABLE")
	}

	log.Error("internal error", "path", c.Path(), "method", c.Method(), "request_id", c.Locals("requestid"), "error", err)
	return InternalServerError(c, "")
}
