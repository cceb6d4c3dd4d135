package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	return &APIServer{
		app:           NewApp(log),
		listenAddress: listenAddress,
		log:           log,
	}
}

// NewApp builds the Fiber app with the error handler every route relies on.
// Errors that escape a handler are written in the standard response envelope.
func NewApp(log *logger.Logger) *fiber.App {
	if log == nil {
		log = logger.Nop()
	}
	return fiber.New(fiber.Config{
		AppName:      "kpi-tracker-api",
		BodyLimit:    12 << 20,
		ErrorHandler: errorHandler(log),
	})
}

func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		switch code {
		case fiber.StatusNotFound:
			return response.NotFound(c, "Route not found")
		case fiber.StatusMethodNotAllowed:
			return response.Error(c, code, "Method not allowed", "METHOD_NOT_ALLOWED")
		case fiber.StatusRequestEntityTooLarge:
			return response.Error(c, code, "Request body too large", "PAYLOAD_TOO_LARGE")
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
			return response.InternalServerError(c, "")
		}
		return response.Error(c, code, fe.Message, "BAD_REQUEST")
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
