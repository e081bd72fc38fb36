package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tpc-global/tpc_portal/internal/config"
	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	services *routes.Services
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      d.Cfg.AppName,
		ReadTimeout:  30 * time.Second,
		// Streams outlive the write timeout; they end on their own deadline.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
		BodyLimit:    6 << 20,
		ErrorHandler: errorHandler,
		// Tokens and ids outlive the request in queued notifications.
		Immutable: true,
	})

	services, err := routes.Setup(app, d)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: d.Cfg, services: services}, nil
}

// Services exposes the wired services for background jobs.
func (s *Server) Services() *routes.Services {
	return s.services
}

// App exposes the Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders fiber errors in the portal's error body.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return respond.Fail(c, code, respond.Problem{Code: problemCode(code), Message: message})
}

func problemCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return respond.CodeNotFound
	case fiber.StatusUnauthorized:
		return respond.CodeAuthRequired
	case fiber.StatusForbidden:
		return respond.CodeForbidden
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return respond.CodeValidation
	}
	return respond.CodeGeneric
}
