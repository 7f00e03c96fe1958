// Package web exposes the asset read boundary over HTTP.
package web

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/bindle/internal/core/ports"
)

// AssetReader is the application surface the server exposes.
type AssetReader interface {
	ReadAsset(ctx context.Context, id string, isMain bool) (*domain.Asset, error)
}

// Server serves compiled assets over HTTP. Every response revalidates:
// max-age=0 with an exact ETag, so a changed build generation is picked up on
// the next request while unchanged content stays a 304.
type Server struct {
	app    *fiber.App
	reader AssetReader
	logger ports.Logger
}

// NewServer creates a new asset server.
func NewServer(reader AssetReader, logger ports.Logger) *Server {
	s := &Server{reader: reader, logger: logger}

	s.app = fiber.New(fiber.Config{
		ServerHeader:          "bindle",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          s.handleError,
	})
	s.app.Get("/*", s.handleAsset)

	return s
}

// Start starts listening on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app, used by tests to dispatch requests
// without a listener.
func (s *Server) App() *fiber.App {
	return s.app
}

// handleAsset maps the request path to an asset id. The "main" query flag
// marks the page entry request.
func (s *Server) handleAsset(c *fiber.Ctx) error {
	id := strings.TrimPrefix(c.Path(), "/")
	isMain := c.Query("main") != ""

	asset, err := s.reader.ReadAsset(c.UserContext(), id, isMain)
	if err != nil {
		if errors.Is(err, domain.ErrModuleNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "asset not found: "+id)
		}
		s.logger.Error(err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read asset")
	}

	c.Set(fiber.HeaderCacheControl, "max-age=0, must-revalidate")
	c.Set(fiber.HeaderETag, `"`+asset.ETag+`"`)
	c.Set(fiber.HeaderLastModified, asset.LastModified.UTC().Format(time.RFC1123))

	if match := c.Get(fiber.HeaderIfNoneMatch); match != "" && strings.Contains(match, asset.ETag) {
		return c.SendStatus(fiber.StatusNotModified)
	}

	c.Set(fiber.HeaderContentType, asset.ContentType)
	return c.Send(asset.Content)
}

// handleError renders errors uniformly without leaking internals.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error(err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(message)
}
