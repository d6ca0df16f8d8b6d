package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/docuflow/invoice-verifier/internal/common"
	"github.com/docuflow/invoice-verifier/internal/document"
	"github.com/docuflow/invoice-verifier/internal/export"
	"github.com/docuflow/invoice-verifier/internal/invoice"
	"github.com/docuflow/invoice-verifier/internal/review"
)

// Extractor is the extraction pipeline as the HTTP layer sees it.
type Extractor interface {
	Extract(ctx context.Context, payload document.Payload) (invoice.Record, error)
}

// Preprocessor classifies an upload and produces the extraction payload.
type Preprocessor interface {
	Preprocess(ctx context.Context, data []byte, mimeType, fileName string) (document.Payload, error)
}

// Server wires the upload-to-export pipeline to HTTP routes. It owns the
// single active review session.
type Server struct {
	cfg       *common.Config
	pre       Preprocessor
	extractor Extractor
	session   *review.Session
	exporter  *export.Service
	logger    *slog.Logger
}

func New(cfg *common.Config, pre Preprocessor, extractor Extractor, session *review.Session, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		pre:       pre,
		extractor: extractor,
		session:   session,
		exporter:  exporter,
		logger:    logger,
	}
}

// RegisterRoutes mounts all API routes on the fiber app.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use(s.requestLogger)

	api := app.Group("/api")
	api.Post("/extract", s.handleExtract)
	api.Get("/mock", s.handleMock)
	api.Get("/review", s.handleReview)
	api.Post("/review/field", s.handleEditField)
	api.Post("/review/confirm", s.handleConfirm)
	api.Post("/review/acknowledge", s.handleAcknowledge)
	api.Get("/export", s.handleExport)
}

// requestLogger assigns a request id and logs one line per request.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	rid := uuid.New().String()
	c.Locals("request_id", rid)
	c.SetUserContext(common.WithRequestID(c.UserContext(), rid))

	start := time.Now()
	err := c.Next()

	s.logger.Info("http.request",
		"req_id", rid,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// errJSON renders the error taxonomy: localized message plus machine code.
func (s *Server) errJSON(c *fiber.Ctx, err error) error {
	code := common.CodeOf(err)
	s.logger.Warn("http.error",
		"req_id", c.Locals("request_id"),
		"path", c.Path(),
		"error_code", code,
		"error", err,
	)
	return c.Status(common.HTTPStatus(code)).JSON(fiber.Map{
		"error":      messageFor(code),
		"error_code": code,
	})
}
