package server

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/docuflow/invoice-verifier/internal/common"
)

// handleExtract accepts one multipart upload, runs the extraction pipeline,
// and loads the review session on success. A failed attempt leaves the
// session untouched; recovery is a re-upload.
func (s *Server) handleExtract(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return s.errJSON(c, common.NewAppError(common.CodeNoFile, "no file in request", err))
	}
	if s.cfg.LLM.APIKey == "" {
		return s.errJSON(c, common.NewAppError(common.CodeNoAPIKey, "extraction capability is not configured", nil))
	}

	src, err := fh.Open()
	if err != nil {
		return s.errJSON(c, common.WrapError(err, "open upload"))
	}
	data, err := io.ReadAll(src)
	closeErr := src.Close()
	if err != nil {
		return s.errJSON(c, common.WrapError(err, "read upload"))
	}
	if closeErr != nil {
		s.logger.Warn("http.upload.close_error", "error", closeErr)
	}

	ctx := c.UserContext()
	payload, err := s.pre.Preprocess(ctx, data, fh.Header.Get("Content-Type"), fh.Filename)
	if err != nil {
		return s.errJSON(c, err)
	}

	rec, err := s.extractor.Extract(ctx, payload)
	if err != nil {
		return s.errJSON(c, err)
	}

	s.session.Load(rec)
	return c.JSON(fiber.Map{"data": rec})
}
