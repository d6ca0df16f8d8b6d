package server

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"

	"github.com/docuflow/invoice-verifier/internal/invoice"
)

//go:embed testdata/sample-invoice-high-confidence.json
var mockHigh []byte

//go:embed testdata/sample-invoice-low-confidence.json
var mockLow []byte

// handleMock serves canned extraction results for UI development without
// invoking the real capability. The fixture also loads the review session so
// the edit/confirm/export flow works end to end against mock data.
func (s *Server) handleMock(c *fiber.Ctx) error {
	mode := c.Query("mode", "high")

	raw, source := mockHigh, "mock-high"
	if mode == "low" {
		raw, source = mockLow, "mock-low"
	}

	rec := invoice.ValidateRecord(raw)
	s.session.Load(rec)
	return c.JSON(fiber.Map{"data": rec, "source": source})
}
