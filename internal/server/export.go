package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docuflow/invoice-verifier/internal/common"
	"github.com/docuflow/invoice-verifier/internal/export"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport checks the export gate and streams the verified workbook.
// Authorization lives here; the assembler only serializes.
func (s *Server) handleExport(c *fiber.Ctx) error {
	if !s.session.Exportable() {
		return s.errJSON(c, common.NewAppError(common.CodeNotExportable, "export gate not satisfied", nil))
	}

	data, err := s.exporter.ExportXLSX(s.session.Snapshot())
	if err != nil {
		return s.errJSON(c, common.NewAppError("EXPORT_FAILED", "workbook serialization failed", err))
	}

	c.Set(fiber.HeaderContentType, xlsxMIME)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.FileName+`"`)
	return c.Send(data)
}
