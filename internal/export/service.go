package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docuflow/invoice-verifier/internal/review"
)

// FileName is the artifact name offered for download.
const FileName = "invoice_verified.xlsx"

// Assembly holds the three tabular sections of a verified export: one
// summary row, one row per line item, and metadata rows whose generic
// columns also carry the audit trail (first row = export metadata, then one
// row per audit entry marked "AUDIT").
type Assembly struct {
	SummaryHeader []string
	Summary       []any
	ItemHeader    []string
	Items         [][]any
	MetaHeader    []string
	Meta          [][]any
}

// Service serializes a confirmed review session into an XLSX workbook.
// It performs no gate re-check; callers authorize, this serializes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Assemble flattens a session snapshot into export rows.
func Assemble(snap review.Snapshot, exportedAt time.Time) Assembly {
	rec := snap.Record

	a := Assembly{
		SummaryHeader: []string{
			"invoice_no", "invoice_date", "shipper_name", "consignee_name",
			"total_amount", "currency", "confidence_score", "low_confidence_fields",
		},
		Summary: []any{
			rec.InvoiceNo, rec.InvoiceDate, rec.ShipperName, rec.ConsigneeName,
			rec.TotalAmount, rec.Currency, rec.ConfidenceScore,
			strings.Join(rec.LowConfidenceFields, ", "),
		},
		ItemHeader: []string{"description", "quantity", "unit_price"},
		MetaHeader: []string{"exported_at", "confirmed", "low_confidence_reviewed", "confidence_score"},
	}

	for _, it := range rec.Items {
		a.Items = append(a.Items, []any{it.Description, it.Quantity, it.UnitPrice})
	}

	a.Meta = append(a.Meta, []any{
		exportedAt.UTC().Format(time.RFC3339),
		yn(snap.Confirmed),
		yn(snap.LowConfidenceReviewed),
		rec.ConfidenceScore,
	})
	for _, e := range snap.Audit {
		a.Meta = append(a.Meta, []any{
			e.At.UTC().Format(time.RFC3339),
			"AUDIT",
			e.Field,
			fmt.Sprintf("%s -> %s", e.OldValue, e.NewValue),
		})
	}
	return a
}

// ExportXLSX assembles the session and writes the three-sheet workbook.
func (s *Service) ExportXLSX(snap review.Snapshot) ([]byte, error) {
	start := time.Now()
	a := Assemble(snap, start)

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "invoice")
	if _, err := f.NewSheet("items"); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	if _, err := f.NewSheet("metadata"); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex("invoice"); err == nil {
		f.SetActiveSheet(idx)
	}

	writeRow := func(sheet string, rowIdx int, cells []any) error {
		for col, v := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}
	writeHeader := func(sheet string, headers []string) error {
		cells := make([]any, len(headers))
		for i, h := range headers {
			cells[i] = h
		}
		return writeRow(sheet, 1, cells)
	}

	if err := writeHeader("invoice", a.SummaryHeader); err != nil {
		return nil, err
	}
	if err := writeRow("invoice", 2, a.Summary); err != nil {
		return nil, err
	}

	if err := writeHeader("items", a.ItemHeader); err != nil {
		return nil, err
	}
	for i, row := range a.Items {
		if err := writeRow("items", i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeHeader("metadata", a.MetaHeader); err != nil {
		return nil, err
	}
	for i, row := range a.Meta {
		if err := writeRow("metadata", i+2, row); err != nil {
			return nil, err
		}
	}

	// Widen a few columns
	_ = f.SetColWidth("invoice", "A", "D", 20)
	_ = f.SetColWidth("invoice", "H", "H", 32)
	_ = f.SetColWidth("items", "A", "A", 36)
	_ = f.SetColWidth("metadata", "A", "A", 24)
	_ = f.SetColWidth("metadata", "C", "D", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"session_id", snap.SessionID,
		"items", len(a.Items),
		"audit_rows", len(snap.Audit),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func yn(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}
