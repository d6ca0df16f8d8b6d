package document

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docuflow/invoice-verifier/internal/common"
)

// Kind classifies an upload for the extraction capability.
type Kind string

const (
	KindPDF   Kind = "PDF"
	KindImage Kind = "IMAGE"
)

// Payload is what gets sent to the extraction capability: page-segmented
// text for PDFs, or an inline base64 data URL for images.
type Payload struct {
	Kind     Kind
	Text     string // PDF only: page-marked, truncated text
	Pages    int    // PDF only: page count before capping, at least 1
	DataURL  string // image only
	MIMEType string
	FileName string
}

// Config for the preprocessor.
type Config struct {
	Pdftotext string // binary name/path, default "pdftotext"
	MaxPages  int    // default 10
	MaxChars  int    // default 24000
}

// Preprocessor classifies uploads and produces extraction payloads. PDF text
// decoding shells out to pdftotext behind the Runner interface.
type Preprocessor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPreprocessor(cfg Config, runner Runner, logger *slog.Logger) *Preprocessor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 24000
	}
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{cfg: cfg, runner: runner, logger: logger}
}

// IsPDF applies the classification rule: declared MIME type contains "pdf"
// or the filename ends in ".pdf", case-insensitive. Everything else is
// treated as an image.
func IsPDF(mimeType, fileName string) bool {
	return strings.Contains(strings.ToLower(mimeType), "pdf") ||
		strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}

// Preprocess turns raw upload bytes into a Payload.
func (p *Preprocessor) Preprocess(ctx context.Context, data []byte, mimeType, fileName string) (Payload, error) {
	start := time.Now()

	if IsPDF(mimeType, fileName) {
		payload, err := p.pdfPayload(ctx, data, mimeType, fileName)
		if err != nil {
			return Payload{}, err
		}
		p.logger.Info("document.preprocess.ok",
			"kind", KindPDF,
			"file", fileName,
			"pages", payload.Pages,
			"text_len", len(payload.Text),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return payload, nil
	}

	payload := p.imagePayload(data, mimeType, fileName)
	p.logger.Info("document.preprocess.ok",
		"kind", KindImage,
		"file", fileName,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return payload, nil
}

func (p *Preprocessor) pdfPayload(ctx context.Context, data []byte, mimeType, fileName string) (Payload, error) {
	text, err := p.pdfToText(ctx, data)
	if err != nil {
		return Payload{}, common.WrapError(err, "pdf text extraction")
	}
	if strings.TrimSpace(text) == "" {
		// scanned/garbled PDF with no extractable text layer
		return Payload{}, common.NewAppError(common.CodePDFParseFailed, "no extractable text in PDF", nil)
	}

	// pdftotext separates pages with form feeds
	pages := splitPages(text)
	if len(pages) == 0 {
		pages = []string{text}
	}
	pageCount := len(pages)
	if pageCount > p.cfg.MaxPages {
		pages = pages[:p.cfg.MaxPages]
	}

	var b strings.Builder
	for i, pg := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- PAGE %d ---\n", i+1)
		b.WriteString(pg)
	}
	joined := b.String()
	if len(joined) > p.cfg.MaxChars {
		joined = joined[:p.cfg.MaxChars]
	}

	if pageCount < 1 {
		pageCount = 1
	}
	return Payload{
		Kind:     KindPDF,
		Text:     joined,
		Pages:    pageCount,
		MIMEType: mimeType,
		FileName: fileName,
	}, nil
}

// pdfToText writes the upload to a temp file and decodes its text layer:
// pdftotext -layout -enc UTF-8 -eol unix <path> -
func (p *Preprocessor) pdfToText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "iv-upload-*.pdf")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			p.logger.Warn("document.tmp.remove_failed", "path", filepath.Base(tmpPath), "error", err)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmpPath, "-")
	if err != nil {
		return "", fmt.Errorf("%s: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func splitPages(text string) []string {
	parts := strings.Split(text, "\f")
	pages := make([]string, 0, len(parts))
	for _, pg := range parts {
		if pg != "" {
			pages = append(pages, pg)
		}
	}
	return pages
}

// imagePayload wraps the raw bytes as a data URL using the declared MIME
// type. No size or format validation happens here; the extraction capability
// rejects what it cannot read.
func (p *Preprocessor) imagePayload(data []byte, mimeType, fileName string) Payload {
	mt := strings.TrimSpace(mimeType)
	if mt == "" {
		mt = "application/octet-stream"
	}
	b64 := base64.StdEncoding.EncodeToString(data)
	return Payload{
		Kind:     KindImage,
		DataURL:  "data:" + mt + ";base64," + b64,
		MIMEType: mt,
		FileName: fileName,
	}
}
