package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/invoice-verifier/internal/common"
	"github.com/docuflow/invoice-verifier/internal/document"
	"github.com/docuflow/invoice-verifier/internal/invoice"
)

// Completer is the outbound capability the orchestrator depends on: given
// chat messages, return the model's text output. Implemented by the openai
// client; stubbed in tests.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Orchestrator turns a prepared payload into a validated invoice record.
// One outbound call per invocation, no retry, no cache; recovery is a
// user-initiated re-upload.
type Orchestrator struct {
	client Completer
	logger *slog.Logger
}

func NewOrchestrator(client Completer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{client: client, logger: logger}
}

// Extract sends the schema prompt plus payload to the capability, parses the
// response as JSON, repairs it into a Record, and normalizes the date field.
// The validate-then-normalize order matters: normalization runs on the
// validator's string default, so a missing date yields "".
func (o *Orchestrator) Extract(ctx context.Context, payload document.Payload) (invoice.Record, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	o.logger.Info("extract.start",
		"req_id", rid,
		"kind", payload.Kind,
		"file", payload.FileName,
		"text_len", len(payload.Text),
		"pages", payload.Pages,
	)

	content, err := o.client.Complete(ctx, BuildMessages(payload))
	if err != nil {
		o.logger.Error("extract.complete_failed",
			"req_id", rid,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if common.CodeOf(err) == common.CodeNoAPIKey {
			return invoice.Record{}, err
		}
		return invoice.Record{}, common.NewAppError(common.CodeExtractFailed, "extraction call failed", err)
	}

	raw := []byte(strings.TrimSpace(content))

	// Advisory only: mismatches are repaired by the validator below.
	if err := ValidateJSONAgainstSchema(BuildInvoiceJSONSchema(), raw); err != nil {
		o.logger.Warn("extract.schema_mismatch", "req_id", rid, "error", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		o.logger.Error("extract.decode_failed",
			"req_id", rid,
			"error", err,
			"raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return invoice.Record{}, common.NewAppError(common.CodeExtractFailed, "model output is not valid JSON", err)
	}

	rec := invoice.FromMap(m)
	rec.InvoiceDate = invoice.NormalizeDate(rec.InvoiceDate)

	o.logger.Info("extract.ok",
		"req_id", rid,
		"invoice_no", rec.InvoiceNo,
		"date", rec.InvoiceDate,
		"total", rec.TotalAmount,
		"currency", rec.Currency,
		"items", len(rec.Items),
		"confidence", rec.ConfidenceScore,
		"low_confidence_fields", len(rec.LowConfidenceFields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}
