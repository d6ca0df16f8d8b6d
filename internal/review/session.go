package review

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/invoice-verifier/internal/invoice"
)

// Status is the review lifecycle of the record currently held by a session.
type Status string

const (
	StatusEmpty       Status = "EMPTY"
	StatusExtracted   Status = "EXTRACTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusConfirmed   Status = "CONFIRMED"
)

// Session owns exactly one invoice record, its append-only audit log, and
// the two gate booleans. All operations are in-memory state transitions;
// there is one interactive mutator, but the HTTP layer may probe the session
// concurrently, so a mutex guards the handle.
type Session struct {
	mu sync.Mutex

	id     uuid.UUID
	loaded bool
	record invoice.Record
	audit  []AuditEntry

	confirmed             bool
	lowConfidenceReviewed bool

	logger *slog.Logger
	now    func() time.Time
}

// Snapshot is a consistent read of the whole session.
type Snapshot struct {
	SessionID             string               `json:"session_id"`
	Status                Status               `json:"status"`
	Record                invoice.Record       `json:"record"`
	Audit                 []AuditEntry         `json:"audit"`
	Confirmed             bool                 `json:"confirmed"`
	LowConfidenceReviewed bool                 `json:"low_confidence_reviewed"`
	Exportable            bool                 `json:"exportable"`
}

func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:     uuid.New(),
		record: invoice.EmptyRecord(),
		audit:  []AuditEntry{},
		logger: logger,
		now:    time.Now,
	}
}

// Load replaces the record wholesale after a successful extraction: audit
// log cleared, both gate booleans reset.
func (s *Session) Load(rec invoice.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Items == nil {
		rec.Items = []invoice.LineItem{}
	}
	if rec.LowConfidenceFields == nil {
		rec.LowConfidenceFields = []string{}
	}
	s.record = rec
	s.audit = []AuditEntry{}
	s.confirmed = false
	s.lowConfidenceReviewed = false
	s.loaded = true

	s.logger.Info("review.load",
		"session_id", s.id.String(),
		"invoice_no", rec.InvoiceNo,
		"items", len(rec.Items),
		"low_confidence_fields", len(rec.LowConfidenceFields),
	)
}

// Reset returns the session to its pre-upload state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = invoice.EmptyRecord()
	s.audit = []AuditEntry{}
	s.confirmed = false
	s.lowConfidenceReviewed = false
	s.loaded = false
	s.logger.Info("review.reset", "session_id", s.id.String())
}

// UpdateField applies one edit. The stringified old and new values are
// compared first: equal values are silently ignored (no state change, no
// audit entry); unequal values append an entry and then commit.
// Returns whether the edit was effective.
func (s *Session) UpdateField(ref invoice.FieldRef, raw string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return false, fmt.Errorf("no record under review")
	}

	oldVal, newVal, commit, err := s.resolve(ref, raw)
	if err != nil {
		return false, err
	}
	if oldVal == newVal {
		return false, nil
	}

	s.audit = append(s.audit, AuditEntry{
		At:       s.now().UTC(),
		Field:    ref.String(),
		OldValue: oldVal,
		NewValue: newVal,
	})
	commit()

	s.logger.Info("review.edit",
		"session_id", s.id.String(),
		"field", ref.String(),
		"audit_len", len(s.audit),
	)
	return true, nil
}

// resolve maps a field reference to its current stringified value, the
// stringified incoming value, and a commit closure.
func (s *Session) resolve(ref invoice.FieldRef, raw string) (oldVal, newVal string, commit func(), err error) {
	if ref.IsItem() {
		if ref.Index >= len(s.record.Items) {
			return "", "", nil, fmt.Errorf("item index %d out of range", ref.Index)
		}
		item := &s.record.Items[ref.Index]
		switch ref.Name {
		case "description":
			return item.Description, raw, func() { item.Description = raw }, nil
		case "quantity":
			f, perr := parseNumber(raw)
			if perr != nil {
				return "", "", nil, perr
			}
			return formatNumber(item.Quantity), formatNumber(f), func() { item.Quantity = f }, nil
		case "unit_price":
			f, perr := parseNumber(raw)
			if perr != nil {
				return "", "", nil, perr
			}
			return formatNumber(item.UnitPrice), formatNumber(f), func() { item.UnitPrice = f }, nil
		default:
			return "", "", nil, fmt.Errorf("unknown item field %q", ref.Name)
		}
	}

	switch ref.Name {
	case "invoice_no":
		return s.record.InvoiceNo, raw, func() { s.record.InvoiceNo = raw }, nil
	case "invoice_date":
		return s.record.InvoiceDate, raw, func() { s.record.InvoiceDate = raw }, nil
	case "shipper_name":
		return s.record.ShipperName, raw, func() { s.record.ShipperName = raw }, nil
	case "consignee_name":
		return s.record.ConsigneeName, raw, func() { s.record.ConsigneeName = raw }, nil
	case "currency":
		return s.record.Currency, raw, func() { s.record.Currency = raw }, nil
	case "total_amount":
		f, perr := parseNumber(raw)
		if perr != nil {
			return "", "", nil, perr
		}
		return formatNumber(s.record.TotalAmount), formatNumber(f), func() { s.record.TotalAmount = f }, nil
	default:
		return "", "", nil, fmt.Errorf("unknown field %q", ref.Name)
	}
}

// SetConfirmed flips the approval flag. Reversible.
func (s *Session) SetConfirmed(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = v
	s.logger.Info("review.confirm", "session_id", s.id.String(), "confirmed", v)
}

// SetLowConfidenceReviewed flips the low-confidence acknowledgment flag.
func (s *Session) SetLowConfidenceReviewed(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lowConfidenceReviewed = v
	s.logger.Info("review.acknowledge", "session_id", s.id.String(), "reviewed", v)
}

// Exportable is the export gate, a pure function of current state:
// confirmed, and either nothing was flagged low-confidence or the reviewer
// acknowledged the flagged fields. Acknowledgment is never required when
// there is nothing to acknowledge.
func (s *Session) Exportable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportableLocked()
}

func (s *Session) exportableLocked() bool {
	return s.confirmed && (!s.record.HasLowConfidence() || s.lowConfidenceReviewed)
}

// Status derives the lifecycle position from current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	switch {
	case !s.loaded:
		return StatusEmpty
	case s.confirmed:
		return StatusConfirmed
	case len(s.audit) > 0:
		return StatusUnderReview
	default:
		return StatusExtracted
	}
}

// Record returns a copy of the current record.
func (s *Session) Record() invoice.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(s.record)
}

// Audit returns a copy of the audit log in append order.
func (s *Session) Audit() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

func (s *Session) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

func (s *Session) LowConfidenceReviewed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lowConfidenceReviewed
}

// Snapshot reads the whole session consistently under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	audit := make([]AuditEntry, len(s.audit))
	copy(audit, s.audit)
	return Snapshot{
		SessionID:             s.id.String(),
		Status:                s.statusLocked(),
		Record:                copyRecord(s.record),
		Audit:                 audit,
		Confirmed:             s.confirmed,
		LowConfidenceReviewed: s.lowConfidenceReviewed,
		Exportable:            s.exportableLocked(),
	}
}

func copyRecord(rec invoice.Record) invoice.Record {
	out := rec
	out.Items = make([]invoice.LineItem, len(rec.Items))
	copy(out.Items, rec.Items)
	out.LowConfidenceFields = make([]string, len(rec.LowConfidenceFields))
	copy(out.LowConfidenceFields, rec.LowConfidenceFields)
	return out
}

// parseNumber mirrors the edit form's coercion: blank means zero.
func parseNumber(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return f, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
