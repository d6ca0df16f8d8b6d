package invoice

// LineItem is a single billed line on a commercial invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`   // >= 0
	UnitPrice   float64 `json:"unit_price"` // >= 0
}

// Record is the canonical invoice shape produced by extraction and reviewed
// by a human. Dates use YYYY-MM-DD with "" as the unknown sentinel, never null.
type Record struct {
	InvoiceNo           string     `json:"invoice_no"`
	InvoiceDate         string     `json:"invoice_date"`
	ShipperName         string     `json:"shipper_name"`
	ConsigneeName       string     `json:"consignee_name"`
	TotalAmount         float64    `json:"total_amount"` // >= 0
	Currency            string     `json:"currency"`
	Items               []LineItem `json:"items"`
	ConfidenceScore     float64    `json:"confidence_score"` // 0..100
	LowConfidenceFields []string   `json:"low_confidence_fields"`
}

// EmptyRecord returns a zero record with non-nil slices so it always
// marshals to the full wire shape.
func EmptyRecord() Record {
	return Record{
		Items:               []LineItem{},
		LowConfidenceFields: []string{},
	}
}

// HasLowConfidence reports whether extraction flagged any field as unreliable.
func (r Record) HasLowConfidence() bool {
	return len(r.LowConfidenceFields) > 0
}
