package invoice

import (
	"encoding/json"
	"regexp"
)

// The validator is a total function: any missing or malformed field degrades
// to its type default instead of failing the record. Partial structured data
// is more useful to a reviewer than an outright rejection.
//
// Out-of-range numbers are replaced by the default, not clamped; a negative
// total or a confidence of 150 means the extractor returned something
// unparseable, and the zero default preserves that signal.

// ValidateRecord repairs arbitrary untrusted JSON into a Record. It never
// fails: undecodable input yields the empty record.
func ValidateRecord(raw []byte) Record {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return EmptyRecord()
	}
	return FromMap(m)
}

// FromMap repairs a decoded JSON object into a Record field by field.
func FromMap(m map[string]any) Record {
	rec := Record{
		InvoiceNo:           strField(m, "invoice_no"),
		InvoiceDate:         strField(m, "invoice_date"),
		ShipperName:         strField(m, "shipper_name"),
		ConsigneeName:       strField(m, "consignee_name"),
		TotalAmount:         nonNegNumber(m, "total_amount"),
		Currency:            strField(m, "currency"),
		Items:               itemsField(m),
		ConfidenceScore:     boundedNumber(m, "confidence_score", 0, 100),
		LowConfidenceFields: stringsField(m, "low_confidence_fields"),
	}
	return rec
}

func strField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func nonNegNumber(m map[string]any, key string) float64 {
	if f, ok := m[key].(float64); ok && f >= 0 {
		return f
	}
	return 0
}

func boundedNumber(m map[string]any, key string, min, max float64) float64 {
	if f, ok := m[key].(float64); ok && f >= min && f <= max {
		return f
	}
	return 0
}

func itemsField(m map[string]any) []LineItem {
	raw, ok := m["items"].([]any)
	if !ok {
		return []LineItem{}
	}
	items := make([]LineItem, 0, len(raw))
	for _, v := range raw {
		im, ok := v.(map[string]any)
		if !ok {
			items = append(items, LineItem{})
			continue
		}
		items = append(items, LineItem{
			Description: strField(im, "description"),
			Quantity:    nonNegNumber(im, "quantity"),
			UnitPrice:   nonNegNumber(im, "unit_price"),
		})
	}
	return items
}

func stringsField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

var dateRe = regexp.MustCompile(`(\d{4})[-./](\d{1,2})[-./](\d{1,2})`)

// NormalizeDate scans input for the first Y-M-D shaped substring (separators
// - . /), zero-pads month and day, and rejoins with dashes. No match yields
// "". Calendar correctness is not checked; month 13 passes through as "13".
func NormalizeDate(input string) string {
	m := dateRe.FindStringSubmatch(input)
	if m == nil {
		return ""
	}
	return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
