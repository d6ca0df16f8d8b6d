package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. Validation against it is advisory: the total validator in the
// invoice package repairs mismatches, so a failing document is logged, never
// rejected.
func BuildInvoiceJSONSchema() map[string]any {
	itemProps := map[string]any{
		"description": map[string]any{"type": "string"},
		"quantity":    map[string]any{"type": "number", "minimum": 0.0},
		"unit_price":  map[string]any{"type": "number", "minimum": 0.0},
	}
	props := map[string]any{
		"invoice_no":     map[string]any{"type": "string"},
		"invoice_date":   map[string]any{"type": "string"},
		"shipper_name":   map[string]any{"type": "string"},
		"consignee_name": map[string]any{"type": "string"},
		"total_amount":   map[string]any{"type": "number", "minimum": 0.0},
		"currency":       map[string]any{"type": "string"},
		"items": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object", "properties": itemProps},
		},
		"confidence_score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
		"low_confidence_fields": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
