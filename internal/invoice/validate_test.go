package invoice

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "dashes_already_padded", input: "2024-03-05", expected: "2024-03-05"},
		{name: "slashes_unpadded", input: "Invoice dated 2024/3/5", expected: "2024-03-05"},
		{name: "dots", input: "2023.12.31", expected: "2023-12-31"},
		{name: "mixed_separators", input: "2024-3/05", expected: "2024-03-05"},
		{name: "embedded_in_text", input: "date: 2022/7/9, due later", expected: "2022-07-09"},
		{name: "first_match_wins", input: "2021/1/1 then 2022/2/2", expected: "2021-01-01"},
		{name: "month_13_passes_through", input: "2024-13-01", expected: "2024-13-01"},
		{name: "no_date", input: "no date", expected: ""},
		{name: "empty", input: "", expected: ""},
		{name: "two_digit_year", input: "24-03-05", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeDate(tc.input))
		})
	}
}

func TestValidateRecordDefaults(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected Record
	}{
		{
			name:     "empty_object",
			raw:      `{}`,
			expected: EmptyRecord(),
		},
		{
			name:     "not_json",
			raw:      `nonsense{`,
			expected: EmptyRecord(),
		},
		{
			name: "negative_total_replaced_not_clamped",
			raw:  `{"total_amount": -5, "invoice_no": "A-1"}`,
			expected: Record{
				InvoiceNo:           "A-1",
				Items:               []LineItem{},
				LowConfidenceFields: []string{},
			},
		},
		{
			name: "confidence_out_of_range_replaced",
			raw:  `{"confidence_score": 150}`,
			expected: Record{
				Items:               []LineItem{},
				LowConfidenceFields: []string{},
			},
		},
		{
			name: "wrong_types_degrade_per_field",
			raw:  `{"invoice_no": 42, "total_amount": "12.5", "currency": "USD", "items": "nope"}`,
			expected: Record{
				Currency:            "USD",
				Items:               []LineItem{},
				LowConfidenceFields: []string{},
			},
		},
		{
			name: "item_fields_default_independently",
			raw:  `{"items": [{"description": "LED panel", "quantity": -3, "unit_price": 10}, 7]}`,
			expected: Record{
				Items: []LineItem{
					{Description: "LED panel", Quantity: 0, UnitPrice: 10},
					{},
				},
				LowConfidenceFields: []string{},
			},
		},
		{
			name: "non_string_low_confidence_entries_dropped",
			raw:  `{"low_confidence_fields": ["currency", 3, null, "total_amount"]}`,
			expected: Record{
				Items:               []LineItem{},
				LowConfidenceFields: []string{"currency", "total_amount"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ValidateRecord([]byte(tc.raw)))
		})
	}
}

func TestValidateRecordInvariants(t *testing.T) {
	raw := `{"total_amount": -1, "confidence_score": -7,
		"items": [{"quantity": -2, "unit_price": -9.99}]}`
	rec := ValidateRecord([]byte(raw))

	assert.GreaterOrEqual(t, rec.TotalAmount, 0.0)
	assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, rec.ConfidenceScore, 100.0)
	for _, it := range rec.Items {
		assert.GreaterOrEqual(t, it.Quantity, 0.0)
		assert.GreaterOrEqual(t, it.UnitPrice, 0.0)
	}
	assert.NotNil(t, rec.Items)
	assert.NotNil(t, rec.LowConfidenceFields)
}

func TestValidateRecordIdempotent(t *testing.T) {
	valid := Record{
		InvoiceNo:           "INV-7",
		InvoiceDate:         "2024-01-02",
		ShipperName:         "Shipper",
		ConsigneeName:       "Consignee",
		TotalAmount:         120.5,
		Currency:            "EUR",
		Items:               []LineItem{{Description: "box", Quantity: 3, UnitPrice: 40}},
		ConfidenceScore:     88,
		LowConfidenceFields: []string{"currency"},
	}

	b, err := json.Marshal(valid)
	require.NoError(t, err)

	assert.Equal(t, valid, ValidateRecord(b))
}
