package extract

import (
	"fmt"

	"github.com/docuflow/invoice-verifier/internal/document"
)

// SchemaPrompt is the fixed instruction sent with every extraction request.
// The shape it names is the wire contract; the validator repairs whatever
// comes back into exactly this shape.
const SchemaPrompt = `Extract invoice data and return ONLY valid JSON with this exact schema:
{
  "invoice_no": "string",
  "invoice_date": "YYYY-MM-DD",
  "shipper_name": "string",
  "consignee_name": "string",
  "total_amount": number,
  "currency": "string",
  "items": [{"description":"string","quantity":number,"unit_price":number}],
  "confidence_score": number,
  "low_confidence_fields": ["string"]
}`

// Message is one chat turn. Content is either a plain string or a sequence
// of typed parts (text + image_url) for the vision path.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

// BuildMessages packages the schema prompt with the payload: inline page
// text for PDFs, an attached image otherwise.
func BuildMessages(payload document.Payload) []Message {
	if payload.Kind == document.KindPDF {
		return []Message{{
			Role:    "user",
			Content: fmt.Sprintf("%s\n\nInvoice text (%d pages):\n%s", SchemaPrompt, payload.Pages, payload.Text),
		}}
	}
	return []Message{{
		Role: "user",
		Content: []any{
			textPart{Type: "text", Text: SchemaPrompt},
			imagePart{Type: "image_url", ImageURL: imageURL{URL: payload.DataURL}},
		},
	}}
}
