package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/invoice-verifier/internal/common"
	"github.com/docuflow/invoice-verifier/internal/document"
	"github.com/docuflow/invoice-verifier/internal/export"
	"github.com/docuflow/invoice-verifier/internal/invoice"
	"github.com/docuflow/invoice-verifier/internal/review"
)

type stubExtractor struct {
	record invoice.Record
	err    error
}

func (s stubExtractor) Extract(_ context.Context, _ document.Payload) (invoice.Record, error) {
	return s.record, s.err
}

type stubRunner struct {
	stdout string
}

func (r stubRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	return []byte(r.stdout), nil, nil
}

type testEnv struct {
	app     *fiber.App
	session *review.Session
}

func newTestEnv(t *testing.T, apiKey string, ext Extractor, pdfText string) testEnv {
	t.Helper()

	cfg := common.LoadConfig()
	cfg.LLM.APIKey = apiKey

	pre := document.NewPreprocessor(document.Config{}, stubRunner{stdout: pdfText}, nil)
	session := review.NewSession(nil)
	srv := New(cfg, pre, ext, session, export.NewService(nil), nil)

	app := fiber.New()
	srv.RegisterRoutes(app)
	return testEnv{app: app, session: session}
}

func multipartBody(t *testing.T, fileName, mimeType, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	hdr["Content-Type"] = []string{mimeType}
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestExtractNoFile(t *testing.T) {
	env := newTestEnv(t, "test-key", stubExtractor{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/extract", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, 400, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "NO_FILE", body["error_code"])
	assert.NotEmpty(t, body["error"])
}

func TestExtractNoAPIKey(t *testing.T) {
	env := newTestEnv(t, "", stubExtractor{}, "some text")

	buf, contentType := multipartBody(t, "inv.pdf", "application/pdf", "%PDF-")
	req := httptest.NewRequest(http.MethodPost, "/api/extract", buf)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "NO_API_KEY", decodeBody(t, resp)["error_code"])
}

func TestExtractPDFWithoutTextLayer(t *testing.T) {
	env := newTestEnv(t, "test-key", stubExtractor{record: invoice.EmptyRecord()}, "   \n ")

	buf, contentType := multipartBody(t, "scan.pdf", "application/pdf", "%PDF-")
	req := httptest.NewRequest(http.MethodPost, "/api/extract", buf)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "PDF_PARSE_FAILED", decodeBody(t, resp)["error_code"])
	// the failed attempt never touches the review session
	assert.Equal(t, review.StatusEmpty, env.session.Status())
}

func TestExtractFailureKeepsSessionUntouched(t *testing.T) {
	env := newTestEnv(t, "test-key", stubExtractor{
		err: common.NewAppError(common.CodeExtractFailed, "model output is not valid JSON", nil),
	}, "page text")

	buf, contentType := multipartBody(t, "inv.pdf", "application/pdf", "%PDF-")
	req := httptest.NewRequest(http.MethodPost, "/api/extract", buf)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "EXTRACT_FAILED", decodeBody(t, resp)["error_code"])
	assert.Equal(t, review.StatusEmpty, env.session.Status())
}

func TestExtractSuccessLoadsSession(t *testing.T) {
	rec := invoice.Record{
		InvoiceNo:           "INV-1",
		TotalAmount:         50,
		Currency:            "USD",
		Items:               []invoice.LineItem{{Description: "box", Quantity: 1, UnitPrice: 50}},
		ConfidenceScore:     90,
		LowConfidenceFields: []string{},
	}
	env := newTestEnv(t, "test-key", stubExtractor{record: rec}, "")

	buf, contentType := multipartBody(t, "invoice.png", "image/png", "fakepng")
	req := httptest.NewRequest(http.MethodPost, "/api/extract", buf)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INV-1", data["invoice_no"])
	assert.Equal(t, review.StatusExtracted, env.session.Status())
}

func TestMockEndpoint(t *testing.T) {
	env := newTestEnv(t, "", stubExtractor{}, "")

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/mock?mode=low", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "mock-low", body["source"])
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["low_confidence_fields"])
	assert.Equal(t, review.StatusExtracted, env.session.Status())

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/mock", nil))
	require.NoError(t, err)
	assert.Equal(t, "mock-high", decodeBody(t, resp)["source"])
}

func TestReviewFlowWithLowConfidenceGate(t *testing.T) {
	rec := invoice.Record{
		InvoiceNo:           "INV-2",
		TotalAmount:         100,
		Currency:            "USD",
		Items:               []invoice.LineItem{},
		ConfidenceScore:     60,
		LowConfidenceFields: []string{"currency"},
	}
	env := newTestEnv(t, "test-key", stubExtractor{record: rec}, "")
	env.session.Load(rec)

	// export blocked before any verification
	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/export", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
	assert.Equal(t, "NOT_EXPORTABLE", decodeBody(t, resp)["error_code"])

	// confirming alone is not enough while a low-confidence field is pending
	resp = postJSON(t, env.app, "/api/review/confirm", `{"confirmed": true}`)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["exportable"])

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/export", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)

	// acknowledging the flagged fields opens the gate
	resp = postJSON(t, env.app, "/api/review/acknowledge", `{"reviewed": true}`)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["exportable"])

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/api/export", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, xlsxMIME, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), export.FileName)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestEditFieldAndNoOpRepeat(t *testing.T) {
	env := newTestEnv(t, "test-key", stubExtractor{}, "")
	env.session.Load(invoice.Record{
		Currency:            "USD",
		Items:               []invoice.LineItem{},
		LowConfidenceFields: []string{"currency"},
	})

	resp := postJSON(t, env.app, "/api/review/field", `{"field": "currency", "value": "EUR"}`)
	assert.Equal(t, 200, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, float64(1), body["audit_len"])

	// same value again: acknowledged, but no second audit entry
	resp = postJSON(t, env.app, "/api/review/field", `{"field": "currency", "value": "EUR"}`)
	body = decodeBody(t, resp)
	assert.Equal(t, false, body["changed"])
	assert.Equal(t, float64(1), body["audit_len"])

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/review", nil))
	require.NoError(t, err)
	snap := decodeBody(t, resp)
	assert.Equal(t, string(review.StatusUnderReview), snap["status"])
	audit := snap["audit"].([]any)
	require.Len(t, audit, 1)
}

func TestEditFieldRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, "test-key", stubExtractor{}, "")
	env.session.Load(invoice.Record{Items: []invoice.LineItem{}, LowConfidenceFields: []string{}})

	testCases := []struct {
		name string
		body string
	}{
		{name: "unknown_field", body: `{"field": "vat_number", "value": "x"}`},
		{name: "bad_item_index", body: `{"field": "items[4].quantity", "value": "2"}`},
		{name: "non_numeric_total", body: `{"field": "total_amount", "value": "abc"}`},
		{name: "empty_field_name", body: `{"field": "", "value": "x"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, env.app, "/api/review/field", tc.body)
			assert.Equal(t, 400, resp.StatusCode)
			assert.Equal(t, "INVALID_FIELD", decodeBody(t, resp)["error_code"])
		})
	}
}
