package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mmynk/debtbook/internal/diagnostics"
	"github.com/mmynk/debtbook/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type fakeModel struct {
	out   *ModelOutput
	err   error
	panic bool

	mu       sync.Mutex
	mimeType string
	image    []byte
}

func (m *fakeModel) Generate(_ context.Context, image []byte, mimeType, _ string) (*ModelOutput, error) {
	if m.panic {
		panic("model exploded")
	}
	m.mu.Lock()
	m.image, m.mimeType = image, mimeType
	m.mu.Unlock()
	return m.out, m.err
}

type memorySink struct {
	mu      sync.Mutex
	records []diagnostics.Record
}

func (s *memorySink) Write(_ context.Context, r diagnostics.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func newTestGateway(t *testing.T, model VisionModel) (*Gateway, *diagnostics.Dispatcher, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	d := diagnostics.NewDispatcher(sink)
	d.Start()
	t.Cleanup(func() { d.Close() })
	return NewGateway(NewExtractor(model, d, 0), 1<<20), d, sink
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func imageBody(prefix string) string {
	b, _ := json.Marshal(analyzeRequest{ImageBase64: prefix + base64.StdEncoding.EncodeToString(pngHeader)})
	return string(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestGateway_SimpleReceipt(t *testing.T) {
	model := &fakeModel{out: &ModelOutput{Text: `[{"item":"Mleko 2%","price":3.49},{"item":"Chleb","price":4.99}]`}}
	g, _, _ := newTestGateway(t, model)

	rec := post(t, g, imageBody("data:image/png;base64,"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body)
	}

	var items []models.LineItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to decode items: %v", err)
	}
	want := []models.LineItem{{Item: "Mleko 2%", Price: 3.49}, {Item: "Chleb", Price: 4.99}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
	if model.mimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", model.mimeType)
	}
	if !bytes.Equal(model.image, pngHeader) {
		t.Error("Model did not receive the decoded image")
	}
}

func TestGateway_FencedOutput(t *testing.T) {
	model := &fakeModel{out: &ModelOutput{Text: "```json\n[{\"item\":\"Mleko\",\"price\":3.49}]\n```"}}
	g, _, _ := newTestGateway(t, model)

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `[{"item":"Mleko","price":3.49}]` {
		t.Errorf("Body = %s", got)
	}
}

func TestGateway_EmptyReceipt(t *testing.T) {
	g, _, _ := newTestGateway(t, &fakeModel{out: &ModelOutput{Text: "[]"}})
	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestGateway_NotAReceipt(t *testing.T) {
	g, d, sink := newTestGateway(t, &fakeModel{out: &ModelOutput{Text: `{"error":"Przesłany obraz nie jest paragonem."}`}})

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Message; got != "Przesłany obraz nie jest paragonem." {
		t.Errorf("Message = %q", got)
	}
	d.Close()
	if len(sink.records) != 0 {
		t.Errorf("Not-a-receipt should not be recorded, got %d records", len(sink.records))
	}
}

func TestGateway_SafetyBlock(t *testing.T) {
	g, d, sink := newTestGateway(t, &fakeModel{out: &ModelOutput{BlockReason: "SAFETY", Text: "ignored"}})

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Message; !strings.Contains(got, "SAFETY") {
		t.Errorf("Message %q should embed the block reason", got)
	}
	d.Close()
	if len(sink.records) != 1 || sink.records[0].Category != diagnostics.CategorySafetyBlock {
		t.Errorf("Expected one safety_block record, got %+v", sink.records)
	}
}

func TestGateway_MalformedOutput(t *testing.T) {
	raw := "Oto wynik: [" + strings.Repeat("x", 500) + "]"
	g, d, sink := newTestGateway(t, &fakeModel{out: &ModelOutput{Text: raw}})

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Status = %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Message == "" {
		t.Error("Expected a message")
	}
	if !strings.HasPrefix(resp.Details, "Oto wynik: [") {
		t.Errorf("Details %q should start with the raw text", resp.Details)
	}
	if len([]rune(resp.Details)) > 201 {
		t.Errorf("Details should be truncated, got %d runes", len([]rune(resp.Details)))
	}

	d.Close()
	if len(sink.records) != 1 {
		t.Fatalf("Expected one record, got %d", len(sink.records))
	}
	r := sink.records[0]
	if r.Category != diagnostics.CategoryParseError || r.RawResponse != raw {
		t.Errorf("Unexpected record: category=%s raw=%d bytes", r.Category, len(r.RawResponse))
	}
	if r.RequestID != rec.Header().Get("X-Request-Id") {
		t.Errorf("Record request id %q does not match response header", r.RequestID)
	}
}

func TestGateway_SchemaViolation(t *testing.T) {
	g, d, sink := newTestGateway(t, &fakeModel{out: &ModelOutput{Text: `[{"item":"Mleko","price":"3.49"}]`}})

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Status = %d", rec.Code)
	}
	d.Close()
	if len(sink.records) != 1 || sink.records[0].Category != diagnostics.CategoryValidationError {
		t.Errorf("Expected one validation_error record, got %+v", sink.records)
	}
}

func TestGateway_UpstreamFailureHidesDetails(t *testing.T) {
	g, d, sink := newTestGateway(t, &fakeModel{err: errors.New("dial tcp: secret-host:443 refused")})

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Status = %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if strings.Contains(rec.Body.String(), "secret-host") {
		t.Errorf("Internal error leaked: %s", rec.Body)
	}
	if !strings.Contains(resp.Details, rec.Header().Get("X-Request-Id")) {
		t.Errorf("Details %q should carry the request id", resp.Details)
	}
	d.Close()
	if len(sink.records) != 1 || sink.records[0].Category != diagnostics.CategoryModelError {
		t.Fatalf("Expected one model_error record, got %+v", sink.records)
	}
	if r := sink.records[0]; !strings.Contains(r.Message, "secret-host") || r.Stack != "" {
		t.Errorf("model_error should carry the cause and no stack, got %+v", r)
	}
}

func TestGateway_PanicIsRecovered(t *testing.T) {
	g, d, sink := newTestGateway(t, &fakeModel{panic: true})

	rec := post(t, g, imageBody(""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Errorf("Panic value leaked: %s", rec.Body)
	}
	d.Close()
	if len(sink.records) != 1 || sink.records[0].Category != diagnostics.CategoryInternalError || sink.records[0].Stack == "" {
		t.Errorf("Expected one internal_error record with stack, got %+v", sink.records)
	}
}

func TestGateway_RequestErrors(t *testing.T) {
	g, _, _ := newTestGateway(t, &fakeModel{out: &ModelOutput{Text: "[]"}})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("Status = %d", rec.Code)
		}
		if got := decodeError(t, rec).Message; got != "Only POST requests allowed" {
			t.Errorf("Message = %q", got)
		}
	})

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing image", `{}`, http.StatusBadRequest, "No image data provided."},
		{"empty body", ``, http.StatusBadRequest, "No image data provided."},
		{"prefix only", `{"imageBase64":"data:image/jpeg;base64,"}`, http.StatusBadRequest, "No image data provided."},
		{"invalid base64", `{"imageBase64":"@@@not base64@@@"}`, http.StatusBadRequest, "Invalid image data."},
		{"not json", `imageBase64=abc`, http.StatusBadRequest, "Invalid request body."},
		{"too large", `{"imageBase64":"` + strings.Repeat("A", 2<<20) + `"}`, http.StatusRequestEntityTooLarge, "Image is too large."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, g, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("Status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			if got := decodeError(t, rec).Message; got != tt.message {
				t.Errorf("Message = %q, want %q", got, tt.message)
			}
		})
	}
}
