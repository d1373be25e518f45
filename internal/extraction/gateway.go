package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/debtbook/internal/metrics"
)

// DefaultMaxImageBytes caps the request body of the gateway.
const DefaultMaxImageBytes = 15 << 20

// Path is where the gateway is mounted.
const Path = "/api/analyzeReceipt"

const (
	msgMethodNotAllowed = "Only POST requests allowed"
	msgNoImage          = "No image data provided."
	msgInvalidImage     = "Invalid image data."
	msgInvalidBody      = "Invalid request body."
	msgTooLarge         = "Image is too large."
	msgSafetyBlocked    = "Analiza obrazu została zablokowana przez filtr bezpieczeństwa: %s"
	msgMalformed        = "Nie udało się odczytać odpowiedzi modelu. Spróbuj ponownie."
	msgInternal         = "Błąd serwera podczas analizy paragonu."
)

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

type errorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Gateway is the HTTP handler for receipt extraction.
type Gateway struct {
	extractor *Extractor
	maxBytes  int64
}

// NewGateway creates a gateway. maxBytes <= 0 selects DefaultMaxImageBytes.
func NewGateway(extractor *Extractor, maxBytes int64) *Gateway {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Gateway{extractor: extractor, maxBytes: maxBytes}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	start := time.Now()
	inputSize := 0

	defer func() {
		if p := recover(); p != nil {
			slog.Error("Panic in receipt analysis", "request_id", requestID, "panic", fmt.Sprint(p))
			g.extractor.LogInternal(requestID, fmt.Sprint(p), string(debug.Stack()), inputSize)
			g.respond(w, requestID, "internal_error", http.StatusInternalServerError,
				errorResponse{Message: msgInternal, Details: "Request ID: " + requestID})
		}
	}()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		g.respond(w, requestID, "bad_request", http.StatusMethodNotAllowed, errorResponse{Message: msgMethodNotAllowed})
		return
	}

	var req analyzeRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, g.maxBytes)).Decode(&req)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		g.respond(w, requestID, "bad_request", http.StatusRequestEntityTooLarge, errorResponse{Message: msgTooLarge})
		return
	case err != nil && !errors.Is(err, io.EOF):
		g.respond(w, requestID, "bad_request", http.StatusBadRequest, errorResponse{Message: msgInvalidBody})
		return
	}
	inputSize = len(req.ImageBase64)

	ctx := WithRequestID(r.Context(), requestID)
	items, err := g.extractor.Extract(ctx, req.ImageBase64)
	if err != nil {
		g.fail(w, requestID, err)
		return
	}

	slog.Info("Receipt analyzed",
		"request_id", requestID,
		"items", len(items),
		"duration", time.Since(start),
	)
	g.respond(w, requestID, "ok", http.StatusOK, items)
}

func (g *Gateway) fail(w http.ResponseWriter, requestID string, err error) {
	var xerr *Error
	if !errors.As(err, &xerr) {
		xerr = &Error{Kind: ErrUpstream, Err: err}
	}

	switch xerr.Kind {
	case ErrNoImage:
		g.respond(w, requestID, "bad_request", http.StatusBadRequest, errorResponse{Message: msgNoImage})
	case ErrInvalidImage:
		g.respond(w, requestID, "bad_request", http.StatusBadRequest, errorResponse{Message: msgInvalidImage})
	case ErrNotAReceipt:
		g.respond(w, requestID, "not_a_receipt", http.StatusBadRequest, errorResponse{Message: xerr.Reason})
	case ErrSafetyBlocked:
		g.respond(w, requestID, "safety_blocked", http.StatusBadRequest,
			errorResponse{Message: fmt.Sprintf(msgSafetyBlocked, xerr.Reason)})
	case ErrMalformedOutput:
		g.respond(w, requestID, "malformed", http.StatusUnprocessableEntity,
			errorResponse{Message: msgMalformed, Details: xerr.Excerpt})
	default:
		slog.Error("Receipt analysis failed", "request_id", requestID, "error", err)
		g.respond(w, requestID, "upstream_error", http.StatusInternalServerError,
			errorResponse{Message: msgInternal, Details: "Request ID: " + requestID})
	}
}

func (g *Gateway) respond(w http.ResponseWriter, requestID, outcome string, status int, body any) {
	metrics.ExtractionRequests.WithLabelValues(outcome).Inc()
	if status >= 400 && status < 500 {
		slog.Warn("Receipt analysis rejected", "request_id", requestID, "status", status, "outcome", outcome)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "request_id", requestID, "error", err)
	}
}
