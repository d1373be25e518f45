package extraction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/debtbook/internal/diagnostics"
)

// Config holds what the extraction services need at startup.
type Config struct {
	APIKey                 string
	Model                  string
	DiagnosticsCredentials string
	Timeout                time.Duration
	MaxImageBytes          int64
}

// ModelFactory builds the vision model from a credential.
type ModelFactory func(ctx context.Context, apiKey, model string) (VisionModel, error)

// Services owns the per-process model client and diagnostics dispatcher.
// Create one per process and share it; Init is safe to call more than once.
type Services struct {
	newModel ModelFactory

	once    sync.Once
	err     error
	cfg     Config
	diag    *diagnostics.Dispatcher
	extract *Extractor
}

// NewServices returns uninitialized services. A nil factory uses Gemini.
func NewServices(newModel ModelFactory) *Services {
	if newModel == nil {
		newModel = func(ctx context.Context, apiKey, model string) (VisionModel, error) {
			return NewGeminiModel(ctx, apiKey, model)
		}
	}
	return &Services{newModel: newModel}
}

// Init builds the model client and opens diagnostics. Only the first call does
// any work; later calls return its result. A missing API key is fatal
// (ErrMissingAPIKey); missing diagnostics credentials only disable diagnostics,
// which is logged here once.
func (s *Services) Init(ctx context.Context, cfg Config) error {
	s.once.Do(func() {
		if cfg.APIKey == "" {
			s.err = ErrMissingAPIKey
			return
		}

		model, err := s.newModel(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			s.err = err
			return
		}

		diag, err := diagnostics.Open(cfg.DiagnosticsCredentials)
		if err != nil {
			slog.Warn("Diagnostics logging disabled", "reason", err)
			diag = diagnostics.NewDisabled()
		} else {
			slog.Info("Diagnostics logging enabled")
		}

		s.cfg = cfg
		s.diag = diag
		s.extract = NewExtractor(model, diag, cfg.Timeout)
	})
	return s.err
}

// Extractor returns the shared extractor.
func (s *Services) Extractor() (*Extractor, error) {
	if s.extract == nil {
		return nil, ErrNotInitialized
	}
	return s.extract, nil
}

// Gateway returns an HTTP handler bound to the shared extractor.
func (s *Services) Gateway() (*Gateway, error) {
	ex, err := s.Extractor()
	if err != nil {
		return nil, err
	}
	return NewGateway(ex, s.cfg.MaxImageBytes), nil
}

// DiagnosticsEnabled reports whether diagnostics records are persisted.
func (s *Services) DiagnosticsEnabled() bool {
	return s.diag != nil && s.diag.Enabled()
}

// Close flushes pending diagnostics.
func (s *Services) Close() error {
	if s.diag == nil {
		return nil
	}
	return s.diag.Close()
}
