package extraction

import (
	"context"
	"errors"
	"testing"
)

func TestServices_InitIsIdempotent(t *testing.T) {
	calls := 0
	s := NewServices(func(context.Context, string, string) (VisionModel, error) {
		calls++
		return &fakeModel{out: &ModelOutput{Text: "[]"}}, nil
	})
	t.Cleanup(func() { s.Close() })

	if _, err := s.Gateway(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Gateway before Init err = %v", err)
	}

	cfg := Config{APIKey: "key"}
	if err := s.Init(context.Background(), cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	first, _ := s.Extractor()
	if err := s.Init(context.Background(), cfg); err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}
	second, _ := s.Extractor()

	if calls != 1 {
		t.Errorf("model factory called %d times, want 1", calls)
	}
	if first != second {
		t.Error("Second Init replaced the extractor")
	}
	if s.DiagnosticsEnabled() {
		t.Error("Diagnostics should be disabled without credentials")
	}
	if _, err := s.Gateway(); err != nil {
		t.Errorf("Gateway after Init err = %v", err)
	}
}

func TestServices_MissingAPIKey(t *testing.T) {
	s := NewServices(func(context.Context, string, string) (VisionModel, error) {
		t.Fatal("factory must not be called without a key")
		return nil, nil
	})
	if err := s.Init(context.Background(), Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	// the first result sticks
	if err := s.Init(context.Background(), Config{APIKey: "late"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("second Init err = %v, want ErrMissingAPIKey", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close err = %v", err)
	}
}

func TestServices_DiagnosticsEnabled(t *testing.T) {
	s := NewServices(func(context.Context, string, string) (VisionModel, error) {
		return &fakeModel{}, nil
	})
	creds := `{"project_id":"test","database_path":"` + t.TempDir() + `/diag.db"}`
	if err := s.Init(context.Background(), Config{APIKey: "key", DiagnosticsCredentials: creds}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !s.DiagnosticsEnabled() {
		t.Error("Diagnostics should be enabled with valid credentials")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close err = %v", err)
	}
}
