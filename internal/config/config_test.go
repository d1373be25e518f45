package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 8080 || c.DBPath != "./data/debtbook.db" {
		t.Errorf("Unexpected defaults: port=%d db=%s", c.Port, c.DBPath)
	}
	if c.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("GeminiModel = %q", c.GeminiModel)
	}
	if c.JWTTTL != 24*time.Hour || c.ExtractionTimeout != time.Minute {
		t.Errorf("Unexpected durations: ttl=%s timeout=%s", c.JWTTTL, c.ExtractionTimeout)
	}
	if c.MaxImageBytes != 15<<20 || c.CommitParallelism != 8 {
		t.Errorf("Unexpected limits: max=%d par=%d", c.MaxImageBytes, c.CommitParallelism)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("MAX_IMAGE_BYTES", "1024")
	t.Setenv("DIAGNOSTICS_CREDENTIALS", `{"database_path":"/tmp/d.db"}`)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 9090 || c.GeminiAPIKey != "secret" || c.JWTTTL != 2*time.Hour || c.MaxImageBytes != 1024 {
		t.Errorf("Env not applied: %+v", c)
	}
	if c.DiagnosticsCredentials != `{"database_path":"/tmp/d.db"}` {
		t.Errorf("DiagnosticsCredentials = %q", c.DiagnosticsCredentials)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "debtbook.yaml")
	content := "port: 7000\ngemini_model: gemini-2.5-flash\ncommit_parallelism: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COMMIT_PARALLELISM", "3")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != 7000 || c.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("File not applied: %+v", c)
	}
	if c.CommitParallelism != 3 {
		t.Errorf("Env should win over file, got %d", c.CommitParallelism)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing config file")
		}
	})
	t.Run("invalid value", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("COMMIT_PARALLELISM", "0")
		if _, err := Load(""); err == nil {
			t.Error("Expected validation error")
		}
	})
}
