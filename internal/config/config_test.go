package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Edgar.RecentWindowDays != 180 {
		t.Errorf("recent window = %d, want 180", cfg.Edgar.RecentWindowDays)
	}
	if cfg.Edgar.MaxPerMonth != 2 {
		t.Errorf("max per month = %d, want 2", cfg.Edgar.MaxPerMonth)
	}
	if cfg.Edgar.CandidateBudget != 40 {
		t.Errorf("candidate budget = %d, want 40", cfg.Edgar.CandidateBudget)
	}
	if cfg.Edgar.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Edgar.Workers)
	}
	if cfg.Extraction.Tolerance != 0.35 {
		t.Errorf("tolerance = %v, want 0.35", cfg.Extraction.Tolerance)
	}
	if cfg.Extraction.MinAvgUSD != 1000 || cfg.Extraction.MaxAvgUSD != 2000000 {
		t.Errorf("avg bounds = [%v, %v], want [1000, 2000000]",
			cfg.Extraction.MinAvgUSD, cfg.Extraction.MaxAvgUSD)
	}
	if cfg.Extraction.MaxHoldingsBTC != 5000000 {
		t.Errorf("holdings ceiling = %d, want 5000000", cfg.Extraction.MaxHoldingsBTC)
	}
	if cfg.Price.Symbol != "btcusd" {
		t.Errorf("price symbol = %q, want btcusd", cfg.Price.Symbol)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
edgar:
  candidate_budget: 12
  workers: 3
extraction:
  tolerance: 0.25
api:
  port: 9090
  cors_origins:
    - https://hodlsight.example
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Edgar.CandidateBudget != 12 {
		t.Errorf("candidate budget = %d, want 12", cfg.Edgar.CandidateBudget)
	}
	if cfg.Edgar.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Edgar.Workers)
	}
	if cfg.Extraction.Tolerance != 0.25 {
		t.Errorf("tolerance = %v, want 0.25", cfg.Extraction.Tolerance)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.API.Port)
	}
	if len(cfg.API.CORSOrigins) != 1 || cfg.API.CORSOrigins[0] != "https://hodlsight.example" {
		t.Errorf("cors origins = %v", cfg.API.CORSOrigins)
	}

	// Untouched sections keep their defaults.
	if cfg.Edgar.RecentWindowDays != 180 {
		t.Errorf("recent window = %d, want default 180", cfg.Edgar.RecentWindowDays)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HODLSIGHT_LLM_OPENAI_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.OpenAIKey != "sk-test" {
		t.Errorf("openai key = %q, want env value", cfg.LLM.OpenAIKey)
	}
}
