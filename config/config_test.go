package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  path: data/unemployment.csv
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Data.DateColumn != "date" || cfg.Data.ValueColumn != "value" {
		t.Errorf("Column defaults not applied: %q, %q", cfg.Data.DateColumn, cfg.Data.ValueColumn)
	}
	if cfg.Model.Period != 12 {
		t.Errorf("Expected default period 12, got %d", cfg.Model.Period)
	}
	if cfg.Model.Search.Strategy != "stepwise" {
		t.Errorf("Expected default strategy stepwise, got %q", cfg.Model.Search.Strategy)
	}
	if cfg.Model.Search.MaxP != 5 || cfg.Model.Search.MaxSP != 2 {
		t.Errorf("Search bound defaults not applied: %d, %d", cfg.Model.Search.MaxP, cfg.Model.Search.MaxSP)
	}
	if cfg.Eval.TrainFraction != 0.8 {
		t.Errorf("Expected default train fraction 0.8, got %v", cfg.Eval.TrainFraction)
	}
	if cfg.Eval.Level != 0.80 {
		t.Errorf("Expected default confidence level 0.80, got %v", cfg.Eval.Level)
	}
	if cfg.Eval.LjungBoxLags != 10 {
		t.Errorf("Expected default Ljung-Box lags 10, got %d", cfg.Eval.LjungBoxLags)
	}
	if !cfg.AutoLambda() {
		t.Error("Expected lambda to default to auto")
	}
}

func TestLoadFixedLambda(t *testing.T) {
	path := writeConfig(t, `
data:
  path: data/unemployment.csv
transform:
  box_cox: true
  lambda: "0.5"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AutoLambda() {
		t.Error("Expected fixed lambda")
	}
	if cfg.Transform.Fixed != 0.5 {
		t.Errorf("Expected lambda 0.5, got %v", cfg.Transform.Fixed)
	}
}

func TestLoadFixedOrders(t *testing.T) {
	path := writeConfig(t, `
data:
  path: data/unemployment.csv
model:
  d: 1
  fixed_orders:
    - { p: 1, d: 1, q: 1 }
    - { p: 0, d: 1, q: 1, seasonal_p: 1, seasonal_d: 1, seasonal_q: 0 }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Model.Fixed) != 2 {
		t.Fatalf("Expected 2 fixed orders, got %d", len(cfg.Model.Fixed))
	}
	if cfg.Model.Fixed[1].SP != 1 || cfg.Model.Fixed[1].SD != 1 {
		t.Errorf("Seasonal order not parsed: %+v", cfg.Model.Fixed[1])
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing path", `log: {level: info}`},
		{"bad lambda", "data: {path: x}\ntransform: {lambda: wat}"},
		{"bad d", "data: {path: x}\nmodel: {d: 3}"},
		{"bad strategy", "data: {path: x}\nmodel: {search: {strategy: genetic}}"},
		{"bad fraction", "data: {path: x}\neval: {train_fraction: 1.5}"},
		{"bad level", "data: {path: x}\neval: {confidence_level: 2}"},
		{"bad format", "data: {path: x}\nlog: {format: xml}"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
