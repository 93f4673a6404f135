package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Story.Mode != "executive" {
		t.Errorf("expected mode 'executive', got %q", cfg.Story.Mode)
	}
	if cfg.Story.Grouping != "keyword" {
		t.Errorf("expected grouping 'keyword', got %q", cfg.Story.Grouping)
	}
	if cfg.Story.MinSectionSize != 2 {
		t.Errorf("expected min_section_size 2, got %d", cfg.Story.MinSectionSize)
	}
	if cfg.LLM.Provider != "none" {
		t.Errorf("expected provider 'none', got %q", cfg.LLM.Provider)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Server.CacheTTLSeconds != 300 {
		t.Errorf("expected cache ttl 300, got %d", cfg.Server.CacheTTLSeconds)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
story:
  mode: analyst
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Story.Mode != "analyst" {
		t.Errorf("expected mode 'analyst', got %q", cfg.Story.Mode)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Story.MaxKPIs != 5 {
		t.Errorf("expected default max_kpis 5, got %d", cfg.Story.MaxKPIs)
	}
	if cfg.LLM.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.LLM.OllamaURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Story.Mode != "executive" {
		t.Error("expected defaults to load from file")
	}
}

func TestVocabularyDefaults(t *testing.T) {
	cfg := &Config{}
	vocab := cfg.Vocabulary()
	if len(vocab.Themes) == 0 || len(vocab.Metrics) == 0 {
		t.Error("expected built-in vocabulary when config has none")
	}
	if _, ok := vocab.Theme("satisfaction"); !ok {
		t.Error("expected built-in satisfaction theme")
	}
}

func TestVocabularyOverride(t *testing.T) {
	data := []byte(`
ontology:
  themes:
    - name: agronomy
      keywords: [yield, soil, harvest]
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	vocab := cfg.Vocabulary()
	if len(vocab.Themes) != 1 || vocab.Themes[0].Name != "agronomy" {
		t.Errorf("expected override themes, got %+v", vocab.Themes)
	}
	// Metrics were not overridden and keep the built-in table.
	if len(vocab.Metrics) == 0 {
		t.Error("expected built-in metrics to survive a themes-only override")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
