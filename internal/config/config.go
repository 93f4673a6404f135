package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/storymint/storymint/internal/ontology"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Story    Story             `yaml:"story"`
	Ontology ontology.Ontology `yaml:"ontology"`
	LLM      LLM               `yaml:"llm"`
	Output   Output            `yaml:"output"`
	Server   Server            `yaml:"server"`
	Logging  Logging           `yaml:"logging"`
}

type Story struct {
	Mode           string `yaml:"mode"`     // executive | analyst | technical
	Grouping       string `yaml:"grouping"` // keyword | concept
	MaxKPIs        int    `yaml:"max_kpis"`
	SectionMaxKPIs int    `yaml:"section_max_kpis"`
	MinSectionSize int    `yaml:"min_section_size"`
	MaxKeyFindings int    `yaml:"max_key_findings"`
}

type LLM struct {
	Provider          string `yaml:"provider"` // none | ollama | openai
	Model             string `yaml:"model"`
	OllamaURL         string `yaml:"ollama_url"`
	OpenAIModel       string `yaml:"openai_model"`
	OpenAIBaseURL     string `yaml:"openai_base_url"`
	APIKeyEnv         string `yaml:"api_key_env"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port            int `yaml:"port"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for storymint.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storymint")
}

// DataDir returns the XDG data directory for storymint.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storymint")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storymint/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'storymint init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Story: Story{
			Mode:           "executive",
			Grouping:       "keyword",
			MaxKPIs:        5,
			SectionMaxKPIs: 3,
			MinSectionSize: 2,
			MaxKeyFindings: 5,
		},
		LLM: LLM{
			Provider:          "none",
			Model:             "qwen2.5:7b",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			APIKeyEnv:         "OPENAI_API_KEY",
			RequestsPerMinute: 20,
		},
		Server:  Server{Port: 8000, CacheTTLSeconds: 300},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Vocabulary returns the configured theme and metric tables, falling
// back to the built-in vocabulary for whichever table is absent.
func (c *Config) Vocabulary() ontology.Ontology {
	v := c.Ontology
	def := ontology.Default()
	if len(v.Themes) == 0 {
		v.Themes = def.Themes
	}
	if len(v.Metrics) == 0 {
		v.Metrics = def.Metrics
	}
	return v
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
