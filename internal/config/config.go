package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ExtractorConfig configures PDF text extraction.
type ExtractorConfig struct {
	FallbackPdftotext bool `yaml:"fallback_pdftotext"`
	Normalize         bool `yaml:"normalize"`
}

// SegmenterConfig configures paragraph segmentation.
type SegmenterConfig struct {
	MinLength int `yaml:"min_length"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimensions  int    `yaml:"dimensions"`
}

// HashingEmbedderConfig configures the corpus-free hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// hashing (default) and openai score each section independently of the rest
// of the run; tfidf fits its vocabulary to the run's sections.
type EmbedderConfig struct {
	Type    string                `yaml:"type"`
	Cache   *bool                 `yaml:"cache,omitempty"`
	Hashing HashingEmbedderConfig `yaml:"hashing"`
	OpenAI  *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// CacheEnabled reports whether embeddings are memoised for the run.
func (c EmbedderConfig) CacheEnabled() bool {
	return c.Cache == nil || *c.Cache
}

// ScorerConfig weights the semantic and lexical parts of the relevance score.
type ScorerConfig struct {
	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
}

// RefinerConfig configures excerpt refinement.
type RefinerConfig struct {
	MaxLength int    `yaml:"max_length"`
	Splitter  string `yaml:"splitter"`
}

// PipelineConfig configures ranking and scoring parallelism.
type PipelineConfig struct {
	TopK    int `yaml:"top_k"`
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, local, dev
	Level string `yaml:"level"` // debug, info, warn, error
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Extractor ExtractorConfig `yaml:"extractor"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Scorer    ScorerConfig    `yaml:"scorer"`
	Refiner   RefinerConfig   `yaml:"refiner"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./docintel.yaml first, then ~/.config/docintel/config.yaml.
// If neither exists, defaults are returned and nothing is written.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docintel.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return Default(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values no component can work with.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "hashing", "tfidf", "openai":
	default:
		return fmt.Errorf("unknown embedder: %q", c.Embedder.Type)
	}
	switch c.Refiner.Splitter {
	case "punkt", "regex":
	default:
		return fmt.Errorf("unknown sentence splitter: %q", c.Refiner.Splitter)
	}
	if c.Scorer.SemanticWeight < 0 || c.Scorer.KeywordWeight < 0 {
		return errors.New("scorer weights must not be negative")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docintel", "config.yaml"), nil
}

// Default returns the configuration matching the documented contract.
func Default() *AppConfig {
	return &AppConfig{
		Extractor: ExtractorConfig{FallbackPdftotext: true, Normalize: true},
		Segmenter: SegmenterConfig{MinLength: 100},
		Embedder:  EmbedderConfig{Type: "hashing", Hashing: HashingEmbedderConfig{Dimension: 4096}},
		Scorer:    ScorerConfig{SemanticWeight: 0.7, KeywordWeight: 0.3},
		Refiner:   RefinerConfig{MaxLength: 400, Splitter: "punkt"},
		Pipeline:  PipelineConfig{TopK: 10, Workers: 1},
		Logging:   LoggingConfig{Env: "local"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Segmenter.MinLength <= 0 {
		cfg.Segmenter.MinLength = 100
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Hashing.Dimension <= 0 {
		cfg.Embedder.Hashing.Dimension = 4096
	}
	if cfg.Refiner.MaxLength <= 0 {
		cfg.Refiner.MaxLength = 400
	}
	if cfg.Refiner.Splitter == "" {
		cfg.Refiner.Splitter = "punkt"
	}
	if cfg.Pipeline.TopK <= 0 {
		cfg.Pipeline.TopK = 10
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 1
	}
	if cfg.Logging.Env == "" {
		cfg.Logging.Env = "local"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
}
