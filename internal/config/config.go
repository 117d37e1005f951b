// Package config provides configuration loading and structs for the RAG backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Session   SessionConfig   `yaml:"session"`
	Booking   BookingConfig   `yaml:"booking"`
	LLM       LLMConfig       `yaml:"llm"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaxUploadMB   int    `yaml:"max_upload_mb"`
	TimeoutSecond int    `yaml:"timeout_seconds"`
}

// LogConfig holds log output settings. An empty File logs to the console only.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ChunkingConfig holds the chunker parameters (sizes are in characters).
type ChunkingConfig struct {
	DefaultStrategy    string `yaml:"default_strategy"`
	Size               int    `yaml:"size"`
	Overlap            int    `yaml:"overlap"`
	MinParagraphLength int    `yaml:"min_paragraph_length"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is "onnx" (default) or "hash".
	Provider        string `yaml:"provider"`
	CacheDir        string `yaml:"cache_dir"`
	ModelPath       string `yaml:"model_path"`
	VocabPath       string `yaml:"vocab_path"`
	LibraryPath     string `yaml:"library_path"`
	OutputName      string `yaml:"output_name"`
	Pooling         string `yaml:"pooling"`
	Dimensions      int    `yaml:"dimensions"`
	MaxTokens       int    `yaml:"max_tokens"`
	CacheSize       int    `yaml:"cache_size"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// CacheTTL returns the embedding cache entry lifetime.
func (e *EmbeddingConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLMinutes) * time.Minute
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	// Backend is "qdrant" (default), "weaviate" or "memory".
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	GRPCPort   int    `yaml:"grpc_port"`
	Collection string `yaml:"collection"`
	Metric     string `yaml:"metric"`
	TopK       int    `yaml:"top_k"`
	// SnapshotPath persists the memory backend across restarts when set.
	SnapshotPath string `yaml:"snapshot_path"`
}

// SessionConfig holds conversation memory settings.
type SessionConfig struct {
	// Backend is "redis" (default) or "memory".
	Backend       string `yaml:"backend"`
	URL           string `yaml:"url"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
	HistoryWindow int    `yaml:"history_window"`
}

// TTL returns the session expiry window.
func (s *SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// BookingConfig holds booking store settings.
type BookingConfig struct {
	// Backend is "mongo" (default) or "sqlite".
	Backend    string `yaml:"backend"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	SQLitePath string `yaml:"sqlite_path"`
}

// LLMConfig holds chat model settings for an OpenAI-compatible endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. An empty path skips the file and uses defaults plus
// environment only. Returns an error if the file cannot be read or parsed, or if the
// result is invalid.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	applyEnv(&cfg, os.Getenv)
	// Model paths are derived from the cache dir, so it has to be absolute first.
	cfg.Embedding.CacheDir = expandPath(cfg.Embedding.CacheDir, configDir)
	ApplyDefaults(&cfg)

	cfg.Embedding.CacheDir = expandPath(cfg.Embedding.CacheDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	cfg.Booking.SQLitePath = expandPath(cfg.Booking.SQLitePath, configDir)
	cfg.Vector.SnapshotPath = expandPath(cfg.Vector.SnapshotPath, configDir)
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("invalid config: chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("invalid config: chunking.overlap (%d) must be in [0, size=%d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("invalid config: embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if err := oneOf("embedding.provider", c.Embedding.Provider, "onnx", "hash"); err != nil {
		return err
	}
	if err := oneOf("embedding.pooling", c.Embedding.Pooling, "mean", "none"); err != nil {
		return err
	}
	if err := oneOf("vector.backend", c.Vector.Backend, "qdrant", "weaviate", "memory"); err != nil {
		return err
	}
	if err := oneOf("vector.metric", c.Vector.Metric, "cosine", "dot", "euclid"); err != nil {
		return err
	}
	if err := oneOf("session.backend", c.Session.Backend, "redis", "memory"); err != nil {
		return err
	}
	if err := oneOf("booking.backend", c.Booking.Backend, "mongo", "sqlite"); err != nil {
		return err
	}
	if c.Vector.TopK <= 0 {
		return fmt.Errorf("invalid config: vector.top_k must be positive, got %d", c.Vector.TopK)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid config: %s %q (supported: %s)", field, value, strings.Join(allowed, ", "))
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" paths are relative to the home directory; other relative paths are left unchanged.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
