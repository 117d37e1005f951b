package config

import "path/filepath"

const (
	defaultModelDir = "all-MiniLM-L6-v2"
	defaultCacheDir = "~/.cache/huggingface"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.TimeoutSecond == 0 {
		cfg.Server.TimeoutSecond = 60
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 10
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 5
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 30
		}
	}

	if cfg.Chunking.DefaultStrategy == "" {
		cfg.Chunking.DefaultStrategy = "fixed"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Chunking.MinParagraphLength == 0 {
		cfg.Chunking.MinParagraphLength = 10
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.CacheDir == "" {
		cfg.Embedding.CacheDir = defaultCacheDir
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = filepath.Join(cfg.Embedding.CacheDir, defaultModelDir, "model.onnx")
	}
	if cfg.Embedding.VocabPath == "" {
		cfg.Embedding.VocabPath = filepath.Join(cfg.Embedding.CacheDir, defaultModelDir, "vocab.txt")
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTLMinutes == 0 {
		cfg.Embedding.CacheTTLMinutes = 24 * 60
	}

	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "qdrant"
	}
	if cfg.Vector.URL == "" {
		switch cfg.Vector.Backend {
		case "qdrant":
			cfg.Vector.URL = "http://localhost:6333"
		case "weaviate":
			cfg.Vector.URL = "http://localhost:8080"
		}
	}
	if cfg.Vector.GRPCPort == 0 {
		cfg.Vector.GRPCPort = 6334
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "docs"
	}
	if cfg.Vector.Metric == "" {
		cfg.Vector.Metric = "cosine"
	}
	if cfg.Vector.TopK == 0 {
		cfg.Vector.TopK = 3
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "redis"
	}
	if cfg.Session.URL == "" && cfg.Session.Backend == "redis" {
		cfg.Session.URL = "redis://localhost:6379/0"
	}
	if cfg.Session.TTLSeconds == 0 {
		cfg.Session.TTLSeconds = 3600
	}
	if cfg.Session.HistoryWindow == 0 {
		cfg.Session.HistoryWindow = 6
	}

	if cfg.Booking.Backend == "" {
		cfg.Booking.Backend = "mongo"
	}
	if cfg.Booking.URI == "" && cfg.Booking.Backend == "mongo" {
		cfg.Booking.URI = "mongodb://localhost:27017"
	}
	if cfg.Booking.Database == "" {
		cfg.Booking.Database = "rag_database"
	}
	if cfg.Booking.Collection == "" {
		cfg.Booking.Collection = "bookings"
	}
	if cfg.Booking.SQLitePath == "" {
		cfg.Booking.SQLitePath = "./data/bookings.db"
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama-3.1-8b-instant"
	}
}
