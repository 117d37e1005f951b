package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// applyEnv overlays environment variables on cfg. The service-level names match the
// variables the deployment already uses; RAG_* names select backends.
func applyEnv(cfg *Config, getenv func(string) string) {
	setString(&cfg.Vector.URL, getenv("QDRANT_URL"))
	setString(&cfg.Vector.APIKey, getenv("QDRANT_API_KEY"))
	setString(&cfg.Session.URL, getenv("REDIS_URL"))
	setString(&cfg.Booking.URI, getenv("MONGO_URI"))
	setString(&cfg.LLM.APIKey, getenv("GROQ_API_KEY"))
	setString(&cfg.Embedding.CacheDir, getenv("HF_HOME"))

	setString(&cfg.Vector.Backend, strings.ToLower(getenv("RAG_VECTOR_BACKEND")))
	setString(&cfg.Session.Backend, strings.ToLower(getenv("RAG_SESSION_BACKEND")))
	setString(&cfg.Booking.Backend, strings.ToLower(getenv("RAG_BOOKING_BACKEND")))
	setString(&cfg.Embedding.Provider, strings.ToLower(getenv("RAG_EMBEDDING_PROVIDER")))

	if v := getenv("RAG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getenv("RAG_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
