// Package main is the ragbackend CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sauzanniraula/rag-backend/internal/chat"
	"github.com/sauzanniraula/rag-backend/internal/cli"
	"github.com/sauzanniraula/rag-backend/internal/config"
	"github.com/sauzanniraula/rag-backend/internal/embedding"
	"github.com/sauzanniraula/rag-backend/internal/extract"
	"github.com/sauzanniraula/rag-backend/internal/indexer"
	"github.com/sauzanniraula/rag-backend/internal/llm"
	"github.com/sauzanniraula/rag-backend/internal/models"
	"github.com/sauzanniraula/rag-backend/internal/server"
	"github.com/sauzanniraula/rag-backend/internal/session"
	"github.com/sauzanniraula/rag-backend/internal/storage"
	"github.com/sauzanniraula/rag-backend/internal/vector"
	"github.com/sauzanniraula/rag-backend/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/ragbackend/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, and a missing default file means defaults plus
// environment. Returns the config and the path that was actually loaded ("" for none).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Load("")
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	return utils.NewFileLogger(debug, utils.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	config.LoadDotEnv()

	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "chat":
		runChat()
	case "retrieve":
		runRetrieve()
	case "init-config":
		runInitConfig()
	case "version", "--version", "-v":
		fmt.Printf("ragbackend version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := newLogger(cfg, debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("booking_backend", cfg.Booking.Backend),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Indexer, components.Chat, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// reorderArgs moves flags that appear after positional arguments to the front so that
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args so that quoted and unquoted queries behave the same.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(value string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(value)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL")
	local := fs.Bool("local", false, "ingest directly into the vector index instead of going through the server")
	strategy := fs.String("strategy", "", "chunking strategy: fixed or recursive (default from server config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragbackend ingest [flags] <file>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	if !*local {
		resp, err := uploadViaHTTP(*serverURL, filepath.Base(path), content, *strategy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteUploadResult(os.Stdout, resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeRetrieval(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Indexer.IngestFile(context.Background(), path, content, *strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIngestResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	sessionID := fs.String("session", "", "session id (default: a new random id)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Println("Usage: ragbackend chat [flags] <query>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	if *sessionID == "" {
		*sessionID = uuid.NewString()
		fmt.Fprintf(os.Stderr, "session: %s\n", *sessionID)
	}

	resp, err := chatViaHTTP(*serverURL, &models.ChatRequest{SessionID: *sessionID, Query: query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// runRetrieve prints the passages a chat query would receive as context.
func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Println("Usage: ragbackend retrieve [flags] <query>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeRetrieval(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	retriever := chat.NewService(components.Embedder, components.VectorIndex, nil, nil, nil, chatOptions(cfg, logger)...)
	passages, err := retriever.Retrieve(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WritePassages(os.Stdout, passages, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runInitConfig() {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	out := fs.String("out", "config.yaml", "where to write the config")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*out); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", *out)
		os.Exit(1)
	}
	if err := config.Save(*out, defaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

// defaultConfig returns the defaults with secrets left empty so they come from the environment.
func defaultConfig() *config.Config {
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	cfg.Vector.APIKey = ""
	cfg.LLM.APIKey = ""
	return &cfg
}

func uploadViaHTTP(serverURL, filename string, content []byte, strategy string) (*models.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if strategy != "" {
		if err := mw.WriteField("strategy", strategy); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	resp, err := http.Post(serverURL+"/Upload_Document", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func chatViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/Chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// serverError reports a non-200 response, preferring the detail field of the body.
func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var e models.ErrorResponse
	if json.Unmarshal(b, &e) == nil && e.Detail != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Detail)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// Components holds initialized services.
type Components struct {
	Embedder    embedding.Embedder
	VectorIndex vector.VectorIndex
	Sessions    session.Store
	Bookings    storage.BookingStore
	Indexer     *indexer.Indexer
	Chat        *chat.Service
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Sessions != nil {
		_ = c.Sessions.Close()
	}
	if c.Bookings != nil {
		_ = c.Bookings.Close()
	}
}

func newEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	var base embedding.Embedder
	switch cfg.Provider {
	case "hash":
		logger.Warn("using hash embeddings; retrieval matches words, not meaning")
		base = embedding.NewHashEmbedder(cfg.Dimensions)
	default:
		tokenizer, err := embedding.LoadWordPieceTokenizer(cfg.VocabPath)
		if err != nil {
			return nil, fmt.Errorf("%w: vocabulary %s: %v", embedding.ErrModelUnavailable, cfg.VocabPath, err)
		}
		onnx, err := embedding.NewONNXEmbedder(embedding.ONNXOptions{
			ModelPath:   cfg.ModelPath,
			LibraryPath: cfg.LibraryPath,
			OutputName:  cfg.OutputName,
			MeanPooling: cfg.Pooling == "mean",
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
			Tokenizer:   tokenizer,
		})
		if err != nil {
			return nil, err
		}
		base = onnx
	}
	logger.Info("embedder initialized",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", base.Dimensions()))
	return embedding.NewCachedEmbedder(base, cfg.CacheSize, cfg.CacheTTL()), nil
}

func chatOptions(cfg *config.Config, logger *zap.Logger) []chat.Option {
	return []chat.Option{
		chat.WithLogger(logger),
		chat.WithCollection(cfg.Vector.Collection),
		chat.WithTopK(cfg.Vector.TopK),
		chat.WithHistoryWindow(cfg.Session.HistoryWindow),
		chat.WithSessionTTL(cfg.Session.TTL()),
	}
}

// initializeRetrieval builds the ingestion half: embedder, vector index and indexer.
func initializeRetrieval(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := newEmbedder(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c := &Components{Embedder: embedder}

	vectorIndex, err := vector.NewVectorIndex(cfg.Vector.Backend, vector.Options{
		URL:          cfg.Vector.URL,
		APIKey:       cfg.Vector.APIKey,
		GRPCPort:     cfg.Vector.GRPCPort,
		SnapshotPath: cfg.Vector.SnapshotPath,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = vectorIndex
	logger.Info("vector index initialized",
		zap.String("backend", cfg.Vector.Backend),
		zap.String("collection", cfg.Vector.Collection))

	metric, err := vector.ParseMetric(cfg.Vector.Metric)
	if err != nil {
		c.Close()
		return nil, err
	}
	chunker, err := indexer.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap, cfg.Chunking.MinParagraphLength)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Indexer = indexer.NewIndexer(embedder, vectorIndex, chunker, extract.NewExtractor(), cfg.Vector.Collection,
		indexer.WithLogger(logger),
		indexer.WithMetric(metric),
		indexer.WithDefaultStrategy(indexer.ParseStrategy(cfg.Chunking.DefaultStrategy)),
	)
	return c, nil
}

// initializeComponents builds everything the server needs.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c, err := initializeRetrieval(cfg, logger)
	if err != nil {
		return nil, err
	}

	model, err := llm.NewGroqModel(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	sessions, err := session.NewStore(cfg.Session.Backend, cfg.Session.URL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	c.Sessions = sessions

	bookings, err := storage.NewBookingStore(ctx, cfg.Booking.Backend, storage.Options{
		URI:        cfg.Booking.URI,
		Database:   cfg.Booking.Database,
		Collection: cfg.Booking.Collection,
		SQLitePath: cfg.Booking.SQLitePath,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize booking store: %w", err)
	}
	c.Bookings = bookings

	c.Chat = chat.NewService(c.Embedder, c.VectorIndex, sessions, bookings, model, chatOptions(cfg, logger)...)
	logger.Info("chat service initialized", zap.String("model", model.Model()))
	return c, nil
}

func printUsage() {
	fmt.Println(`ragbackend - Retrieval-augmented chat backend with interview booking

Usage:
  ragbackend server [flags]            Start the HTTP server
  ragbackend ingest [flags] <file>     Upload a document (replaces the active collection)
  ragbackend chat [flags] <query>      Send a chat query to the server
  ragbackend retrieve [flags] <query>  Show the passages a query retrieves
  ragbackend init-config [flags]       Write a config file with the defaults
  ragbackend version                   Show version
  ragbackend help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ragbackend/config.yaml, or ./config.yaml when present)
  --debug            Enable debug logging

Ingest Flags:
  --server string    Server URL (default: http://localhost:8000)
  --strategy string  Chunking strategy: fixed or recursive
  --local            Ingest directly instead of going through the server
  --config string    Config file path (local mode)
  --output string    Output format: text or json (default: text)

Chat Flags:
  --server string    Server URL (default: http://localhost:8000)
  --session string   Session id; reuse it to continue a conversation
  --output string    Output format: text or json (default: text)

Retrieve Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Environment:
  QDRANT_URL, QDRANT_API_KEY, REDIS_URL, MONGO_URI, GROQ_API_KEY, HF_HOME
  RAG_VECTOR_BACKEND, RAG_SESSION_BACKEND, RAG_BOOKING_BACKEND, RAG_EMBEDDING_PROVIDER
  RAG_SERVER_PORT, RAG_DEBUG
  A .env file in the working directory is loaded first.

Examples:
  ragbackend server
  ragbackend ingest --strategy recursive handbook.pdf
  ragbackend chat --session demo "What is the refund policy?"
  ragbackend chat --session demo Book an interview for Ada, ada@example.com, 2026-11-02 at 10:15
  ragbackend retrieve --output json refund policy`)
}
