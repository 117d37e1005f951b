// Package embedding provides text embedding via ONNX, a deterministic hash embedder, and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned when the embedding backend cannot be loaded or run.
// It is fatal for the calling operation; no partial results are returned.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder produces vector embeddings for text. EmbedBatch returns one vector per input,
// in input order, all of length Dimensions().
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
