// Package indexer turns documents into passages and loads them into the vector index.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sauzanniraula/rag-backend/internal/embedding"
	"github.com/sauzanniraula/rag-backend/internal/extract"
	"github.com/sauzanniraula/rag-backend/internal/models"
	"github.com/sauzanniraula/rag-backend/internal/vector"
)

// Indexer ingests one document at a time into a single collection. Every ingestion
// replaces the collection, so only the most recent document is searchable.
type Indexer struct {
	embedder        embedding.Embedder
	vectorIndex     vector.VectorIndex
	chunker         *Chunker
	extractor       *extract.Extractor
	collection      string
	metric          vector.Metric
	defaultStrategy Strategy
	logger          *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithMetric sets the distance metric used when the collection is recreated. Default cosine.
func WithMetric(m vector.Metric) IndexerOption {
	return func(idx *Indexer) { idx.metric = m }
}

// WithDefaultStrategy sets the strategy used when a request names none. Default fixed.
func WithDefaultStrategy(s Strategy) IndexerOption {
	return func(idx *Indexer) { idx.defaultStrategy = s }
}

// NewIndexer creates an indexer writing into collection.
// extractor may be nil; when nil, IngestFile treats all files as plain text.
func NewIndexer(
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	chunker *Chunker,
	extractor *extract.Extractor,
	collection string,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		embedder:        embedder,
		vectorIndex:     vectorIndex,
		chunker:         chunker,
		extractor:       extractor,
		collection:      collection,
		metric:          vector.MetricCosine,
		defaultStrategy: StrategyFixed,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// Collection returns the collection this indexer writes to.
func (idx *Indexer) Collection() string {
	return idx.collection
}

func (idx *Indexer) strategy(name string) Strategy {
	if name == "" {
		return idx.defaultStrategy
	}
	return ParseStrategy(name)
}

// Ingest chunks input.Text, embeds every passage and replaces the collection with them.
// Embedding runs before the collection is touched, so an embedding failure leaves the
// previous document searchable. Point ids are passage positions.
func (idx *Indexer) Ingest(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	strategy := idx.strategy(input.Strategy)
	passages := idx.chunker.Chunk(input.Text, strategy)
	idx.logger.Debug("indexer chunked document",
		zap.String("filename", input.Filename),
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", len(passages)))

	var embeddings [][]float32
	if len(passages) > 0 {
		var err error
		embeddings, err = idx.embedder.EmbedBatch(ctx, passages)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(embeddings) != len(passages) {
			return nil, fmt.Errorf("failed to generate embeddings: got %d vectors for %d passages", len(embeddings), len(passages))
		}
	}

	if err := idx.vectorIndex.ReplaceCollection(ctx, idx.collection, idx.embedder.Dimensions(), idx.metric); err != nil {
		return nil, fmt.Errorf("failed to replace collection: %w", err)
	}

	if len(passages) > 0 {
		points := make([]vector.Point, len(passages))
		for i, text := range passages {
			points[i] = vector.Point{
				ID:     uint64(i),
				Vector: embeddings[i],
				Payload: map[string]any{
					vector.PayloadText:     text,
					vector.PayloadSource:   input.Filename,
					vector.PayloadPosition: i,
				},
			}
		}
		if err := idx.vectorIndex.Upsert(ctx, idx.collection, points); err != nil {
			return nil, fmt.Errorf("failed to index vectors: %w", err)
		}
	}

	result := &models.IngestResult{
		DocumentID: uuid.New().String(),
		Collection: idx.collection,
		Strategy:   string(strategy),
		Chunks:     len(passages),
	}
	idx.logger.Info("document ingested",
		zap.String("document_id", result.DocumentID),
		zap.String("filename", input.Filename),
		zap.Int("chunks", result.Chunks))
	return result, nil
}

// IngestFile extracts text from an uploaded file and ingests it.
func (idx *Indexer) IngestFile(ctx context.Context, filename string, content []byte, strategy string) (*models.IngestResult, error) {
	text, err := idx.extractContent(filename, content)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return idx.Ingest(ctx, &models.DocumentInput{
		Filename: filepath.Base(filename),
		Text:     text,
		Strategy: strategy,
	})
}

func (idx *Indexer) extractContent(filename string, content []byte) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.ExtractBytes(content, filename)
	}
	return string(content), nil
}
