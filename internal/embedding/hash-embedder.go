package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/sauzanniraula/rag-backend/pkg/utils"
)

// HashEmbedder embeds text by feature hashing: every lower-cased word adds +1 or -1 to the
// bucket its FNV-1a hash selects, and the result is L2 normalised. Texts that share words
// get a positive cosine similarity, so retrieval over it is lexical rather than semantic.
// It needs no model and is meant for development and tests.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a feature-hashing embedder with the given dimensions (384 when not positive).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// hashTerms splits text into lower-cased runs of letters and digits. Text without any such
// run is used whole, so only distinct strings map to distinct terms.
func hashTerms(text string) []string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return []string{text}
	}
	return terms
}

// Embed returns the normalised hashed term vector of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, term := range hashTerms(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum64()
		bucket := sum % uint64(e.dimensions)
		if sum>>63 == 1 {
			emb[bucket]--
		} else {
			emb[bucket]++
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}
