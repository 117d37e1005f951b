package vector

import "fmt"

// IndexType represents the vector index backend.
type IndexType string

const (
	// IndexTypeQdrant stores vectors in a Qdrant server.
	IndexTypeQdrant IndexType = "qdrant"
	// IndexTypeWeaviate stores vectors in a Weaviate server.
	IndexTypeWeaviate IndexType = "weaviate"
	// IndexTypeMemory uses in-process brute-force search. Good for small datasets and tests.
	IndexTypeMemory IndexType = "memory"
)

// Options configures NewVectorIndex. Fields not used by the chosen backend are ignored.
type Options struct {
	URL          string
	APIKey       string
	GRPCPort     int
	SnapshotPath string
}

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "qdrant" (default), "weaviate", "memory".
func NewVectorIndex(indexType string, opts Options) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeQdrant, "":
		return NewQdrantIndex(opts.URL, opts.APIKey, opts.GRPCPort)
	case IndexTypeWeaviate:
		return NewWeaviateIndex(opts.URL, opts.APIKey)
	case IndexTypeMemory:
		return OpenMemoryIndex(opts.SnapshotPath)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: qdrant, weaviate, memory)", indexType)
	}
}
