// Package vector provides the vector index adapter and its backends.
package vector

import (
	"context"
	"fmt"
)

// Metric is the distance function a collection is created with.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
	MetricEuclid Metric = "euclid"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricCosine, MetricDot, MetricEuclid:
		return m, nil
	case "":
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unknown metric: %s (supported: cosine, dot, euclid)", s)
	}
}

// Payload keys written by ingestion.
const (
	PayloadText     = "text"
	PayloadSource   = "source"
	PayloadPosition = "position"
)

// Point is one stored vector with its payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// Hit is one query result. Higher Score means more similar.
type Hit struct {
	ID      uint64
	Score   float64
	Payload map[string]any
}

// Text returns the passage text stored in the payload, or "" if absent.
func (h *Hit) Text() string {
	if h == nil || h.Payload == nil {
		return ""
	}
	s, _ := h.Payload[PayloadText].(string)
	return s
}

// VectorIndex stores (vector, payload) pairs per named collection and answers nearest-neighbour queries.
type VectorIndex interface {
	// ReplaceCollection drops any existing collection with this name and creates an empty one.
	ReplaceCollection(ctx context.Context, name string, dimensions int, metric Metric) error
	// Upsert inserts or overwrites points by ID.
	Upsert(ctx context.Context, name string, points []Point) error
	// Query returns up to topK hits ordered by decreasing similarity. A missing collection yields no hits.
	Query(ctx context.Context, name string, vector []float32, topK int) ([]*Hit, error)
	Close() error
}
