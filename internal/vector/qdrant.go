package vector

import (
	"context"
	"fmt"
	"net/url"

	"github.com/qdrant/go-client/qdrant"
)

// DefaultQdrantGRPCPort is the port the Qdrant gRPC API listens on.
const DefaultQdrantGRPCPort = 6334

// QdrantIndex is a VectorIndex backed by a Qdrant server over gRPC.
type QdrantIndex struct {
	client *qdrant.Client
}

// NewQdrantIndex connects to the Qdrant instance at rawURL. Only host and scheme of the URL are used;
// https enables TLS. grpcPort <= 0 selects DefaultQdrantGRPCPort.
func NewQdrantIndex(rawURL, apiKey string, grpcPort int) (*QdrantIndex, error) {
	cfg, err := qdrantConfig(rawURL, apiKey, grpcPort)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantIndex{client: client}, nil
}

func qdrantConfig(rawURL, apiKey string, grpcPort int) (*qdrant.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", rawURL)
	}
	if grpcPort <= 0 {
		grpcPort = DefaultQdrantGRPCPort
	}
	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   grpcPort,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

func qdrantDistance(metric Metric) qdrant.Distance {
	switch metric {
	case MetricDot:
		return qdrant.Distance_Dot
	case MetricEuclid:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// ReplaceCollection deletes name if it exists and creates it again.
func (q *QdrantIndex) ReplaceCollection(ctx context.Context, name string, dimensions int, metric Metric) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrantDistance(metric),
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes points and waits until they are searchable.
func (q *QdrantIndex) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload, err := qdrant.TryValueMap(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload for point %d: %w", p.ID, err)
		}
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}
	wait := true
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", name, err)
	}
	return nil
}

// Query runs a nearest-neighbour search. Euclidean scores are negated so that larger is closer.
func (q *QdrantIndex) Query(ctx context.Context, name string, vector []float32, topK int) ([]*Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		return nil, nil
	}
	info, err := q.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	limit := uint64(topK)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	negate := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetDistance() == qdrant.Distance_Euclid
	hits := make([]*Hit, 0, len(scored))
	for _, sp := range scored {
		s := float64(sp.GetScore())
		if negate {
			s = -s
		}
		hits = append(hits, &Hit{
			ID:      sp.GetId().GetNum(),
			Score:   s,
			Payload: fromQdrantPayload(sp.GetPayload()),
		})
	}
	return hits, nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func fromQdrantPayload(in map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		}
	}
	return out
}
