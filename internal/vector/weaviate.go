package vector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const weaviatePointID = "point_id"

// WeaviateIndex is a VectorIndex backed by Weaviate. Each collection maps to a class
// whose name is the collection name with its first letter upper-cased.
type WeaviateIndex struct {
	client *weaviate.Client
}

// NewWeaviateIndex connects to the Weaviate instance at rawURL.
func NewWeaviateIndex(rawURL, apiKey string) (*WeaviateIndex, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", rawURL)
	}
	cfg := weaviate.Config{Host: u.Host, Scheme: u.Scheme}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateIndex{client: client}, nil
}

// className converts a collection name into a valid Weaviate class name.
func className(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func weaviateDistance(metric Metric) string {
	switch metric {
	case MetricDot:
		return "dot"
	case MetricEuclid:
		return "l2-squared"
	default:
		return "cosine"
	}
}

func (w *WeaviateIndex) classExists(ctx context.Context, class string) (bool, error) {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check class %s: %w", class, err)
	}
	return exists, nil
}

// ReplaceCollection deletes the class if it exists and creates it with vectorizer "none".
func (w *WeaviateIndex) ReplaceCollection(ctx context.Context, name string, dimensions int, metric Metric) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	class := className(name)
	exists, err := w.classExists(ctx, class)
	if err != nil {
		return err
	}
	if exists {
		if err := w.client.Schema().ClassDeleter().WithClassName(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to delete class %s: %w", class, err)
		}
	}
	err = w.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:      class,
		Vectorizer: "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": weaviateDistance(metric),
		},
		Properties: []*models.Property{
			{Name: PayloadText, DataType: []string{"text"}},
			{Name: PayloadSource, DataType: []string{"text"}},
			{Name: PayloadPosition, DataType: []string{"int"}},
			{Name: weaviatePointID, DataType: []string{"int"}},
		},
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create class %s: %w", class, err)
	}
	return nil
}

// objectID derives a stable object UUID so that re-upserting a point ID overwrites it.
func objectID(class string, id uint64) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", class, id))).String())
}

// Upsert imports points with the batch API.
func (w *WeaviateIndex) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	class := className(name)
	objs := make([]*models.Object, len(points))
	for i, p := range points {
		props := make(map[string]interface{}, len(p.Payload)+1)
		for k, v := range p.Payload {
			props[k] = v
		}
		props[weaviatePointID] = p.ID
		objs[i] = &models.Object{
			Class:      class,
			ID:         objectID(class, p.ID),
			Properties: props,
			Vector:     p.Vector,
		}
	}
	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add vectors: %w", err)
	}
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		msgs := make([]string, 0, len(r.Result.Errors.Error))
		for _, e := range r.Result.Errors.Error {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("failed to add object %s: %s", r.ID, strings.Join(msgs, "; "))
	}
	return nil
}

// Query runs a nearVector search. Cosine distances are reported as 1-distance,
// other metrics as negated distance.
func (w *WeaviateIndex) Query(ctx context.Context, name string, vector []float32, topK int) ([]*Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	class := className(name)
	exists, err := w.classExists(ctx, class)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	schema, err := w.client.Schema().ClassGetter().WithClassName(class).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get class %s: %w", class, err)
	}
	cosine := true
	if cfg, ok := schema.VectorIndexConfig.(map[string]interface{}); ok {
		if d, ok := cfg["distance"].(string); ok && d != "cosine" {
			cosine = false
		}
	}

	fields := []graphql.Field{
		{Name: PayloadText},
		{Name: PayloadSource},
		{Name: PayloadPosition},
		{Name: weaviatePointID},
		{Name: "_additional { id distance }"},
	}
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	result, err := w.client.GraphQL().Get().
		WithClassName(class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to query vectors: %s", result.Errors[0].Message)
	}

	var hits []*Hit
	data, _ := result.Data["Get"].(map[string]interface{})
	objects, _ := data[class].([]interface{})
	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		hit := &Hit{Payload: make(map[string]any, len(objMap))}
		for k, v := range objMap {
			switch k {
			case "_additional":
				if additional, ok := v.(map[string]interface{}); ok {
					d, _ := additional["distance"].(float64)
					if cosine {
						hit.Score = 1 - d
					} else {
						hit.Score = -d
					}
				}
			case weaviatePointID:
				if f, ok := v.(float64); ok {
					hit.ID = uint64(f)
				}
			default:
				if v != nil {
					hit.Payload[k] = v
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close is a no-op; the Weaviate client holds no persistent connection.
func (w *WeaviateIndex) Close() error {
	return nil
}
