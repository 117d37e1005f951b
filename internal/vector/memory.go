package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sauzanniraula/rag-backend/pkg/utils"
)

// MemoryIndex is an in-process vector index using brute-force search.
// Suitable for tests, development and small single-node deployments.
type MemoryIndex struct {
	collections  map[string]*memoryCollection
	snapshotPath string
	mu           sync.RWMutex
}

type memoryCollection struct {
	dimensions int
	metric     Metric
	points     []Point
	byID       map[uint64]int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]*memoryCollection)}
}

// ReplaceCollection discards name's contents and recreates it empty.
func (m *MemoryIndex) ReplaceCollection(ctx context.Context, name string, dimensions int, metric Metric) error {
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = &memoryCollection{
		dimensions: dimensions,
		metric:     metric,
		byID:       make(map[uint64]int),
	}
	return nil
}

// Upsert stores copies of points, overwriting any point with the same ID.
func (m *MemoryIndex) Upsert(ctx context.Context, name string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %q not found", name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(p.Vector), c.dimensions)
		}
	}
	for _, p := range points {
		stored := Point{ID: p.ID, Vector: append([]float32(nil), p.Vector...), Payload: copyPayload(p.Payload)}
		if i, exists := c.byID[p.ID]; exists {
			c.points[i] = stored
			continue
		}
		c.byID[p.ID] = len(c.points)
		c.points = append(c.points, stored)
	}
	return nil
}

// Query scores every point in the collection. Ties are broken by ascending point ID.
func (m *MemoryIndex) Query(ctx context.Context, name string, vector []float32, topK int) ([]*Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok || topK <= 0 || len(c.points) == 0 {
		return nil, nil
	}
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), c.dimensions)
	}
	hits := make([]*Hit, len(c.points))
	for i, p := range c.points {
		hits[i] = &Hit{ID: p.ID, Score: score(c.metric, vector, p.Vector), Payload: copyPayload(p.Payload)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// OpenMemoryIndex loads the snapshot at path (if present) and saves back to it on Close.
func OpenMemoryIndex(path string) (*MemoryIndex, error) {
	m := NewMemoryIndex()
	if err := m.Load(path); err != nil {
		return nil, err
	}
	m.snapshotPath = path
	return m, nil
}

// Size returns the number of points in name.
func (m *MemoryIndex) Size(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Close writes the snapshot when the index was opened with a path.
func (m *MemoryIndex) Close() error {
	return m.Save(m.snapshotPath)
}

// score returns a similarity where larger is closer; euclidean distance is negated.
func score(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricDot:
		return utils.Dot(a, b)
	case MetricEuclid:
		return -utils.EuclideanDistance(a, b)
	default:
		return utils.CosineSimilarity(a, b)
	}
}

func copyPayload(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

const (
	snapshotMagic = "RAGV1"
	// maxSnapshotField bounds any single length-prefixed field or vector read from disk.
	maxSnapshotField = 64 << 20
)

// Save writes every collection to path. Directory is created if needed. Format: magic, collection
// count (4), then per collection: name, dimensions (4), metric, point count (4), and per point:
// id (8), JSON payload, vector (dimensions*4 bytes). Strings are length-prefixed (4).
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	w := &snapshotWriter{w: f}
	w.bytes([]byte(snapshotMagic))
	w.u32(uint32(len(m.collections)))
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := m.collections[name]
		w.bytes([]byte(name))
		w.u32(uint32(c.dimensions))
		w.bytes([]byte(c.metric))
		w.u32(uint32(len(c.points)))
		for _, p := range c.points {
			payload, err := json.Marshal(p.Payload)
			if err != nil {
				return fmt.Errorf("encode payload %d: %w", p.ID, err)
			}
			w.u64(p.ID)
			w.bytes(payload)
			w.floats(p.Vector)
		}
	}
	if w.err != nil {
		return fmt.Errorf("write snapshot: %w", w.err)
	}
	return nil
}

// Load replaces the in-memory contents with the snapshot at path.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	r := &snapshotReader{r: f}
	if string(r.bytes()) != snapshotMagic {
		if r.err != nil {
			return fmt.Errorf("read snapshot: %w", r.err)
		}
		return fmt.Errorf("not a vector index snapshot: %s", path)
	}
	collections := make(map[string]*memoryCollection)
	count := r.u32()
	for i := uint32(0); i < count && r.err == nil; i++ {
		name := string(r.bytes())
		c := &memoryCollection{dimensions: int(r.u32()), metric: Metric(r.bytes()), byID: make(map[uint64]int)}
		n := r.u32()
		for j := uint32(0); j < n && r.err == nil; j++ {
			p := Point{ID: r.u64()}
			if payload := r.bytes(); r.err == nil {
				if err := json.Unmarshal(payload, &p.Payload); err != nil {
					return fmt.Errorf("decode payload %d: %w", p.ID, err)
				}
			}
			p.Vector = r.floats(c.dimensions)
			c.byID[p.ID] = len(c.points)
			c.points = append(c.points, p)
		}
		collections[name] = c
	}
	if r.err != nil {
		return fmt.Errorf("read snapshot: %w", r.err)
	}
	m.mu.Lock()
	m.collections = collections
	m.mu.Unlock()
	return nil
}

type snapshotWriter struct {
	w   io.Writer
	err error
}

func (s *snapshotWriter) write(v any) {
	if s.err == nil {
		s.err = binary.Write(s.w, binary.LittleEndian, v)
	}
}

func (s *snapshotWriter) u32(v uint32) { s.write(v) }
func (s *snapshotWriter) u64(v uint64) { s.write(v) }

func (s *snapshotWriter) bytes(b []byte) {
	s.u32(uint32(len(b)))
	s.write(b)
}

func (s *snapshotWriter) floats(v []float32) {
	bits := make([]uint32, len(v))
	for i, f := range v {
		bits[i] = math.Float32bits(f)
	}
	s.write(bits)
}

type snapshotReader struct {
	r   io.Reader
	err error
}

func (s *snapshotReader) read(v any) {
	if s.err == nil {
		s.err = binary.Read(s.r, binary.LittleEndian, v)
	}
}

func (s *snapshotReader) u32() uint32 {
	var v uint32
	s.read(&v)
	return v
}

func (s *snapshotReader) u64() uint64 {
	var v uint64
	s.read(&v)
	return v
}

func (s *snapshotReader) bytes() []byte {
	n := s.u32()
	if s.err == nil && n > maxSnapshotField {
		s.err = fmt.Errorf("field length %d exceeds limit", n)
	}
	if s.err != nil {
		return nil
	}
	b := make([]byte, n)
	s.read(b)
	return b
}

func (s *snapshotReader) floats(n int) []float32 {
	if s.err == nil && (n <= 0 || n > maxSnapshotField/4) {
		s.err = fmt.Errorf("invalid vector dimension %d", n)
	}
	if s.err != nil {
		return nil
	}
	bits := make([]uint32, n)
	s.read(bits)
	out := make([]float32, n)
	for i, b := range bits {
		out[i] = math.Float32frombits(b)
	}
	return out
}
