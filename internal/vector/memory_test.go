package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newDocs(t *testing.T, dims int, metric Metric) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	if err := idx.ReplaceCollection(context.Background(), "docs", dims, metric); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestMemoryIndex_UpsertQuery(t *testing.T) {
	idx := newDocs(t, 3, MetricCosine)
	ctx := context.Background()

	points := []Point{
		{ID: 0, Vector: []float32{1, 0, 0}, Payload: map[string]any{PayloadText: "a"}},
		{ID: 1, Vector: []float32{0.9, 0.1, 0}, Payload: map[string]any{PayloadText: "b"}},
		{ID: 2, Vector: []float32{0, 1, 0}, Payload: map[string]any{PayloadText: "c"}},
	}
	if err := idx.Upsert(ctx, "docs", points); err != nil {
		t.Fatal(err)
	}
	if idx.Size("docs") != 3 {
		t.Errorf("Size=%d", idx.Size("docs"))
	}

	hits, err := idx.Query(ctx, "docs", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Text() != "a" || hits[1].Text() != "b" {
		t.Errorf("unexpected order: %q, %q", hits[0].Text(), hits[1].Text())
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores not decreasing: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestMemoryIndex_UpsertOverwrites(t *testing.T) {
	idx := newDocs(t, 2, MetricCosine)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "docs", []Point{{ID: 4, Vector: []float32{1, 0}, Payload: map[string]any{PayloadText: "old"}}})
	_ = idx.Upsert(ctx, "docs", []Point{{ID: 4, Vector: []float32{0, 1}, Payload: map[string]any{PayloadText: "new"}}})

	if idx.Size("docs") != 1 {
		t.Fatalf("Size=%d, want 1", idx.Size("docs"))
	}
	hits, _ := idx.Query(ctx, "docs", []float32{0, 1}, 1)
	if len(hits) != 1 || hits[0].Text() != "new" {
		t.Errorf("expected overwritten point, got %+v", hits)
	}
}

func TestMemoryIndex_ReplaceDiscards(t *testing.T) {
	idx := newDocs(t, 2, MetricCosine)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "docs", []Point{{ID: 0, Vector: []float32{1, 0}}, {ID: 1, Vector: []float32{0, 1}}})

	if err := idx.ReplaceCollection(ctx, "docs", 2, MetricCosine); err != nil {
		t.Fatal(err)
	}
	if idx.Size("docs") != 0 {
		t.Errorf("Size=%d after replace, want 0", idx.Size("docs"))
	}
	hits, err := idx.Query(ctx, "docs", []float32{1, 0}, 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits after replace, got %v, %v", hits, err)
	}
}

func TestMemoryIndex_MissingCollection(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	hits, err := idx.Query(ctx, "docs", []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query on missing collection: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
	if err := idx.Upsert(ctx, "docs", []Point{{ID: 0, Vector: []float32{1, 0}}}); err == nil {
		t.Error("expected error upserting into missing collection")
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx := newDocs(t, 3, MetricCosine)
	ctx := context.Background()
	if err := idx.Upsert(ctx, "docs", []Point{{ID: 0, Vector: []float32{1, 0}}}); err == nil {
		t.Error("expected error for wrong upsert dimension")
	}
	_ = idx.Upsert(ctx, "docs", []Point{{ID: 0, Vector: []float32{1, 0, 0}}})
	if _, err := idx.Query(ctx, "docs", []float32{1, 0}, 1); err == nil {
		t.Error("expected error for wrong query dimension")
	}
	if err := idx.ReplaceCollection(ctx, "docs", 0, MetricCosine); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestMemoryIndex_TiesByID(t *testing.T) {
	idx := newDocs(t, 2, MetricCosine)
	ctx := context.Background()
	_ = idx.Upsert(ctx, "docs", []Point{
		{ID: 9, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{2, 0}},
		{ID: 5, Vector: []float32{3, 0}},
	})
	for i := 0; i < 3; i++ {
		hits, _ := idx.Query(ctx, "docs", []float32{1, 0}, 3)
		if len(hits) != 3 || hits[0].ID != 2 || hits[1].ID != 5 || hits[2].ID != 9 {
			t.Fatalf("ties should be ordered by id, got %v %v %v", hits[0].ID, hits[1].ID, hits[2].ID)
		}
	}
}

func TestMemoryIndex_Metrics(t *testing.T) {
	ctx := context.Background()
	points := []Point{
		{ID: 0, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{5, 0}},
	}

	dot := newDocs(t, 2, MetricDot)
	_ = dot.Upsert(ctx, "docs", points)
	hits, _ := dot.Query(ctx, "docs", []float32{1, 0}, 1)
	if hits[0].ID != 1 {
		t.Errorf("dot: expected larger vector first, got %d", hits[0].ID)
	}

	euclid := newDocs(t, 2, MetricEuclid)
	_ = euclid.Upsert(ctx, "docs", points)
	hits, _ = euclid.Query(ctx, "docs", []float32{1, 0}, 1)
	if hits[0].ID != 0 {
		t.Errorf("euclid: expected nearest vector first, got %d", hits[0].ID)
	}
	if hits[0].Score != 0 {
		t.Errorf("euclid: exact match should score 0, got %f", hits[0].Score)
	}
}

func TestMemoryIndex_CopiesInput(t *testing.T) {
	idx := newDocs(t, 2, MetricCosine)
	ctx := context.Background()
	vec := []float32{1, 0}
	payload := map[string]any{PayloadText: "original"}
	_ = idx.Upsert(ctx, "docs", []Point{{ID: 0, Vector: vec, Payload: payload}})
	vec[0] = 0
	payload[PayloadText] = "mutated"

	hits, _ := idx.Query(ctx, "docs", []float32{1, 0}, 1)
	if hits[0].Text() != "original" {
		t.Errorf("payload was not copied: %q", hits[0].Text())
	}
	if hits[0].Score < 0.99 {
		t.Errorf("vector was not copied, score=%f", hits[0].Score)
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.bin")

	idx := newDocs(t, 3, MetricDot)
	_ = idx.Upsert(ctx, "docs", []Point{
		{ID: 0, Vector: []float32{1, 0, 0}, Payload: map[string]any{PayloadText: "first", PayloadPosition: 0}},
		{ID: 1, Vector: []float32{0, 1, 0}, Payload: map[string]any{PayloadText: "second", PayloadPosition: 1}},
	})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewMemoryIndex()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Size("docs") != 2 {
		t.Fatalf("Size=%d, want 2", loaded.Size("docs"))
	}
	hits, err := loaded.Query(ctx, "docs", []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ID != 1 || hits[0].Text() != "second" {
		t.Errorf("unexpected top hit after load: %+v", hits[0])
	}
	if hits[0].Score != 1 {
		t.Errorf("dot metric not restored, score=%f", hits[0].Score)
	}
}

func TestMemoryIndex_LoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	idx := NewMemoryIndex()
	if err := idx.Load(filepath.Join(dir, "absent.bin")); err != nil {
		t.Errorf("missing snapshot should not error: %v", err)
	}

	bad := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(bad, []byte("garbage data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := idx.Load(bad); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}
