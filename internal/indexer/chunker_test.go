package indexer

import (
	"errors"
	"strings"
	"testing"
)

func newTestChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := NewChunker(size, overlap, 10)
	if err != nil {
		t.Fatalf("NewChunker(%d, %d): %v", size, overlap, err)
	}
	return c
}

func sampleText(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()[:n]
}

func TestChunker_FixedScenario(t *testing.T) {
	c := newTestChunker(t, 500, 50)
	text := sampleText(1200)
	chunks := c.Chunk(text, StrategyFixed)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantBounds := [][2]int{{0, 500}, {450, 950}, {900, 1200}}
	for i, b := range wantBounds {
		if chunks[i] != text[b[0]:b[1]] {
			t.Errorf("chunk %d does not cover %d-%d", i, b[0], b[1])
		}
	}
}

func TestChunker_FixedCountAndReconstruction(t *testing.T) {
	for _, tc := range []struct{ length, size, overlap int }{
		{1, 5, 1}, {10, 5, 1}, {950, 500, 50}, {1000, 500, 50}, {1001, 500, 0}, {37, 7, 3},
	} {
		c := newTestChunker(t, tc.size, tc.overlap)
		text := sampleText(tc.length)
		chunks := c.Chunk(text, StrategyFixed)

		step := tc.size - tc.overlap
		want := (tc.length + step - 1) / step
		if len(chunks) != want {
			t.Errorf("L=%d S=%d O=%d: got %d chunks, want %d", tc.length, tc.size, tc.overlap, len(chunks), want)
			continue
		}
		var rebuilt strings.Builder
		for i, ch := range chunks {
			if i == 0 {
				rebuilt.WriteString(ch)
				continue
			}
			covered := rebuilt.Len() - i*step
			if covered < len(ch) {
				rebuilt.WriteString(ch[covered:])
			}
		}
		if rebuilt.String() != text {
			t.Errorf("L=%d S=%d O=%d: reconstruction mismatch", tc.length, tc.size, tc.overlap)
		}
	}
}

func TestChunker_FixedCountsRunes(t *testing.T) {
	c := newTestChunker(t, 3, 1)
	chunks := c.Chunk("ééééé", StrategyFixed)
	if len(chunks) != 3 || chunks[0] != "ééé" || chunks[1] != "ééé" || chunks[2] != "é" {
		t.Errorf("unexpected rune windows: %q", chunks)
	}
}

func TestChunker_Recursive(t *testing.T) {
	c := newTestChunker(t, 500, 50)
	text := "Short one.\n\n   This paragraph is long enough.   \n\n\n\nTiny\n\nAnother paragraph\nwith a line break."
	chunks := c.Chunk(text, StrategyRecursive)
	want := []string{"This paragraph is long enough.", "Another paragraph\nwith a line break."}
	if len(chunks) != len(want) {
		t.Fatalf("got %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	for _, ch := range chunks {
		if len([]rune(strings.TrimSpace(ch))) <= 10 {
			t.Errorf("passage %q is not longer than 10 characters", ch)
		}
		if strings.Contains(ch, "\n\n") {
			t.Errorf("passage %q contains a blank-line separator", ch)
		}
	}
}

func TestChunker_DropsWhitespaceWindows(t *testing.T) {
	c := newTestChunker(t, 4, 0)
	chunks := c.Chunk("abcd        efgh", StrategyFixed)
	if len(chunks) != 2 || chunks[0] != "abcd" || chunks[1] != "efgh" {
		t.Errorf("whitespace windows should be dropped, got %q", chunks)
	}
	if got := c.Chunk("   \n\t  ", StrategyFixed); got != nil {
		t.Errorf("blank text should return nil, got %q", got)
	}
}

func TestNewChunker_InvalidParameters(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{500, 500}, {500, 600}, {0, 0}, {10, -1}} {
		if _, err := NewChunker(tc.size, tc.overlap, 10); !errors.Is(err, ErrInvalidChunking) {
			t.Errorf("NewChunker(%d, %d): expected ErrInvalidChunking, got %v", tc.size, tc.overlap, err)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	if ParseStrategy("") != StrategyFixed || ParseStrategy("fixed") != StrategyFixed {
		t.Error("empty and fixed should map to fixed")
	}
	if ParseStrategy("recursive") != StrategyRecursive || ParseStrategy("paragraph") != StrategyRecursive {
		t.Error("anything else should map to recursive")
	}
}

func BenchmarkChunkFixed(b *testing.B) {
	c, err := NewChunker(500, 50, 10)
	if err != nil {
		b.Fatal(err)
	}
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Chunk(text, StrategyFixed)
	}
}
