package indexer

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects how text is split into passages.
type Strategy string

const (
	// StrategyFixed slides a window of Size characters forward by Size-Overlap.
	StrategyFixed Strategy = "fixed"
	// StrategyRecursive splits on blank lines and keeps paragraphs longer than the minimum length.
	StrategyRecursive Strategy = "recursive"
)

// ErrInvalidChunking is returned for window parameters that cannot advance.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

const paragraphSeparator = "\n\n"

// ParseStrategy maps "fixed" (or empty) to StrategyFixed and anything else to StrategyRecursive.
func ParseStrategy(s string) Strategy {
	if s == "" || s == string(StrategyFixed) {
		return StrategyFixed
	}
	return StrategyRecursive
}

// Chunker splits text into passages. Sizes are measured in Unicode code points.
type Chunker struct {
	size         int
	overlap      int
	minParagraph int
}

// NewChunker creates a chunker. overlap must be in [0, size).
func NewChunker(size, overlap, minParagraph int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, overlap, size)
	}
	if minParagraph < 0 {
		minParagraph = 0
	}
	return &Chunker{size: size, overlap: overlap, minParagraph: minParagraph}, nil
}

// Chunk splits text with the given strategy and drops all-whitespace passages.
func (c *Chunker) Chunk(text string, strategy Strategy) []string {
	var passages []string
	switch strategy {
	case StrategyRecursive:
		passages = c.paragraphs(text)
	default:
		passages = c.windows(text)
	}
	return dropBlank(passages)
}

// windows returns raw (untrimmed) windows so that overlapping text can be stitched back together.
// The window count is ceil(n / (size - overlap)); the tail windows may be shorter than size.
func (c *Chunker) windows(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	windows := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
	}
	return windows
}

func (c *Chunker) paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, paragraphSeparator) {
		p = strings.TrimSpace(p)
		if len([]rune(p)) > c.minParagraph {
			out = append(out, p)
		}
	}
	return out
}

func dropBlank(passages []string) []string {
	out := passages[:0]
	for _, p := range passages {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
