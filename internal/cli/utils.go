// Package cli provides output helpers for the ragbackend command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sauzanniraula/rag-backend/internal/models"
	"github.com/sauzanniraula/rag-backend/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// passagePreviewLen caps how much of each passage the text format prints.
const passagePreviewLen = 200

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes a chat answer. The text format prints the answer alone.
func WriteAnswer(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	_, err := fmt.Fprintln(w, resp.Answer)
	return err
}

// WriteUploadResult writes the server's response to an upload.
func WriteUploadResult(w io.Writer, resp *models.UploadResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	_, err := fmt.Fprintf(w, "%s: %d chunk(s) indexed\n", resp.Status, resp.Chunks)
	return err
}

// WriteIngestResult writes the result of a local ingestion.
func WriteIngestResult(w io.Writer, result *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	_, err := fmt.Fprintf(w, "Ingested %d chunk(s) into %q (strategy: %s, id: %s)\n",
		result.Chunks, result.Collection, result.Strategy, result.DocumentID)
	return err
}

// WritePassages writes retrieved passages in rank order.
func WritePassages(w io.Writer, passages []models.Passage, format OutputFormat) error {
	if format == OutputJSON {
		if passages == nil {
			passages = []models.Passage{}
		}
		return writeJSON(w, passages)
	}
	if len(passages) == 0 {
		_, err := fmt.Fprintln(w, "No passages found.")
		return err
	}
	for i, p := range passages {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Position: %d", i+1, p.Position)
		if p.Source != "" {
			fmt.Fprintf(w, " | Source: %s", p.Source)
		}
		fmt.Fprintf(w, "\n\n%s\n\n", utils.Truncate(p.Text, passagePreviewLen))
	}
	return nil
}
