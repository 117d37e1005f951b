// Package models defines core data structures for passages, sessions, bookings and API payloads.
package models

// Passage is one chunk of an ingested document, addressed by its position in that document.
type Passage struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
}

// DocumentInput is the input for ingesting one document into the active collection.
type DocumentInput struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	Strategy string `json:"strategy,omitempty"`
}

// IngestResult describes a completed ingestion.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Collection string `json:"collection"`
	Strategy   string `json:"strategy"`
	Chunks     int    `json:"chunks"`
}
