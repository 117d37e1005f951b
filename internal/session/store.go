// Package session provides conversation history stores keyed by session id.
package session

import (
	"context"
	"time"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

// Store maps a session id to its ordered conversation history.
type Store interface {
	// Get returns the stored turns, or an empty slice when the session is absent or expired.
	Get(ctx context.Context, sessionID string) ([]models.Turn, error)
	// Set overwrites the history and resets its expiry to ttl.
	Set(ctx context.Context, sessionID string, turns []models.Turn, ttl time.Duration) error
	Close() error
}
