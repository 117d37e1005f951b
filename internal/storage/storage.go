// Package storage provides durable sinks for completed bookings.
package storage

import (
	"context"
	"fmt"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

// BookingStore persists booking records. Records are insert-only.
type BookingStore interface {
	// InsertBooking stores b and sets b.ID.
	InsertBooking(ctx context.Context, b *models.Booking) error
	Close() error
}

// Options configures NewBookingStore. Fields not used by the chosen backend are ignored.
type Options struct {
	URI        string
	Database   string
	Collection string
	SQLitePath string
}

// NewBookingStore creates a booking store for backend "mongo" (default) or "sqlite".
func NewBookingStore(ctx context.Context, backend string, opts Options) (BookingStore, error) {
	switch backend {
	case "mongo", "":
		return NewMongoBookingStore(ctx, opts.URI, opts.Database, opts.Collection)
	case "sqlite":
		return NewSQLiteBookingStore(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown booking backend: %s (supported: mongo, sqlite)", backend)
	}
}
