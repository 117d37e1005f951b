package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

// SQLiteBookingStore implements BookingStore using SQLite.
type SQLiteBookingStore struct {
	db *sql.DB
}

// NewSQLiteBookingStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteBookingStore(dbPath string) (*SQLiteBookingStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBookingStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date, time);
	`
	_, err := db.Exec(schema)
	return err
}

// InsertBooking inserts b with a fresh id.
func (s *SQLiteBookingStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings (id, name, email, date, time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, b.Name, b.Email, b.Date, b.Time, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	b.ID = id
	return nil
}

// ListBookings returns bookings ordered by creation time, newest first.
func (s *SQLiteBookingStore) ListBookings(ctx context.Context, offset, limit int) ([]*models.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, date, time, created_at
		 FROM bookings ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Date, &b.Time, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

// CountBookings returns the total number of bookings.
func (s *SQLiteBookingStore) CountBookings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteBookingStore) Close() error {
	return s.db.Close()
}
