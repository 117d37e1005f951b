package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sauzanniraula/rag-backend/internal/models"
)

const mongoServerSelectionTimeout = 5 * time.Second

// MongoBookingStore writes bookings as documents into a MongoDB collection.
type MongoBookingStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoBookingStore connects to uri. The driver connects lazily, so an unreachable
// server surfaces on the first insert rather than here.
func NewMongoBookingStore(ctx context.Context, uri, database, collection string) (*MongoBookingStore, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(mongoServerSelectionTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	return newMongoBookingStore(client, client.Database(database).Collection(collection)), nil
}

func newMongoBookingStore(client *mongo.Client, coll *mongo.Collection) *MongoBookingStore {
	return &MongoBookingStore{client: client, collection: coll}
}

// InsertBooking inserts b with a creation timestamp.
func (s *MongoBookingStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := s.collection.InsertOne(ctx, b)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		b.ID = id.Hex()
	case string:
		b.ID = id
	}
	return nil
}

// Close disconnects the client.
func (s *MongoBookingStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoServerSelectionTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
