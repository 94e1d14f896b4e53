package storage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	catalogCollection = "catalog_items"
	cartCollection    = "carts"
)

// MongoStore holds the MongoDB client once a connection attempt succeeds.
// Repositories built from it fail with ErrUnavailable until then.
type MongoStore struct {
	database string
	client   atomic.Pointer[mongo.Client]
}

func NewMongoStore(database string) *MongoStore {
	return &MongoStore{database: database}
}

func (s *MongoStore) Connect(ctx context.Context, uri string) error {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if err := createIndexes(ctx, client.Database(s.database)); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	if old := s.client.Swap(client); old != nil {
		_ = old.Disconnect(context.Background())
	}
	return nil
}

func (s *MongoStore) Disconnect(ctx context.Context) error {
	client := s.client.Swap(nil)
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (s *MongoStore) Catalog() *MongoCatalogRepository {
	return &MongoCatalogRepository{store: s}
}

func (s *MongoStore) Carts() *MongoCartRepository {
	return &MongoCartRepository{store: s}
}

func (s *MongoStore) collection(name string) (*mongo.Collection, error) {
	client := s.client.Load()
	if client == nil {
		return nil, domain.ErrUnavailable
	}
	return client.Database(s.database).Collection(name), nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(cartCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	_, err = db.Collection(catalogCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog indexes: %w", err)
	}
	return nil
}
