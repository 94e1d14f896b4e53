package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/core/domain"
)

type cartDocument struct {
	UserID    string             `bson:"user_id"`
	Items     []cartLineDocument `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type cartLineDocument struct {
	ItemID   string `bson:"item_id"`
	Quantity int    `bson:"quantity"`
}

type MongoCartRepository struct {
	store *MongoStore
}

func (r *MongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	coll, err := r.store.collection(cartCollection)
	if err != nil {
		return nil, err
	}

	var doc cartDocument
	err = coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart := &domain.Cart{
		UserID:    doc.UserID,
		Items:     make([]domain.CartLine, 0, len(doc.Items)),
		UpdatedAt: doc.UpdatedAt,
	}
	for _, line := range doc.Items {
		cart.Items = append(cart.Items, domain.CartLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return cart, nil
}

// SaveCart upserts the whole line list in one document update.
func (r *MongoCartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	coll, err := r.store.collection(cartCollection)
	if err != nil {
		return err
	}

	lines := make([]cartLineDocument, 0, len(cart.Items))
	for _, line := range cart.Items {
		lines = append(lines, cartLineDocument{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	updatedAt := cart.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{
		"$set":         bson.M{"items": lines, "updated_at": updatedAt},
		"$setOnInsert": bson.M{"created_at": updatedAt},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}
