package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/storefront/internal/core/domain"
)

type catalogDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Category    string    `bson:"category"`
	Description string    `bson:"description"`
	Price       float64   `bson:"price"`
	Stock       int       `bson:"stock"`
	OwnerID     string    `bson:"owner_id"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d catalogDocument) toDomain() domain.CatalogItem {
	return domain.CatalogItem{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
		OwnerID:     d.OwnerID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func newCatalogDocument(item domain.CatalogItem) catalogDocument {
	return catalogDocument{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Price:       item.Price,
		Stock:       item.Stock,
		OwnerID:     item.OwnerID,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

type MongoCatalogRepository struct {
	store *MongoStore
}

func (r *MongoCatalogRepository) List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error) {
	coll, err := r.store.collection(catalogCollection)
	if err != nil {
		return nil, err
	}

	query := bson.M{}
	if filter.Query != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, coll, query, opts)
}

func (r *MongoCatalogRepository) FindByID(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	coll, err := r.store.collection(catalogCollection)
	if err != nil {
		return nil, err
	}

	var doc catalogDocument
	err = coll.FindOne(ctx, bson.M{"_id": itemID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}

	item := doc.toDomain()
	return &item, nil
}

func (r *MongoCatalogRepository) FindByIDs(ctx context.Context, itemIDs []string) ([]domain.CatalogItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	coll, err := r.store.collection(catalogCollection)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, coll, bson.M{"_id": bson.M{"$in": itemIDs}})
}

func (r *MongoCatalogRepository) Create(ctx context.Context, item domain.CatalogItem) error {
	coll, err := r.store.collection(catalogCollection)
	if err != nil {
		return err
	}

	if _, err := coll.InsertOne(ctx, newCatalogDocument(item)); err != nil {
		return fmt.Errorf("failed to insert catalog item: %w", err)
	}
	return nil
}

func (r *MongoCatalogRepository) Update(ctx context.Context, itemID string, patch domain.CatalogPatch) (*domain.CatalogItem, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}

	return r.findAndUpdate(ctx, bson.M{"_id": itemID}, bson.M{"$set": set})
}

func (r *MongoCatalogRepository) Delete(ctx context.Context, itemID string) (bool, error) {
	coll, err := r.store.collection(catalogCollection)
	if err != nil {
		return false, err
	}

	result, err := coll.DeleteOne(ctx, bson.M{"_id": itemID})
	if err != nil {
		return false, fmt.Errorf("failed to delete catalog item: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// DecrementStock is a single findAndModify whose filter carries the stock
// precondition, so concurrent purchases cannot push stock below zero.
func (r *MongoCatalogRepository) DecrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	filter := bson.M{
		"_id":   itemID,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findAndUpdate(ctx, filter, update)
}

func (r *MongoCatalogRepository) IncrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	update := bson.M{
		"$inc": bson.M{"stock": quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	return r.findAndUpdate(ctx, bson.M{"_id": itemID}, update)
}

func (r *MongoCatalogRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (*domain.CatalogItem, error) {
	coll, err := r.store.collection(catalogCollection)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc catalogDocument
	err = coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update catalog item: %w", err)
	}

	item := doc.toDomain()
	return &item, nil
}

func (r *MongoCatalogRepository) find(ctx context.Context, coll *mongo.Collection, query bson.M, opts ...*options.FindOptions) ([]domain.CatalogItem, error) {
	cursor, err := coll.Find(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []catalogDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	items := make([]domain.CatalogItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return items, nil
}
