package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Lookups return (nil, nil) when the entity does not exist.

type CatalogRepository interface {
	List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error)
	FindByID(ctx context.Context, itemID string) (*domain.CatalogItem, error)

	// FindByIDs returns the subset of ids that exist, in no particular order.
	FindByIDs(ctx context.Context, itemIDs []string) ([]domain.CatalogItem, error)

	Create(ctx context.Context, item domain.CatalogItem) error
	Update(ctx context.Context, itemID string, patch domain.CatalogPatch) (*domain.CatalogItem, error)
	Delete(ctx context.Context, itemID string) (bool, error)

	// DecrementStock subtracts quantity in a single conditional write that
	// only matches when stock >= quantity. A nil item means the condition
	// did not match: the item is absent or its stock is too low.
	DecrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error)

	// IncrementStock adds quantity unconditionally. A nil item means absent.
	IncrementStock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveCart replaces the stored cart of cart.UserID, creating it if needed.
	SaveCart(ctx context.Context, cart domain.Cart) error
}

// StoreConnector owns the physical connection behind the repositories.
type StoreConnector interface {
	Connect(ctx context.Context, uri string) error
	Disconnect(ctx context.Context) error
}
