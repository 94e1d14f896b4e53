package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CacheRepository interface {
	// GetItem returns (nil, nil) on a cache miss
	GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error)
	SetItem(ctx context.Context, item domain.CatalogItem) error
	InvalidateItem(ctx context.Context, itemID string) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request did not complete
	ReleaseIdempotency(ctx context.Context, key string) error
}
