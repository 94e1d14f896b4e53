package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/metrics"
	"github.com/rl1809/storefront/internal/port"
)

// InventoryLedger adjusts stock. Both operations are single writes at the
// store; the ledger holds no locks of its own.
type InventoryLedger struct {
	catalog port.CatalogRepository
	cache   port.CacheRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewInventoryLedger builds a ledger. cache may be nil.
func NewInventoryLedger(catalog port.CatalogRepository, cache port.CacheRepository, m *metrics.Metrics, logger *zap.Logger) *InventoryLedger {
	return &InventoryLedger{
		catalog: catalog,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// Purchase takes quantity units of itemID. When the conditional decrement
// does not match, the item is read again only to tell NotFound apart from
// InsufficientStock; that read is not part of the write.
func (l *InventoryLedger) Purchase(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	if quantity < 1 {
		l.metrics.Purchase("invalid")
		return nil, domain.ErrInvalidQuantity
	}

	item, err := l.catalog.DecrementStock(ctx, itemID, quantity)
	if err != nil {
		l.metrics.Purchase("error")
		return nil, fmt.Errorf("stock decrement failed: %w", err)
	}
	if item != nil {
		l.invalidate(ctx, itemID)
		l.metrics.Purchase("ok")
		return item, nil
	}

	current, err := l.catalog.FindByID(ctx, itemID)
	if err != nil {
		l.metrics.Purchase("error")
		return nil, fmt.Errorf("stock lookup failed: %w", err)
	}
	if current == nil {
		l.metrics.Purchase("not_found")
		return nil, domain.ItemNotFound(itemID)
	}

	l.metrics.Purchase("insufficient_stock")
	return nil, &domain.InsufficientStockError{
		ItemID:    itemID,
		Requested: quantity,
		Available: current.Stock,
	}
}

// PurchaseOnce is Purchase guarded by a client supplied idempotency key,
// scoped to the caller. A key that was already used yields
// ErrDuplicateRequest; a purchase that fails frees its key again.
func (l *InventoryLedger) PurchaseOnce(ctx context.Context, userID, key, itemID string, quantity int) (*domain.CatalogItem, error) {
	if key == "" || l.cache == nil {
		return l.Purchase(ctx, itemID, quantity)
	}

	idempotencyKey := fmt.Sprintf("purchase:%s:%s", userID, key)

	ok, err := l.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		l.metrics.Purchase("error")
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		l.metrics.Purchase("duplicate")
		return nil, domain.ErrDuplicateRequest
	}

	item, err := l.Purchase(ctx, itemID, quantity)
	if err != nil {
		if releaseErr := l.cache.ReleaseIdempotency(ctx, idempotencyKey); releaseErr != nil {
			l.logger.Warn("failed to release idempotency key",
				zap.String("key", idempotencyKey), zap.Error(releaseErr))
		}
		return nil, err
	}
	return item, nil
}

// Restock adds quantity units to itemID. Callers are expected to have
// checked that the requester may restock.
func (l *InventoryLedger) Restock(ctx context.Context, itemID string, quantity int) (*domain.CatalogItem, error) {
	if quantity <= 0 {
		l.metrics.Restock("invalid")
		return nil, domain.ErrInvalidQuantity
	}

	item, err := l.catalog.IncrementStock(ctx, itemID, quantity)
	if err != nil {
		l.metrics.Restock("error")
		return nil, fmt.Errorf("stock increment failed: %w", err)
	}
	if item == nil {
		l.metrics.Restock("not_found")
		return nil, domain.ItemNotFound(itemID)
	}

	l.invalidate(ctx, itemID)
	l.metrics.Restock("ok")
	return item, nil
}

func (l *InventoryLedger) invalidate(ctx context.Context, itemID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.InvalidateItem(ctx, itemID); err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Warn("failed to invalidate cached item", zap.String("item_id", itemID), zap.Error(err))
	}
}
