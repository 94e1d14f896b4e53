package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/metrics"
	"github.com/rl1809/storefront/internal/port"
)

type CartAggregator struct {
	carts   port.CartRepository
	catalog port.CatalogRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewCartAggregator(carts port.CartRepository, catalog port.CatalogRepository, m *metrics.Metrics, logger *zap.Logger) *CartAggregator {
	return &CartAggregator{
		carts:   carts,
		catalog: catalog,
		metrics: m,
		logger:  logger,
	}
}

type ResolvedLine struct {
	ItemID   string
	Quantity int
	Item     *domain.CatalogItem // nil when the item no longer exists
}

type ResolvedCart struct {
	UserID    string
	Lines     []ResolvedLine
	UpdatedAt time.Time
}

// Get returns the caller's cart with every line joined to its catalog item.
// A user without a cart gets an empty one; nothing is created.
func (a *CartAggregator) Get(ctx context.Context, userID string) (*ResolvedCart, error) {
	cart, err := a.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	resolved := &ResolvedCart{UserID: userID, Lines: []ResolvedLine{}}
	if cart == nil || len(cart.Items) == 0 {
		return resolved, nil
	}
	resolved.UpdatedAt = cart.UpdatedAt

	items, err := a.catalog.FindByIDs(ctx, cart.ItemIDs())
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}
	byID := make(map[string]*domain.CatalogItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	for _, line := range cart.Items {
		resolved.Lines = append(resolved.Lines, ResolvedLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Item:     byID[line.ItemID],
		})
	}
	return resolved, nil
}

// Add merges entries into the cart: quantities of lines already present
// accumulate, new items are appended. Calling Add twice adds twice.
func (a *CartAggregator) Add(ctx context.Context, userID string, entries []domain.CartEntry) (*domain.Cart, error) {
	if len(entries) == 0 {
		a.metrics.CartMutation("add", "invalid")
		return nil, domain.Validationf("no items provided")
	}
	if err := a.validate(ctx, entries); err != nil {
		a.metrics.CartMutation("add", "invalid")
		return nil, err
	}

	cart, err := a.load(ctx, userID)
	if err != nil {
		a.metrics.CartMutation("add", "error")
		return nil, err
	}

	cart.Items = mergeLines(cart.Items, entries)
	return a.save(ctx, "add", cart)
}

// Replace substitutes the whole item list. Repeated ids in one payload are
// summed into a single line. An empty list empties the cart.
func (a *CartAggregator) Replace(ctx context.Context, userID string, entries []domain.CartEntry) (*domain.Cart, error) {
	if err := a.validate(ctx, entries); err != nil {
		a.metrics.CartMutation("replace", "invalid")
		return nil, err
	}

	cart := &domain.Cart{UserID: userID, Items: mergeLines(nil, entries)}
	return a.save(ctx, "replace", cart)
}

// Remove drops the line for itemID. Removing an absent line is not an error.
func (a *CartAggregator) Remove(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	if itemID == "" {
		a.metrics.CartMutation("remove", "invalid")
		return nil, domain.Validationf("item id is required")
	}

	cart, err := a.carts.GetCart(ctx, userID)
	if err != nil {
		a.metrics.CartMutation("remove", "error")
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil {
		return &domain.Cart{UserID: userID, Items: []domain.CartLine{}}, nil
	}

	idx := cart.Line(itemID)
	if idx < 0 {
		return cart, nil
	}
	cart.Items = append(cart.Items[:idx:idx], cart.Items[idx+1:]...)
	return a.save(ctx, "remove", cart)
}

// validate checks every entry before anything is written, so a bad entry
// late in the batch never leaves a half-updated cart behind.
func (a *CartAggregator) validate(ctx context.Context, entries []domain.CartEntry) error {
	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if entry.ItemID == "" {
			return domain.Validationf("entry %d: item id is required", i)
		}
		if entry.Quantity < 1 {
			return fmt.Errorf("entry %d: %w", i, domain.ErrInvalidQuantity)
		}
		if _, ok := seen[entry.ItemID]; !ok {
			seen[entry.ItemID] = struct{}{}
			ids = append(ids, entry.ItemID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := a.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("look up cart items: %w", err)
	}
	exists := make(map[string]struct{}, len(found))
	for _, item := range found {
		exists[item.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := exists[id]; !ok {
			return domain.ItemNotFound(id)
		}
	}
	return nil
}

func (a *CartAggregator) load(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := a.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil {
		cart = &domain.Cart{UserID: userID}
	}
	return cart, nil
}

func (a *CartAggregator) save(ctx context.Context, op string, cart *domain.Cart) (*domain.Cart, error) {
	if cart.Items == nil {
		cart.Items = []domain.CartLine{}
	}
	cart.UpdatedAt = time.Now().UTC()

	if err := a.carts.SaveCart(ctx, *cart); err != nil {
		a.metrics.CartMutation(op, "error")
		return nil, fmt.Errorf("save cart: %w", err)
	}

	a.metrics.CartMutation(op, "ok")
	a.logger.Debug("cart updated",
		zap.String("op", op), zap.String("user_id", cart.UserID), zap.Int("lines", len(cart.Items)))
	return cart, nil
}

// mergeLines adds entries onto lines, accumulating quantities per item and
// keeping first-seen order. lines is not modified.
func mergeLines(lines []domain.CartLine, entries []domain.CartEntry) []domain.CartLine {
	merged := make([]domain.CartLine, len(lines), len(lines)+len(entries))
	copy(merged, lines)

	index := make(map[string]int, len(merged))
	for i, line := range merged {
		index[line.ItemID] = i
	}

	for _, entry := range entries {
		if i, ok := index[entry.ItemID]; ok {
			merged[i].Quantity = addQuantity(merged[i].Quantity, entry.Quantity)
			continue
		}
		index[entry.ItemID] = len(merged)
		merged = append(merged, domain.CartLine{ItemID: entry.ItemID, Quantity: entry.Quantity})
	}
	return merged
}

func addQuantity(a, b int) int {
	if a > maxLineQuantity-b {
		return maxLineQuantity
	}
	return a + b
}
