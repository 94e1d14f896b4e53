package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type NewCatalogItem struct {
	Name        string  `validate:"required,max=200"`
	Category    string  `validate:"required,max=100"`
	Description string  `validate:"max=2000"`
	Price       float64 `validate:"gte=0"`
	Stock       int     `validate:"gte=0"`
}

type catalogPatchInput struct {
	Name        *string  `validate:"omitnil,min=1,max=200"`
	Category    *string  `validate:"omitnil,min=1,max=100"`
	Description *string  `validate:"omitnil,max=2000"`
	Price       *float64 `validate:"omitnil,gte=0"`
}

type CatalogService struct {
	catalog  port.CatalogRepository
	cache    port.CacheRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCatalogService builds the catalog service. cache may be nil.
func NewCatalogService(catalog port.CatalogRepository, cache port.CacheRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		catalog:  catalog,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.CatalogItem, error) {
	return s.Search(ctx, domain.CatalogFilter{})
}

func (s *CatalogService) Search(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, domain.Validationf("minPrice must not exceed maxPrice")
	}
	items, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return items, nil
}

// Get reads through the cache. Cache failures only cost a store read.
func (s *CatalogService) Get(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	if s.cache != nil {
		cached, err := s.cache.GetItem(ctx, itemID)
		if err != nil {
			s.logger.Debug("catalog cache read failed", zap.String("item_id", itemID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if item == nil {
		return nil, domain.ItemNotFound(itemID)
	}

	if s.cache != nil {
		if err := s.cache.SetItem(ctx, *item); err != nil {
			s.logger.Debug("catalog cache write failed", zap.String("item_id", itemID), zap.Error(err))
		}
	}
	return item, nil
}

func (s *CatalogService) Create(ctx context.Context, caller domain.Identity, input NewCatalogItem) (*domain.CatalogItem, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := domain.CatalogItem{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		OwnerID:     caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.catalog.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info("catalog item created", zap.String("item_id", item.ID), zap.String("owner_id", caller.ID))
	return &item, nil
}

// Update edits an item. Only its owner or an admin may do so.
func (s *CatalogService) Update(ctx context.Context, caller domain.Identity, itemID string, patch domain.CatalogPatch) (*domain.CatalogItem, error) {
	if patch.Empty() {
		return nil, domain.Validationf("no updatable fields provided")
	}
	if err := s.check(catalogPatchInput(patch)); err != nil {
		return nil, err
	}

	current, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if current == nil {
		return nil, domain.ItemNotFound(itemID)
	}
	if !caller.Role.IsAdmin() && current.OwnerID != caller.ID {
		return nil, fmt.Errorf("update item %s: %w", itemID, domain.ErrForbidden)
	}

	updated, err := s.catalog.Update(ctx, itemID, patch)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if updated == nil {
		return nil, domain.ItemNotFound(itemID)
	}

	s.invalidate(ctx, itemID)
	return updated, nil
}

func (s *CatalogService) Delete(ctx context.Context, itemID string) error {
	deleted, err := s.catalog.Delete(ctx, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !deleted {
		return domain.ItemNotFound(itemID)
	}

	s.invalidate(ctx, itemID)
	s.logger.Info("catalog item deleted", zap.String("item_id", itemID))
	return nil
}

func (s *CatalogService) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return domain.Validationf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return domain.Validationf("%s must satisfy %s", fe.Field(), fe.Tag())
	}
	return domain.Validationf("%v", err)
}

func (s *CatalogService) invalidate(ctx context.Context, itemID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateItem(ctx, itemID); err != nil {
		s.logger.Warn("failed to invalidate cached item", zap.String("item_id", itemID), zap.Error(err))
	}
}
