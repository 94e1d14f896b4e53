package domain

import (
	"strings"
	"time"
)

type CatalogItem struct {
	ID          string
	Name        string
	Category    string
	Description string
	Price       float64
	Stock       int // never negative; only the inventory ledger changes it
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CatalogFilter narrows a catalog listing. Zero values mean "no constraint".
type CatalogFilter struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// Matches reports whether item satisfies every constraint in f.
func (f CatalogFilter) Matches(item CatalogItem) bool {
	if f.Query != "" && !containsFold(item.Name, f.Query) {
		return false
	}
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && item.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && item.Price > *f.MaxPrice {
		return false
	}
	return true
}

// CatalogPatch carries the editable fields of an item. Stock is absent:
// it moves only through purchase and restock.
type CatalogPatch struct {
	Name        *string
	Category    *string
	Description *string
	Price       *float64
}

func (p CatalogPatch) Apply(item *CatalogItem) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
}

func (p CatalogPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Description == nil && p.Price == nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
