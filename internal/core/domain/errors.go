package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrForbidden         = errors.New("forbidden")
	ErrUnavailable       = errors.New("service unavailable")
	ErrDuplicateRequest  = errors.New("duplicate request")
)

// InsufficientStockError is returned when a purchase loses against the
// current stock level. Available is the stock observed right after the
// failed conditional write.
type InsufficientStockError struct {
	ItemID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func ItemNotFound(itemID string) error {
	return fmt.Errorf("catalog item %s: %w", itemID, ErrNotFound)
}
