package catalog

import (
	"errors"
	"fmt"

	"github.com/orderdesk/orderdesk/internal/platform/httpx"
)

func validateProduct(p Product) error {
	if p.Code == "" {
		return fmt.Errorf("%w: product code is required", httpx.ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", httpx.ErrValidation)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: category is required", httpx.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", httpx.ErrValidation)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be >= 0", httpx.ErrValidation)
	}
	return nil
}

func validateCategory(c Category) error {
	if c.Name == "" {
		return fmt.Errorf("%w: category name is required", httpx.ErrValidation)
	}
	return nil
}

// mapError translates repository errors to the transport taxonomy.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, ErrDuplicate):
		return fmt.Errorf("%w: code already in use", httpx.ErrDuplicate)
	default:
		return err
	}
}
