package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// validateCheckoutCart проверки корзины перед оформлением. Пустые
// *ValidationError и error означают, что корзину можно оформлять.
func validateCheckoutCart(ctx context.Context, carts repository.CartRepository, cartID uuid.UUID) (*ValidationError, error) {
	n, err := carts.CountItems(ctx, cartID)
	if errors.Is(err, repository.ErrNotFound) {
		return cartNotFound(), nil
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return cartEmpty(), nil
	}
	return nil, nil
}

func validateQuantity(q int64) *ValidationError {
	if q < 1 {
		return &ValidationError{Field: "quantity", Message: MsgQuantityMin}
	}
	if q > domain.MaxQuantity {
		return quantityTooLarge()
	}
	return nil
}

func validateProduct(ctx context.Context, catalog repository.CatalogRepository, productID int64) (*ValidationError, error) {
	ok, err := catalog.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ValidationError{Field: "product_id", Message: MsgProductNotFound, Err: ErrProductNotFound}, nil
	}
	return nil, nil
}

func validatePaymentStatus(s domain.PaymentStatus) *ValidationError {
	if !s.Valid() {
		return &ValidationError{Field: "payment_status", Message: MsgPaymentStatus}
	}
	return nil
}
