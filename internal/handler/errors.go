package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/storefront"
)

// mapError converts domain errors to an HTTP status and client message.
func mapError(err error) (int, string) {
	var (
		stockErr *cart.StockError
		fieldErr *product.FieldError
		rangeErr *coupon.RangeError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, storefront.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, storefront.ErrCouponNotFound):
		return http.StatusNotFound, "coupon not found"
	case errors.Is(err, coupon.ErrDuplicateCode):
		return http.StatusConflict, coupon.ErrDuplicateCode.Error()
	case errors.As(err, &stockErr):
		return http.StatusUnprocessableEntity, stockErr.Error()
	case errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity, fieldErr.Error()
	case errors.As(err, &rangeErr):
		return http.StatusUnprocessableEntity, rangeErr.Error()
	case errors.Is(err, cart.ErrEmptyCart):
		return http.StatusUnprocessableEntity, cart.ErrEmptyCart.Error()
	case errors.Is(err, coupon.ErrInvalidCode):
		return http.StatusUnprocessableEntity, coupon.ErrInvalidCode.Error()
	case errors.Is(err, coupon.ErrInvalidType):
		return http.StatusUnprocessableEntity, coupon.ErrInvalidType.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
