// Package handler exposes the storefront over HTTP with JSON bodies.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/notify"
	"github.com/xenking/kart-storefront/internal/storefront"
)

const maxBodySize = 1 << 20

// Handler serves the storefront API.
type Handler struct {
	svc   *storefront.Service
	notes *notify.Recorder
	keys  *auth.Keys
}

// New creates a Handler. notes backs the notifications endpoints; keys
// guards admin routes.
func New(svc *storefront.Service, notes *notify.Recorder, keys *auth.Keys) *Handler {
	return &Handler{svc: svc, notes: notes, keys: keys}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	admin := h.requireAPIKey

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.Handle("POST /api/products", admin(h.createProduct))
	mux.Handle("PATCH /api/products/{id}", admin(h.updateProduct))
	mux.Handle("DELETE /api/products/{id}", admin(h.deleteProduct))
	mux.Handle("POST /api/products/{id}/discounts", admin(h.addProductTier))

	mux.HandleFunc("GET /api/coupons", h.listCoupons)
	mux.Handle("POST /api/coupons", admin(h.createCoupon))
	mux.Handle("DELETE /api/coupons/{code}", admin(h.deleteCoupon))

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PUT /api/cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("PUT /api/cart/coupon", h.selectCoupon)
	mux.HandleFunc("DELETE /api/cart/coupon", h.clearCoupon)
	mux.HandleFunc("POST /api/cart/checkout", h.checkout)

	mux.HandleFunc("GET /api/notifications", h.listNotifications)
	mux.HandleFunc("DELETE /api/notifications/{id}", h.dismissNotification)
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("malformed request")

// decodeBody reads the request body and passes a decoder over it to fn.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	if len(data) == 0 {
		return errors.Wrap(errBadRequest, "empty body")
	}
	if err := fn(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes {"code": status, "message": ...} for err. Unexpected
// errors are logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}
