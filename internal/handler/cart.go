package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-storefront/internal/codec"
	"github.com/xenking/kart-storefront/internal/storefront"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Cart(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, v)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var productID string
	if err := decodeBody(w, r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "productId" {
				return d.Skip()
			}
			var err error
			productID, err = d.Str()
			return err
		})
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if productID == "" {
		writeError(w, r, errors.Wrap(errBadRequest, "productId is required"))
		return
	}

	v, err := h.svc.AddToCart(r.Context(), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, v)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		quantity int
		set      bool
	)
	if err := decodeBody(w, r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "quantity" {
				return d.Skip()
			}
			var err error
			quantity, err = d.Int()
			set = true
			return err
		})
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !set {
		writeError(w, r, errors.Wrap(errBadRequest, "quantity is required"))
		return
	}

	v, err := h.svc.UpdateQuantity(r.Context(), r.PathValue("id"), quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, v)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.RemoveFromCart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, v)
}

func (h *Handler) selectCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := decodeBody(w, r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "code" {
				return d.Skip()
			}
			var err error
			code, err = d.Str()
			return err
		})
	}); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.svc.SelectCoupon(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, v)
}

func (h *Handler) clearCoupon(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ClearCoupon(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, v)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.CompleteOrder(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { codec.EncodeOrder(e, o) })
}

func writeCart(w http.ResponseWriter, v storefront.CartView) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range v.Lines {
			e.ObjStart()
			codec.EncodeLine(e, l.Line)
			e.FieldStart("remainingStock")
			e.Int(l.Remaining)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("coupon")
		if v.Coupon != nil {
			codec.EncodeCoupon(e, *v.Coupon)
		} else {
			e.Null()
		}
		e.FieldStart("totals")
		codec.EncodeTotals(e, v.Totals)
		e.FieldStart("itemCount")
		e.Int(v.ItemCount)
		e.ObjEnd()
	})
}
