package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-storefront/internal/codec"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
)

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons := h.svc.Coupons(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range coupons {
			codec.EncodeCoupon(e, c)
		}
		e.ArrEnd()
	})
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var c coupon.Coupon
	if err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		c, err = codec.DecodeCoupon(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.svc.CreateCoupon(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { codec.EncodeCoupon(e, created) })
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCoupon(r.Context(), r.PathValue("code")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
