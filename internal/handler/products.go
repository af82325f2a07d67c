package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-storefront/internal/codec"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/storefront"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	views := h.svc.Products(r.Context(), r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, v := range views {
			encodeProductView(e, v)
		}
		e.ArrEnd()
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var draft product.Draft
	if err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		draft, err = codec.DecodeDraft(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.svc.CreateProduct(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { codec.EncodeProduct(e, p) })
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch product.Patch
	if err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		patch, err = codec.DecodePatch(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.svc.UpdateProduct(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.EncodeProduct(e, p) })
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addProductTier(w http.ResponseWriter, r *http.Request) {
	var tier product.Tier
	if err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		tier, err = codec.DecodeTier(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.svc.AddProductTier(r.Context(), r.PathValue("id"), tier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { codec.EncodeProduct(e, p) })
}

func encodeProductView(e *jx.Encoder, v storefront.ProductView) {
	e.ObjStart()
	codec.ProductFields(e, v.Product)
	e.FieldStart("remainingStock")
	e.Int(v.Remaining)
	e.FieldStart("soldOut")
	e.Bool(v.SoldOut)
	if v.HasDiscount {
		e.FieldStart("maxDiscountRate")
		e.Str(v.MaxRate.String())
		e.FieldStart("minDiscountQuantity")
		e.Int(v.MinQuantity)
	}
	e.ObjEnd()
}
