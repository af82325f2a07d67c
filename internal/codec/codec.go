// Package codec encodes and decodes storefront types as JSON with jx.
//
// Money is encoded as integer minor units, tier rates as decimal strings.
// Decoders accept rates given either as strings or as numbers.
package codec

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/product"
)

// EncodeProduct writes p as a JSON object.
func EncodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	ProductFields(e, p)
	e.ObjEnd()
}

// ProductFields writes the fields of p into an open object.
func ProductFields(e *jx.Encoder, p product.Product) {
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Int64(p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("discounts")
	EncodeTiers(e, p.Discounts)
	e.FieldStart("isRecommended")
	e.Bool(p.IsRecommended)
}

// EncodeTiers writes tiers as a JSON array. A nil slice encodes as [].
func EncodeTiers(e *jx.Encoder, tiers []product.Tier) {
	e.ArrStart()
	for _, t := range tiers {
		EncodeTier(e, t)
	}
	e.ArrEnd()
}

// EncodeTier writes a single discount tier.
func EncodeTier(e *jx.Encoder, t product.Tier) {
	e.ObjStart()
	e.FieldStart("quantity")
	e.Int(t.Quantity)
	e.FieldStart("rate")
	e.Str(t.Rate.String())
	e.ObjEnd()
}

// DecodeProduct reads a product object. Unknown fields are skipped.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = d.Int64()
		case "stock":
			p.Stock, err = d.Int()
		case "discounts":
			p.Discounts, err = DecodeTiers(d)
		case "isRecommended":
			p.IsRecommended, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

// DecodeDraft reads the fields of a product to create.
func DecodeDraft(d *jx.Decoder) (product.Draft, error) {
	var dr product.Draft
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			dr.Name, err = d.Str()
		case "description":
			dr.Description, err = d.Str()
		case "price":
			dr.Price, err = d.Int64()
		case "stock":
			dr.Stock, err = d.Int()
		case "discounts":
			dr.Discounts, err = DecodeTiers(d)
		case "isRecommended":
			dr.IsRecommended, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return dr, err
}

// DecodePatch reads a partial product update. Absent fields stay nil.
func DecodePatch(d *jx.Decoder) (product.Patch, error) {
	var pt product.Patch
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, key)
			}
			pt.Name = &v
		case "description":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, key)
			}
			pt.Description = &v
		case "price":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, key)
			}
			pt.Price = &v
		case "stock":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, key)
			}
			pt.Stock = &v
		case "discounts":
			v, err := DecodeTiers(d)
			if err != nil {
				return errors.Wrap(err, key)
			}
			pt.Discounts = &v
		case "isRecommended":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, key)
			}
			pt.IsRecommended = &v
		default:
			return d.Skip()
		}
		return nil
	})
	return pt, err
}

// DecodeTiers reads an array of discount tiers.
func DecodeTiers(d *jx.Decoder) ([]product.Tier, error) {
	tiers := []product.Tier{}
	err := d.Arr(func(d *jx.Decoder) error {
		t, err := DecodeTier(d)
		if err != nil {
			return err
		}
		tiers = append(tiers, t)
		return nil
	})
	return tiers, err
}

// DecodeTier reads a single discount tier.
func DecodeTier(d *jx.Decoder) (product.Tier, error) {
	var t product.Tier
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			t.Quantity, err = d.Int()
		case "rate":
			t.Rate, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return t, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s, want string or number", d.Next())
	}
	return decimal.NewFromString(raw)
}

// EncodeCoupon writes c as a JSON object.
func EncodeCoupon(e *jx.Encoder, c coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("discountType")
	e.Str(string(c.DiscountType))
	e.FieldStart("discountValue")
	e.Int64(c.DiscountValue)
	e.ObjEnd()
}

// DecodeCoupon reads a coupon object.
func DecodeCoupon(d *jx.Decoder) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			c.Code, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "discountType":
			var s string
			s, err = d.Str()
			c.DiscountType = coupon.DiscountType(s)
		case "discountValue":
			c.DiscountValue, err = d.Int64()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return c, err
}

// EncodeTotals writes order totals.
func EncodeTotals(e *jx.Encoder, t cart.Totals) {
	e.ObjStart()
	e.FieldStart("subtotalBeforeDiscounts")
	e.Int64(t.SubtotalBeforeDiscounts)
	e.FieldStart("itemDiscountTotal")
	e.Int64(t.ItemDiscountTotal)
	e.FieldStart("couponDiscountTotal")
	e.Int64(t.CouponDiscountTotal)
	e.FieldStart("grandTotal")
	e.Int64(t.GrandTotal)
	e.ObjEnd()
}

// EncodeLine writes the fields of a priced cart line into an open object.
func EncodeLine(e *jx.Encoder, l cart.Line) {
	e.FieldStart("productId")
	e.Str(l.Product.ID)
	e.FieldStart("name")
	e.Str(l.Product.Name)
	e.FieldStart("unitPrice")
	e.Int64(l.Product.Price)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("discountRate")
	e.Str(l.Rate.String())
	e.FieldStart("total")
	e.Int64(l.Total)
}

// EncodeOrder writes a completed order.
func EncodeOrder(e *jx.Encoder, o cart.Order) {
	e.ObjStart()
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("completedAt")
	e.Str(o.CompletedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	if o.CouponCode != "" {
		e.FieldStart("couponCode")
		e.Str(o.CouponCode)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		EncodeLine(e, l)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totals")
	EncodeTotals(e, o.Totals)
	e.ObjEnd()
}

// Catalog is a set of products and coupons, as stored in seed files.
type Catalog struct {
	Products []product.Product
	Coupons  []coupon.Coupon
}

// DecodeCatalog reads {"products": [...], "coupons": [...]}.
func DecodeCatalog(data []byte) (Catalog, error) {
	var c Catalog
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := DecodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product %d", len(c.Products))
				}
				c.Products = append(c.Products, p)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				cp, err := DecodeCoupon(d)
				if err != nil {
					return errors.Wrapf(err, "coupon %d", len(c.Coupons))
				}
				c.Coupons = append(c.Coupons, cp)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Catalog{}, errors.Wrap(err, "decode catalog")
	}
	return c, nil
}
