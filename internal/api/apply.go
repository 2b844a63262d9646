package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/offer-engine/internal/domain/basket"
	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/domain/offer"
)

type applyLineRequest struct {
	ProductID     string
	StockRecordID string
	Quantity      int
	UnitPrice     decimal.Decimal
}

type applyRequest struct {
	UserID         string
	ShippingCharge decimal.Decimal
	Lines          []applyLineRequest
}

func decodeApplyRequest(d *jx.Decoder) (applyRequest, error) {
	var req applyRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "user_id":
			v, err := d.Str()
			req.UserID = v
			return err
		case "shipping_charge":
			return decodeDecimal(d, &req.ShippingCharge)
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeApplyLine(d)
				if err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeApplyLine(d *jx.Decoder) (applyLineRequest, error) {
	var line applyLineRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Str()
			line.ProductID = v
			return err
		case "stock_record_id":
			v, err := d.Str()
			line.StockRecordID = v
			return err
		case "quantity":
			v, err := d.Int()
			line.Quantity = v
			return err
		case "unit_price":
			return decodeDecimal(d, &line.UnitPrice)
		default:
			return d.Skip()
		}
	})
	return line, err
}

// decodeDecimal accepts money both as a JSON string and as a raw number.
func decodeDecimal(d *jx.Decoder, out *decimal.Decimal) error {
	var raw string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return err
		}
		raw = v
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		raw = n.String()
	default:
		return errors.New("expected string or number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return errors.Wrap(err, "parse decimal")
	}
	*out = v
	return nil
}

// basketForLines validates the posted lines and assembles a basket from the
// catalog. A non-empty message means the request is invalid (400); a non-nil
// error is an internal failure.
func (h *Handler) basketForLines(ctx context.Context, lines []applyLineRequest) (*basket.Basket, string, error) {
	if len(lines) == 0 {
		return nil, "basket has no lines", nil
	}
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, "line quantity must be positive", nil
		}
		if line.UnitPrice.IsNegative() {
			return nil, "line unit price cannot be negative", nil
		}
		ids = append(ids, line.ProductID)
	}

	products, err := h.catalog.GetByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, "unknown product in basket", nil
		}
		return nil, "", err
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	bk := basket.New()
	for _, line := range lines {
		bk.AddLine(basket.NewLine(byID[line.ProductID], line.StockRecordID, line.Quantity, line.UnitPrice))
	}
	return bk, "", nil
}

// ApplyOffers runs a full evaluation pass over the open offers for the posted
// basket and returns the resulting discounts.
func (h *Handler) ApplyOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d := jx.Decode(r.Body, 4096)
	req, err := decodeApplyRequest(d)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	bk, msg, err := h.basketForLines(ctx, req.Lines)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	offers, err := h.offers.ListOpen(ctx)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	log, err := h.applicator.Apply(ctx, bk, offers, req.UserID, h.now())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	var e jx.Encoder
	e.ObjStart()
	encodeBasketOutcome(&e, bk, log, req.ShippingCharge)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// encodeBasketOutcome writes the shared evaluation-result fields into an
// already-open JSON object.
func encodeBasketOutcome(e *jx.Encoder, bk *basket.Basket, log *offer.ApplicationLog, shippingCharge decimal.Decimal) {
	e.FieldStart("subtotal")
	e.Str(bk.Subtotal().StringFixed(2))
	e.FieldStart("total_discount")
	e.Str(log.TotalBasketDiscount().StringFixed(2))
	e.FieldStart("total")
	e.Str(bk.Subtotal().Sub(bk.TotalDiscount()).StringFixed(2))
	e.FieldStart("shipping_discount")
	e.Str(log.ShippingDiscount(shippingCharge).StringFixed(2))

	e.FieldStart("lines")
	e.ArrStart()
	for _, line := range bk.Lines() {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(line.Product().ID)
		e.FieldStart("quantity")
		e.Int(line.Quantity())
		e.FieldStart("discount")
		e.Str(line.Discount().StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("applications")
	e.ArrStart()
	for _, a := range log.Applications {
		e.ObjStart()
		e.FieldStart("slug")
		e.Str(a.Offer.Slug)
		e.FieldStart("name")
		e.Str(a.Offer.Name)
		e.FieldStart("frequency")
		e.Int(a.Freq)
		e.FieldStart("discount")
		e.Str(a.Discount.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("upsells")
	e.ArrStart()
	for _, u := range log.Upsells {
		e.ObjStart()
		e.FieldStart("slug")
		e.Str(u.Offer.Slug)
		e.FieldStart("message")
		e.Str(u.Message)
		e.ObjEnd()
	}
	e.ArrEnd()

	if len(log.PostOrderDescriptions) > 0 {
		e.FieldStart("post_order_actions")
		e.ArrStart()
		for _, desc := range log.PostOrderDescriptions {
			e.Str(desc)
		}
		e.ArrEnd()
	}
}
