package api

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

// usageWriteAttempts bounds optimistic retries when a usage write loses the
// version race.
const usageWriteAttempts = 3

type orderRequest struct {
	applyRequest
	OrderID string
}

func decodeOrderRequest(d *jx.Decoder) (orderRequest, error) {
	var req orderRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "order_id":
			v, err := d.Str()
			req.OrderID = v
			return err
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

// CompleteOrder runs a full evaluation pass for the posted order and rolls
// every applied offer's usage into the store. Usage writes retry on version
// conflicts with a freshly loaded offer.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d := jx.Decode(r.Body, 4096)
	req, err := decodeOrderRequest(d)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		writeError(w, r, http.StatusBadRequest, "order_id is required")
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

	for _, a := range log.Applications {
		if err := h.recordUsage(ctx, a, req.OrderID, req.UserID); err != nil {
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(req.OrderID)
	encodeBasketOutcome(&e, bk, log, req.ShippingCharge)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) recordUsage(ctx context.Context, a offer.Application, orderID, userID string) error {
	o := a.Offer
	u := offer.Usage{Freq: a.Freq, Discount: a.Discount}
	for attempt := 1; ; attempt++ {
		err := h.offers.RecordUsage(ctx, o, orderID, userID, u)
		if err == nil {
			return nil
		}
		if !errors.Is(err, offer.ErrVersionConflict) || attempt == usageWriteAttempts {
			return errors.Wrapf(err, "record usage for offer %s", o.Slug)
		}
		fresh, err := h.offers.GetBySlug(ctx, o.Slug)
		if err != nil {
			return errors.Wrapf(err, "reload offer %s after version conflict", o.Slug)
		}
		o = fresh
	}
}
