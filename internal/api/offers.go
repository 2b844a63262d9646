package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/offer-engine/internal/domain/offer"
)

// ListOffers returns all open offers with their availability restrictions.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.ListOpen(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	now := h.now()
	var e jx.Encoder
	e.ArrStart()
	for _, o := range offers {
		encodeOffer(&e, o, now)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetOffer returns a single offer by slug.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	o, err := h.offers.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "offer not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	var e jx.Encoder
	encodeOffer(&e, o, h.now())
	writeJSON(w, http.StatusOK, &e)
}

func encodeOffer(e *jx.Encoder, o *offer.ConditionalOffer, now time.Time) {
	e.ObjStart()
	e.FieldStart("slug")
	e.Str(o.Slug)
	e.FieldStart("name")
	e.Str(o.Name)
	if o.Description != "" {
		e.FieldStart("description")
		e.Str(o.Description)
	}
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("priority")
	e.Int(o.Priority)

	e.FieldStart("restrictions")
	e.ArrStart()
	for _, rs := range o.AvailabilityRestrictions(now) {
		e.ObjStart()
		e.FieldStart("description")
		e.Str(rs.Description)
		e.FieldStart("is_satisfied")
		e.Bool(rs.IsSatisfied)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
