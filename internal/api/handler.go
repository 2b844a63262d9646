// Package api exposes the offer engine over HTTP with hand-written jx codecs.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/domain/offer"
)

// OfferSource provides the offers the API serves and applies.
type OfferSource interface {
	ListOpen(ctx context.Context) ([]*offer.ConditionalOffer, error)
	GetBySlug(ctx context.Context, slug string) (*offer.ConditionalOffer, error)
}

// OfferStore additionally persists offer usage when orders complete. The
// write is expected to fail with offer.ErrVersionConflict on a lost
// concurrency race.
type OfferStore interface {
	OfferSource
	RecordUsage(ctx context.Context, o *offer.ConditionalOffer, orderID, userID string, u offer.Usage) error
}

// Handler serves the offer API, delegating evaluation to the applicator and
// lookups to the injected repositories.
type Handler struct {
	catalog    catalog.Repository
	offers     OfferStore
	applicator *offer.Applicator
	now        func() time.Time
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(cat catalog.Repository, offers OfferStore, applicator *offer.Applicator) *Handler {
	return &Handler{
		catalog:    cat,
		offers:     offers,
		applicator: applicator,
		now:        time.Now,
	}
}

// Register mounts the API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/baskets/apply", h.ApplyOffers)
	mux.HandleFunc("POST /api/orders", h.CompleteOrder)
	mux.HandleFunc("GET /api/offers", h.ListOffers)
	mux.HandleFunc("GET /api/offers/{slug}", h.GetOffer)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Int("status", status), zap.String("error", msg))
		// Internal details stay in the log.
		msg = "internal error"
	}
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, &e)
}
