//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListOffers(t *testing.T) {
	resp := doGet(t, "/api/offers")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	offers := decodeJSON[[]offerResponse](t, resp)
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}

	// Offers come back in priority order.
	if offers[0].Slug != "citrus-deal" {
		t.Errorf("expected citrus-deal first, got %q", offers[0].Slug)
	}
	for _, o := range offers {
		if o.Status != "Open" {
			t.Errorf("offer %s: expected status Open, got %q", o.Slug, o.Status)
		}
	}
}

func TestGetOffer(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		resp := doGet(t, "/api/offers/citrus-deal")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		offer := decodeJSON[offerResponse](t, resp)
		if offer.Slug != "citrus-deal" {
			t.Errorf("expected slug citrus-deal, got %q", offer.Slug)
		}
		if offer.Name == "" {
			t.Error("offer name is empty")
		}
	})

	t.Run("not found", func(t *testing.T) {
		resp := doGet(t, "/api/offers/does-not-exist")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}

		body := decodeJSON[errorResponse](t, resp)
		if body.Error != "offer not found" {
			t.Errorf("unexpected error message: %q", body.Error)
		}
	})
}
