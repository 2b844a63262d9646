//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type orderApplyRequest struct {
	OrderID string             `json:"order_id"`
	UserID  string             `json:"user_id,omitempty"`
	Lines   []applyLineRequest `json:"lines"`
}

type orderResponse struct {
	OrderID       string `json:"order_id"`
	TotalDiscount string `json:"total_discount"`
}

func TestCompleteOrder(t *testing.T) {
	resp := doPost(t, "/api/orders", orderApplyRequest{
		OrderID: "order-it-1",
		UserID:  "user-it-1",
		Lines: []applyLineRequest{
			{ProductID: "lemon", StockRecordID: "sr-lemon", Quantity: 3, UnitPrice: "0.80"},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[orderResponse](t, resp)
	if body.OrderID != "order-it-1" {
		t.Errorf("order id: got %q, want order-it-1", body.OrderID)
	}
	if body.TotalDiscount != "0.48" {
		t.Errorf("total discount: got %q, want 0.48", body.TotalDiscount)
	}
}

func TestCompleteOrder_MissingOrderID(t *testing.T) {
	resp := doPost(t, "/api/orders", orderApplyRequest{
		Lines: []applyLineRequest{
			{ProductID: "lemon", StockRecordID: "sr-lemon", Quantity: 1, UnitPrice: "0.80"},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error != "order_id is required" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}
