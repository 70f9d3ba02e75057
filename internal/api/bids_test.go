package api

import (
	"net/http"
	"testing"

	"github.com/sokonihq/sokoni/internal/api/routepath"
)

func TestCreateBid(t *testing.T) {
	t.Run("places a bid with savings", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), seller.Access, map[string]any{
			"amount_cents":  40_000,
			"message":       "I can take this on and deliver quickly.",
			"delivery_days": 7,
		})
		wantStatus(t, w, http.StatusCreated)

		resp := decodeEnvelope(t, w)
		if resp.Message != "bid placed" {
			t.Fatalf("unexpected message %q", resp.Message)
		}
		var view struct {
			RequestTitle   string  `json:"request_title"`
			SellerUsername string  `json:"seller_username"`
			SavingsCents   int64   `json:"savings_cents"`
			SavingsPercent float64 `json:"savings_percent"`
			DeliveryDays   *int    `json:"delivery_days"`
			Accepted       bool    `json:"accepted"`
		}
		decodeData(t, w, &view)
		if view.SavingsCents != 10_000 || view.SavingsPercent != 20 {
			t.Fatalf("expected 10000 cents / 20%% savings, got %+v", view)
		}
		if view.RequestTitle != "Build a landing page" || view.SellerUsername != "kofi" {
			t.Fatalf("expected joined fields, got %+v", view)
		}
		if view.DeliveryDays == nil || *view.DeliveryDays != 7 || view.Accepted {
			t.Fatalf("unexpected bid state: %+v", view)
		}
	})

	t.Run("buyers cannot bid on their own request", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), buyer.Access, map[string]any{
			"amount_cents": 40_000,
			"message":      "I can take this on and deliver quickly.",
		})
		wantStatus(t, w, http.StatusForbidden)
		if resp := decodeEnvelope(t, w); resp.Code != "BID_OWN_REQUEST" {
			t.Fatalf("expected code BID_OWN_REQUEST, got %q", resp.Code)
		}
	})

	t.Run("rejects an amount above the budget", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), seller.Access, map[string]any{
			"amount_cents": 60_000,
			"message":      "I can take this on and deliver quickly.",
		})
		wantStatus(t, w, http.StatusBadRequest)
		if resp := decodeEnvelope(t, w); resp.Errors["amount_cents"] == "" {
			t.Fatalf("expected an amount_cents field error, got %v", resp.Errors)
		}
	})

	t.Run("rejects a short message", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), seller.Access, map[string]any{
			"amount_cents": 40_000,
			"message":      "ok",
		})
		wantStatus(t, w, http.StatusBadRequest)
		if resp := decodeEnvelope(t, w); resp.Errors["message"] == "" {
			t.Fatalf("expected a message field error, got %v", resp.Errors)
		}
	})

	t.Run("closed requests take no bids", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		late := env.register(t, "zawadi@example.com", "zawadi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)
		env.acceptBid(t, buyer, requestID, bidID)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), late.Access, map[string]any{
			"amount_cents": 30_000,
			"message":      "I can take this on and deliver quickly.",
		})
		wantStatus(t, w, http.StatusConflict)
		if resp := decodeEnvelope(t, w); resp.Code != "REQUEST_NOT_BIDDABLE" {
			t.Fatalf("expected code REQUEST_NOT_BIDDABLE, got %q", resp.Code)
		}
	})

	t.Run("one live bid per seller", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		env.placeBid(t, seller, requestID, 40_000)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), seller.Access, map[string]any{
			"amount_cents": 35_000,
			"message":      "Second thoughts, here is a better offer.",
		})
		wantStatus(t, w, http.StatusConflict)
		if resp := decodeEnvelope(t, w); resp.Code != "BID_DUPLICATE" {
			t.Fatalf("expected code BID_DUPLICATE, got %q", resp.Code)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)

		w := env.do(t, http.MethodPost, routepath.RequestBids(requestID), "", map[string]any{
			"amount_cents": 40_000,
			"message":      "I can take this on and deliver quickly.",
		})
		wantStatus(t, w, http.StatusUnauthorized)
	})
}

func TestListRequestBids(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.register(t, "amina@example.com", "amina")
	seller := env.register(t, "kofi@example.com", "kofi")
	rival := env.register(t, "zawadi@example.com", "zawadi")
	stranger := env.register(t, "neo@example.com", "neo")
	requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
	env.placeBid(t, seller, requestID, 40_000)
	env.placeBid(t, rival, requestID, 35_000)

	type listView struct {
		Bids []struct {
			SellerID string `json:"seller_id"`
		} `json:"bids"`
	}

	t.Run("buyer sees every bid", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.RequestBids(requestID), buyer.Access, nil)
		wantStatus(t, w, http.StatusOK)

		var view listView
		decodeData(t, w, &view)
		if len(view.Bids) != 2 {
			t.Fatalf("expected 2 bids, got %d", len(view.Bids))
		}
	})

	t.Run("bidders see only their own", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.RequestBids(requestID), seller.Access, nil)
		wantStatus(t, w, http.StatusOK)

		var view listView
		decodeData(t, w, &view)
		if len(view.Bids) != 1 || view.Bids[0].SellerID != seller.ID {
			t.Fatalf("expected only the caller's bid, got %+v", view.Bids)
		}
	})

	t.Run("outsiders are refused", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.RequestBids(requestID), stranger.Access, nil)
		wantStatus(t, w, http.StatusForbidden)
	})

	t.Run("requires authentication", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.RequestBids(requestID), "", nil)
		wantStatus(t, w, http.StatusUnauthorized)
	})
}

func TestListMyBids(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.register(t, "amina@example.com", "amina")
	seller := env.register(t, "kofi@example.com", "kofi")
	first := env.postRequest(t, buyer, "Build a landing page", 50_000)
	second := env.postRequest(t, buyer, "Design a logo for my shop", 20_000)
	env.placeBid(t, seller, first, 40_000)
	env.placeBid(t, seller, second, 15_000)

	w := env.do(t, http.MethodGet, routepath.BidsMine, seller.Access, nil)
	wantStatus(t, w, http.StatusOK)

	var view struct {
		Bids []struct {
			RequestTitle string `json:"request_title"`
		} `json:"bids"`
	}
	decodeData(t, w, &view)
	if len(view.Bids) != 2 {
		t.Fatalf("expected 2 bids, got %d", len(view.Bids))
	}
	for _, bid := range view.Bids {
		if bid.RequestTitle == "" {
			t.Fatalf("expected the request title joined, got %+v", view.Bids)
		}
	}
}

func TestGetBid(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.register(t, "amina@example.com", "amina")
	seller := env.register(t, "kofi@example.com", "kofi")
	stranger := env.register(t, "neo@example.com", "neo")
	requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
	bidID := env.placeBid(t, seller, requestID, 40_000)

	t.Run("visible to the seller", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.Bid(bidID), seller.Access, nil)
		wantStatus(t, w, http.StatusOK)
	})

	t.Run("visible to the buyer", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.Bid(bidID), buyer.Access, nil)
		wantStatus(t, w, http.StatusOK)

		var view struct {
			RequestTitle string `json:"request_title"`
		}
		decodeData(t, w, &view)
		if view.RequestTitle != "Build a landing page" {
			t.Fatalf("expected the request title joined, got %+v", view)
		}
	})

	t.Run("hidden from outsiders", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.Bid(bidID), stranger.Access, nil)
		wantStatus(t, w, http.StatusForbidden)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := env.do(t, http.MethodGet, routepath.Bid("bid-ghost"), seller.Access, nil)
		wantStatus(t, w, http.StatusNotFound)
	})
}

func TestUpdateBid(t *testing.T) {
	t.Run("seller revises the offer", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)

		w := env.do(t, http.MethodPatch, routepath.Bid(bidID), seller.Access, map[string]any{
			"amount_cents": 38_000,
			"message":      "Revised offer after a closer look at the scope.",
		})
		wantStatus(t, w, http.StatusOK)

		var view struct {
			AmountCents  int64  `json:"amount_cents"`
			Message      string `json:"message"`
			SavingsCents int64  `json:"savings_cents"`
		}
		decodeData(t, w, &view)
		if view.AmountCents != 38_000 || view.SavingsCents != 12_000 {
			t.Fatalf("expected the revision applied, got %+v", view)
		}
	})

	t.Run("only the seller may edit", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)

		w := env.do(t, http.MethodPatch, routepath.Bid(bidID), buyer.Access, map[string]any{
			"amount_cents": 10_000,
		})
		wantStatus(t, w, http.StatusForbidden)
	})

	t.Run("accepted bids are frozen", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)
		env.acceptBid(t, buyer, requestID, bidID)

		w := env.do(t, http.MethodPatch, routepath.Bid(bidID), seller.Access, map[string]any{
			"amount_cents": 38_000,
		})
		wantStatus(t, w, http.StatusConflict)
		if resp := decodeEnvelope(t, w); resp.Code != "BID_NOT_EDITABLE" {
			t.Fatalf("expected code BID_NOT_EDITABLE, got %q", resp.Code)
		}
	})
}

func TestWithdrawBid(t *testing.T) {
	t.Run("soft deletes the bid", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)

		w := env.do(t, http.MethodDelete, routepath.Bid(bidID), seller.Access, nil)
		wantStatus(t, w, http.StatusOK)
		if resp := decodeEnvelope(t, w); resp.Message != "bid withdrawn" {
			t.Fatalf("unexpected message %q", resp.Message)
		}

		w = env.do(t, http.MethodGet, routepath.Bid(bidID), seller.Access, nil)
		wantStatus(t, w, http.StatusNotFound)
	})

	t.Run("accepted bids cannot be withdrawn", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)
		env.acceptBid(t, buyer, requestID, bidID)

		w := env.do(t, http.MethodDelete, routepath.Bid(bidID), seller.Access, nil)
		wantStatus(t, w, http.StatusConflict)
	})

	t.Run("only the seller may withdraw", func(t *testing.T) {
		env := newTestEnv(t)
		buyer := env.register(t, "amina@example.com", "amina")
		seller := env.register(t, "kofi@example.com", "kofi")
		requestID := env.postRequest(t, buyer, "Build a landing page", 50_000)
		bidID := env.placeBid(t, seller, requestID, 40_000)

		w := env.do(t, http.MethodDelete, routepath.Bid(bidID), buyer.Access, nil)
		wantStatus(t, w, http.StatusForbidden)
	})
}
