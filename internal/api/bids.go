package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/market"
	"github.com/sokonihq/sokoni/internal/platform/requestctx"
	"github.com/sokonihq/sokoni/internal/storage"
)

func (a *API) handleListMyBids(w http.ResponseWriter, r *http.Request) {
	pageSize, pageToken := listParams(r)
	page, err := a.store.ListBidsForSeller(r.Context(), requestctx.UserIDFromContext(r.Context()), pageSize, pageToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, bidListView{
		Bids:          newBidViews(page.Bids),
		NextPageToken: page.NextPageToken,
	})
}

func (a *API) handleGetBid(w http.ResponseWriter, r *http.Request) {
	bidID := strings.TrimSpace(r.PathValue("bidID"))
	if bidID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}

	bid, err := a.store.GetBid(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	req, reqKnown, err := a.bidRequest(r, bid)
	if err != nil {
		writeError(w, err)
		return
	}

	userID := requestctx.UserIDFromContext(r.Context())
	if bid.SellerID != userID && !(reqKnown && req.BuyerID == userID) {
		writeError(w, errPermissionDenied)
		return
	}

	record := storage.BidRecord{Bid: bid}
	if reqKnown {
		record.RequestTitle = req.Title
		record.RequestBudgetCents = req.BudgetCents
	}
	if seller, err := a.store.GetUser(r.Context(), bid.SellerID); err == nil {
		record.SellerUsername = seller.Username
	}
	writeData(w, http.StatusOK, newBidView(record))
}

type updateBidRequest struct {
	AmountCents  *int64     `json:"amount_cents"`
	Message      *string    `json:"message"`
	DeliveryDays *int       `json:"delivery_days"`
	ExpiresAt    *time.Time `json:"expires_at"`
	ClearExpiry  bool       `json:"clear_expiry"`
}

func (a *API) handleUpdateBid(w http.ResponseWriter, r *http.Request) {
	bidID := strings.TrimSpace(r.PathValue("bidID"))
	if bidID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}
	var body updateBidRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	current, err := a.store.GetBid(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.SellerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	req, reqKnown, err := a.bidRequest(r, current)
	if err != nil {
		writeError(w, err)
		return
	}
	if !reqKnown {
		writeError(w, market.ErrBidNotEditable)
		return
	}

	updated, err := market.ApplyBidUpdate(current, market.UpdateBidInput{
		AmountCents:  body.AmountCents,
		Message:      body.Message,
		DeliveryDays: body.DeliveryDays,
		ExpiresAt:    body.ExpiresAt,
		ClearExpiry:  body.ClearExpiry,
	}, req, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateBid(r.Context(), updated); err != nil {
		writeError(w, err)
		return
	}

	record := storage.BidRecord{
		Bid:                updated,
		RequestTitle:       req.Title,
		RequestBudgetCents: req.BudgetCents,
	}
	if seller, err := a.store.GetUser(r.Context(), updated.SellerID); err == nil {
		record.SellerUsername = seller.Username
	}
	writeData(w, http.StatusOK, newBidView(record))
}

func (a *API) handleWithdrawBid(w http.ResponseWriter, r *http.Request) {
	bidID := strings.TrimSpace(r.PathValue("bidID"))
	if bidID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}

	current, err := a.store.GetBid(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.SellerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	if err := market.CanWithdrawBid(current); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.SoftDeleteBid(r.Context(), current.ID, a.now()); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "bid withdrawn", nil)
}

// bidRequest resolves a bid's parent request. A missing parent is not an
// error here; permission and editability checks handle it.
func (a *API) bidRequest(r *http.Request, bid market.Bid) (market.Request, bool, error) {
	req, err := a.store.GetRequest(r.Context(), bid.RequestID)
	if err == nil {
		return req, true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return market.Request{}, false, nil
	}
	return market.Request{}, false, err
}
