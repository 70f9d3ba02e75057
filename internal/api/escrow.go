package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/requestctx"
	"github.com/sokonihq/sokoni/internal/storage"
)

type createEscrowRequest struct {
	BidID         string `json:"bid_id"`
	PaymentMethod string `json:"payment_method"`
}

// handleCreateEscrow opens an escrow for an already-accepted bid that has
// none. Acceptance normally creates the escrow in the same transaction;
// this is the recovery path.
func (a *API) handleCreateEscrow(w http.ResponseWriter, r *http.Request) {
	var body createEscrowRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	bidID := strings.TrimSpace(body.BidID)
	if bidID == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidBody, "bid_id is required"))
		return
	}

	bid, err := a.store.GetBid(r.Context(), bidID)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := a.store.GetRequest(r.Context(), bid.RequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	if !bid.Accepted {
		writeError(w, market.ErrBidNotAcceptable)
		return
	}
	if _, err := a.store.GetEscrowByRequest(r.Context(), req.ID); err == nil {
		writeError(w, apperrors.New(apperrors.CodeEscrowAlreadyExists, "escrow already exists for this request"))
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		writeError(w, err)
		return
	}

	method := escrow.DefaultMethod
	if raw := strings.TrimSpace(body.PaymentMethod); raw != "" {
		method, err = escrow.ParsePaymentMethod(raw)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	esc, err := escrow.CreateEscrow(escrow.CreateEscrowInput{
		RequestID:     req.ID,
		BidID:         bid.ID,
		BuyerID:       req.BuyerID,
		SellerID:      bid.SellerID,
		AmountCents:   bid.AmountCents,
		PaymentMethod: method,
	}, a.now, a.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.CreateEscrow(r.Context(), esc); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "escrow created", newEscrowView(esc))
}

func (a *API) handleListEscrows(w http.ResponseWriter, r *http.Request) {
	pageSize, pageToken := listParams(r)
	page, err := a.store.ListEscrowsForUser(r.Context(), requestctx.UserIDFromContext(r.Context()), pageSize, pageToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, escrowListView{
		Escrows:       newEscrowViews(page.Escrows),
		NextPageToken: page.NextPageToken,
	})
}

func (a *API) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	esc, err := a.escrowForParty(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newEscrowView(esc))
}

func (a *API) handleEscrowStatus(w http.ResponseWriter, r *http.Request) {
	esc, err := a.escrowForParty(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newEscrowStatusView(esc))
}

type payEscrowRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// handlePayEscrow runs the simulated processor against a pending or
// failed escrow. A decline is persisted like a success; the escrow moves
// to failed and the response reports the reason.
func (a *API) handlePayEscrow(w http.ResponseWriter, r *http.Request) {
	esc, err := a.escrowForParty(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if esc.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}

	method := esc.PaymentMethod
	if r.ContentLength != 0 {
		var body payEscrowRequest
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
		if raw := strings.TrimSpace(body.PaymentMethod); raw != "" {
			method, err = escrow.ParsePaymentMethod(raw)
			if err != nil {
				writeError(w, err)
				return
			}
		}
	}

	processed, outcome, err := escrow.ProcessPayment(esc, method, a.now, a.paymentRand)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateEscrow(r.Context(), processed); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEscrowPayment(string(method), outcome.Success)

	view := paymentView{
		Escrow:           newEscrowView(processed),
		PaymentReference: processed.PaymentReference,
		PaymentToken:     processed.PaymentToken,
		Processor:        outcome.Processor,
		FailureReason:    outcome.FailureReason,
	}
	if !outcome.Success {
		// The attempt was recorded, so the decline rides an error
		// envelope that still carries the escrow state.
		writeJSON(w, apperrors.CodeEscrowPaymentDeclined.HTTPStatus(), envelope{
			Success: false,
			Message: outcome.Message,
			Code:    string(apperrors.CodeEscrowPaymentDeclined),
			Data:    view,
		})
		return
	}
	writeMessage(w, http.StatusOK, outcome.Message, view)
}

// handleReleaseEscrow moves funds to the seller and completes the paired
// request in one transaction. Buyer only.
func (a *API) handleReleaseEscrow(w http.ResponseWriter, r *http.Request) {
	esc, err := a.escrowForParty(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if esc.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	notes, err := a.optionalNotes(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := a.store.GetRequest(r.Context(), esc.RequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	a.settleRelease(w, r, esc, req, notes)
}

type disputeEscrowRequest struct {
	Reason string `json:"reason"`
}

// handleDisputeEscrow holds locked funds and moves the paired request to
// disputed. Either party may open a dispute.
func (a *API) handleDisputeEscrow(w http.ResponseWriter, r *http.Request) {
	esc, err := a.escrowForParty(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body disputeEscrowRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	held, err := escrow.Dispute(esc, body.Reason, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := a.store.GetRequest(r.Context(), esc.RequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	disputedReq := req
	if req.Status != market.RequestStatusDisputed {
		disputedReq, err = market.TransitionRequest(req, market.RequestStatusDisputed, a.now)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if err := a.store.SettleEscrow(r.Context(), held, disputedReq); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("escrow_disputed")

	record, err := a.requestRecord(r.Context(), disputedReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "funds held pending dispute resolution", escrowSettleView{
		Escrow:  newEscrowView(held),
		Request: newRequestView(record),
	})
}

// handleRefundEscrow returns the full total, fee included, to the buyer
// and cancels the paired request. Either party may trigger it.
func (a *API) handleRefundEscrow(w http.ResponseWriter, r *http.Request) {
	esc, err := a.escrowForParty(r)
	if err != nil {
		writeError(w, err)
		return
	}
	notes, err := a.optionalNotes(r)
	if err != nil {
		writeError(w, err)
		return
	}

	refunded, err := escrow.Refund(esc, notes, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := a.store.GetRequest(r.Context(), esc.RequestID)
	if err != nil {
		writeError(w, err)
		return
	}
	cancelledReq, err := market.TransitionRequest(req, market.RequestStatusCancelled, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.SettleEscrow(r.Context(), refunded, cancelledReq); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("escrow_refunded")

	record, err := a.requestRecord(r.Context(), cancelledReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "funds refunded to buyer", escrowSettleView{
		Escrow:  newEscrowView(refunded),
		Request: newRequestView(record),
	})
}

func (a *API) handlePaymentMethods(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, newPaymentMethodsView())
}

func (a *API) handleEscrowStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.EscrowStatistics(r.Context(), requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newEscrowStatisticsView(stats))
}

// settleRelease releases escrow funds and completes the paired request in
// one transaction. Shared by the escrow release endpoint and the request
// release shortcut; callers have already checked the buyer.
func (a *API) settleRelease(w http.ResponseWriter, r *http.Request, esc escrow.Escrow, req market.Request, notes string) {
	released, err := escrow.Release(esc, req.Status, notes, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	completedReq := req
	if req.Status != market.RequestStatusCompleted {
		completedReq, err = market.TransitionRequest(req, market.RequestStatusCompleted, a.now)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	if err := a.store.SettleEscrow(r.Context(), released, completedReq); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("escrow_released")

	record, err := a.requestRecord(r.Context(), completedReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "funds released to seller", escrowSettleView{
		Escrow:  newEscrowView(released),
		Request: newRequestView(record),
	})
}

// escrowForParty loads the escrow named in the path and checks the caller
// is the buyer or the seller.
func (a *API) escrowForParty(r *http.Request) (escrow.Escrow, error) {
	escrowID := strings.TrimSpace(r.PathValue("escrowID"))
	if escrowID == "" {
		return escrow.Escrow{}, storage.ErrNotFound
	}
	esc, err := a.store.GetEscrow(r.Context(), escrowID)
	if err != nil {
		return escrow.Escrow{}, err
	}
	userID := requestctx.UserIDFromContext(r.Context())
	if esc.BuyerID != userID && esc.SellerID != userID {
		return escrow.Escrow{}, errPermissionDenied
	}
	return esc, nil
}
