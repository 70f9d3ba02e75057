package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/pagination"
	"github.com/sokonihq/sokoni/internal/platform/requestctx"
	"github.com/sokonihq/sokoni/internal/storage"
)

// Page sizes for every listing endpoint.
var pageSizes = pagination.PageSizeConfig{Default: 10, Max: 50}

var errPermissionDenied = apperrors.New(apperrors.CodePermissionDenied, "you do not have access to this resource")

// listParams reads page_size and page_token. Page size is clamped rather
// than rejected; malformed numbers fall back to the default.
func listParams(r *http.Request) (int, string) {
	query := r.URL.Query()
	size, _ := strconv.Atoi(query.Get("page_size"))
	return pagination.ClampPageSize(size, pageSizes), strings.TrimSpace(query.Get("page_token"))
}

type createRequestRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	BudgetCents int64      `json:"budget_cents"`
	CategoryID  string     `json:"category_id"`
	Deadline    *time.Time `json:"deadline"`
}

func (a *API) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := a.ensureActiveCategory(r.Context(), body.CategoryID); err != nil {
		writeError(w, err)
		return
	}
	created, err := market.CreateRequest(market.CreateRequestInput{
		BuyerID:     requestctx.UserIDFromContext(r.Context()),
		Title:       body.Title,
		Description: body.Description,
		BudgetCents: body.BudgetCents,
		CategoryID:  body.CategoryID,
		Deadline:    body.Deadline,
	}, a.now, a.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.CreateRequest(r.Context(), created); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("request_created")

	record, err := a.requestRecord(r.Context(), created)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "request created", newRequestView(record))
}

func (a *API) handleListRequests(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := requestctx.UserIDFromContext(r.Context())

	filter := storage.RequestFilter{
		CategoryID: strings.TrimSpace(query.Get("category")),
		Search:     strings.TrimSpace(query.Get("search")),
	}
	// Malformed budget bounds are ignored rather than rejected.
	if cents, err := strconv.ParseInt(query.Get("min_budget_cents"), 10, 64); err == nil {
		filter.MinBudgetCents = cents
	}
	if cents, err := strconv.ParseInt(query.Get("max_budget_cents"), 10, 64); err == nil {
		filter.MaxBudgetCents = cents
	}

	// Anonymous callers see only biddable requests. Authenticated callers
	// may pick a status instead, and get their own postings excluded
	// unless they opt out.
	rawStatus := strings.TrimSpace(query.Get("status"))
	if userID != "" && rawStatus != "" {
		status, err := market.ParseRequestStatus(rawStatus)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.Status = status
	} else {
		filter.OnlyBiddable = true
		filter.Now = a.now()
	}
	if userID != "" && !strings.EqualFold(query.Get("exclude_own"), "false") {
		filter.ExcludeBuyerID = userID
	}

	orderBy, err := pagination.NormalizeOrderBy(strings.TrimSpace(query.Get("order_by")), pagination.OrderByConfig{
		Default: string(storage.RequestOrderNewest),
		Allowed: []string{
			string(storage.RequestOrderNewest),
			string(storage.RequestOrderBudgetAsc),
			string(storage.RequestOrderBudgetDesc),
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	pageSize, pageToken := listParams(r)
	page, err := a.store.ListRequests(r.Context(), filter, storage.RequestOrder(orderBy), pageSize, pageToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, requestListView{
		Requests:      newRequestViews(page.Requests),
		NextPageToken: page.NextPageToken,
	})
}

func (a *API) handleListMyRequests(w http.ResponseWriter, r *http.Request) {
	filter := storage.RequestFilter{BuyerID: requestctx.UserIDFromContext(r.Context())}
	if rawStatus := strings.TrimSpace(r.URL.Query().Get("status")); rawStatus != "" {
		status, err := market.ParseRequestStatus(rawStatus)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.Status = status
	}

	pageSize, pageToken := listParams(r)
	page, err := a.store.ListRequests(r.Context(), filter, storage.RequestOrderNewest, pageSize, pageToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, requestListView{
		Requests:      newRequestViews(page.Requests),
		NextPageToken: page.NextPageToken,
	})
}

func (a *API) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}

	req, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := a.requestRecord(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	view := requestDetailView{requestView: newRequestView(record)}
	// Only the buyer sees the escrow summary.
	if requestctx.UserIDFromContext(r.Context()) == req.BuyerID {
		esc, err := a.store.GetEscrowByRequest(r.Context(), req.ID)
		switch {
		case err == nil:
			escView := newEscrowView(esc)
			view.Escrow = &escView
		case !errors.Is(err, storage.ErrNotFound):
			writeError(w, err)
			return
		}
	}
	writeData(w, http.StatusOK, view)
}

type updateRequestRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	BudgetCents   *int64     `json:"budget_cents"`
	CategoryID    *string    `json:"category_id"`
	Deadline      *time.Time `json:"deadline"`
	ClearDeadline bool       `json:"clear_deadline"`
}

func (a *API) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}
	var body updateRequestRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	current, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	if body.CategoryID != nil {
		if err := a.ensureActiveCategory(r.Context(), *body.CategoryID); err != nil {
			writeError(w, err)
			return
		}
	}

	liveBids, err := a.store.CountLiveBids(r.Context(), current.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := market.ApplyRequestUpdate(current, market.UpdateRequestInput{
		Title:         body.Title,
		Description:   body.Description,
		BudgetCents:   body.BudgetCents,
		CategoryID:    body.CategoryID,
		Deadline:      body.Deadline,
		ClearDeadline: body.ClearDeadline,
	}, liveBids, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateRequest(r.Context(), updated); err != nil {
		writeError(w, err)
		return
	}

	record, err := a.requestRecord(r.Context(), updated)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, newRequestView(record))
}

func (a *API) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}

	current, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	liveBids, err := a.store.CountLiveBids(r.Context(), current.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := market.CanDeleteRequest(current, liveBids); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.SoftDeleteRequest(r.Context(), current.ID, a.now()); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "request deleted", nil)
}

type createBidRequest struct {
	AmountCents  int64      `json:"amount_cents"`
	Message      string     `json:"message"`
	DeliveryDays *int       `json:"delivery_days"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (a *API) handleCreateBid(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}
	var body createBidRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	req, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	sellerID := requestctx.UserIDFromContext(r.Context())
	bid, err := market.CreateBid(market.CreateBidInput{
		SellerID:     sellerID,
		AmountCents:  body.AmountCents,
		Message:      body.Message,
		DeliveryDays: body.DeliveryDays,
		ExpiresAt:    body.ExpiresAt,
	}, req, a.now, a.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.CreateBid(r.Context(), bid); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("bid_placed")

	record := storage.BidRecord{
		Bid:                bid,
		RequestTitle:       req.Title,
		RequestBudgetCents: req.BudgetCents,
	}
	if seller, err := a.store.GetUser(r.Context(), sellerID); err == nil {
		record.SellerUsername = seller.Username
	}
	writeMessage(w, http.StatusCreated, "bid placed", newBidView(record))
}

func (a *API) handleListRequestBids(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}

	req, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}

	// The buyer sees every live bid; a bidder sees only their own.
	userID := requestctx.UserIDFromContext(r.Context())
	sellerID := ""
	if userID != req.BuyerID {
		sellerID = userID
	}

	pageSize, pageToken := listParams(r)
	page, err := a.store.ListBidsForRequest(r.Context(), req.ID, sellerID, pageSize, pageToken)
	if err != nil {
		writeError(w, err)
		return
	}
	if sellerID != "" && pageToken == "" && len(page.Bids) == 0 {
		writeError(w, errPermissionDenied)
		return
	}
	writeData(w, http.StatusOK, bidListView{
		Bids:          newBidViews(page.Bids),
		NextPageToken: page.NextPageToken,
	})
}

type acceptBidRequest struct {
	BidID string `json:"bid_id"`
}

func (a *API) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}
	var body acceptBidRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	req, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	bid, err := a.store.GetBid(r.Context(), strings.TrimSpace(body.BidID))
	if err != nil {
		writeError(w, err)
		return
	}

	accepted, err := market.AcceptBid(bid, req, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	acceptedReq, err := market.TransitionRequest(req, market.RequestStatusAccepted, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	esc, err := escrow.CreateEscrow(escrow.CreateEscrowInput{
		RequestID:   acceptedReq.ID,
		BidID:       accepted.ID,
		BuyerID:     acceptedReq.BuyerID,
		SellerID:    accepted.SellerID,
		AmountCents: accepted.AmountCents,
	}, a.now, a.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.AcceptBid(r.Context(), acceptedReq, accepted, esc); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("bid_accepted")

	record, err := a.requestRecord(r.Context(), acceptedReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "bid accepted", acceptBidView{
		Request: newRequestView(record),
		Bid: newBidView(storage.BidRecord{
			Bid:                accepted,
			RequestTitle:       acceptedReq.Title,
			RequestBudgetCents: acceptedReq.BudgetCents,
		}),
		Escrow: newEscrowView(esc),
	})
}

func (a *API) handleDeliverRequest(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}

	req, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	esc, err := a.store.GetEscrowByRequest(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeRequestStatusDisallowsOp, "request has no accepted bid"))
			return
		}
		writeError(w, err)
		return
	}
	if esc.SellerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}

	delivered, err := market.TransitionRequest(req, market.RequestStatusDelivered, a.now)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.UpdateRequest(r.Context(), delivered); err != nil {
		writeError(w, err)
		return
	}
	a.metrics.ObserveEvent("request_delivered")

	record, err := a.requestRecord(r.Context(), delivered)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "request delivered", newRequestView(record))
}

func (a *API) handleReleaseRequest(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("requestID"))
	if requestID == "" {
		writeError(w, storage.ErrNotFound)
		return
	}
	notes, err := a.optionalNotes(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := a.store.GetRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.BuyerID != requestctx.UserIDFromContext(r.Context()) {
		writeError(w, errPermissionDenied)
		return
	}
	esc, err := a.store.GetEscrowByRequest(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.New(apperrors.CodeEscrowStatusDisallowsOp, "request has no escrow"))
			return
		}
		writeError(w, err)
		return
	}
	a.settleRelease(w, r, esc, req, notes)
}

// requestRecord joins the buyer username and live bid count onto a bare
// request for single-record views.
func (a *API) requestRecord(ctx context.Context, req market.Request) (storage.RequestRecord, error) {
	record := storage.RequestRecord{Request: req}
	buyer, err := a.store.GetUser(ctx, req.BuyerID)
	if err == nil {
		record.BuyerUsername = buyer.Username
	} else if !errors.Is(err, storage.ErrNotFound) {
		return storage.RequestRecord{}, err
	}
	count, err := a.store.CountLiveBids(ctx, req.ID)
	if err != nil {
		return storage.RequestRecord{}, err
	}
	record.BidCount = count
	return record, nil
}

// ensureActiveCategory validates an optional category reference.
func (a *API) ensureActiveCategory(ctx context.Context, categoryID string) error {
	if strings.TrimSpace(categoryID) == "" {
		return nil
	}
	category, err := a.store.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "category not found")
		}
		return err
	}
	if !category.Active {
		return market.ErrCategoryInactive
	}
	return nil
}

// optionalNotes reads a {notes} body that may be absent entirely.
func (a *API) optionalNotes(r *http.Request) (string, error) {
	if r.ContentLength == 0 {
		return "", nil
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return "", err
	}
	return strings.TrimSpace(body.Notes), nil
}
