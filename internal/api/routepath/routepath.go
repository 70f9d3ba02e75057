// Package routepath stores canonical HTTP paths for the JSON API.
package routepath

import (
	"net/url"
	"strings"
)

const (
	Health  = "/up"
	Metrics = "/metrics"

	APIPrefix = "/api/v1"

	AuthRegister = APIPrefix + "/auth/register"
	AuthLogin    = APIPrefix + "/auth/login"
	AuthRefresh  = APIPrefix + "/auth/refresh"
	AuthLogout   = APIPrefix + "/auth/logout"
	AuthProfile  = APIPrefix + "/auth/profile"

	Requests                = APIPrefix + "/requests"
	RequestsMine            = Requests + "/mine"
	RequestPattern          = Requests + "/{requestID}"
	RequestBidsPattern      = RequestPattern + "/bids"
	RequestAcceptBidPattern = RequestPattern + "/accept-bid"
	RequestDeliverPattern   = RequestPattern + "/deliver"
	RequestReleasePattern   = RequestPattern + "/release"

	Bids       = APIPrefix + "/bids"
	BidsMine   = Bids + "/mine"
	BidPattern = Bids + "/{bidID}"

	Escrows              = APIPrefix + "/escrow"
	EscrowPaymentMethods = Escrows + "/payment-methods"
	EscrowStatistics     = Escrows + "/statistics"
	EscrowPattern        = Escrows + "/{escrowID}"
	EscrowStatusPattern  = EscrowPattern + "/status"
	EscrowPayPattern     = EscrowPattern + "/pay"
	EscrowReleasePattern = EscrowPattern + "/release"
	EscrowDisputePattern = EscrowPattern + "/dispute"
	EscrowRefundPattern  = EscrowPattern + "/refund"

	Categories = APIPrefix + "/categories"

	DashboardBuyer  = APIPrefix + "/dashboard/buyer"
	DashboardSeller = APIPrefix + "/dashboard/seller"
)

// Request returns the detail route for one request.
func Request(requestID string) string {
	return Requests + "/" + escapeSegment(requestID)
}

// RequestBids returns the bid listing route for one request.
func RequestBids(requestID string) string {
	return Request(requestID) + "/bids"
}

// RequestAcceptBid returns the accept-bid route for one request.
func RequestAcceptBid(requestID string) string {
	return Request(requestID) + "/accept-bid"
}

// RequestDeliver returns the deliver route for one request.
func RequestDeliver(requestID string) string {
	return Request(requestID) + "/deliver"
}

// RequestRelease returns the release route for one request.
func RequestRelease(requestID string) string {
	return Request(requestID) + "/release"
}

// Bid returns the detail route for one bid.
func Bid(bidID string) string {
	return Bids + "/" + escapeSegment(bidID)
}

// Escrow returns the detail route for one escrow.
func Escrow(escrowID string) string {
	return Escrows + "/" + escapeSegment(escrowID)
}

// EscrowStatus returns the status route for one escrow.
func EscrowStatus(escrowID string) string {
	return Escrow(escrowID) + "/status"
}

// EscrowPay returns the pay route for one escrow.
func EscrowPay(escrowID string) string {
	return Escrow(escrowID) + "/pay"
}

// EscrowRelease returns the release route for one escrow.
func EscrowRelease(escrowID string) string {
	return Escrow(escrowID) + "/release"
}

// EscrowDispute returns the dispute route for one escrow.
func EscrowDispute(escrowID string) string {
	return Escrow(escrowID) + "/dispute"
}

// EscrowRefund returns the refund route for one escrow.
func EscrowRefund(escrowID string) string {
	return Escrow(escrowID) + "/refund"
}

func escapeSegment(raw string) string {
	return url.PathEscape(strings.TrimSpace(raw))
}
