package storage

import (
	"context"
	"time"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")
)

// Session is one issued refresh token. The session ID doubles as the
// token's jti; a session is live while RevokedAt is nil and ExpiresAt is
// in the future.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Live reports whether the session can still mint access tokens.
func (s Session) Live(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// UserStore persists marketplace accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) error
}

// SessionStore persists refresh-token sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// CategoryStore persists request categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category market.Category) error
	GetCategory(ctx context.Context, id string) (market.Category, error)
	GetCategoryByName(ctx context.Context, name string) (market.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]market.Category, error)
	SetCategoryActive(ctx context.Context, id string, active bool) error
}

// RequestOrder names a request listing order.
type RequestOrder string

const (
	RequestOrderNewest     RequestOrder = "created_desc"
	RequestOrderBudgetAsc  RequestOrder = "budget_asc"
	RequestOrderBudgetDesc RequestOrder = "budget_desc"
)

// RequestFilter narrows a request listing. Zero values mean no
// constraint. OnlyBiddable restricts to open, undeleted requests whose
// deadline has not passed as of Now. ExcludeBidderID drops requests the
// given seller already has a live bid on.
type RequestFilter struct {
	Status          market.RequestStatus
	BuyerID         string
	ExcludeBuyerID  string
	ExcludeBidderID string
	CategoryID      string
	MinBudgetCents  int64
	MaxBudgetCents  int64
	Search          string
	OnlyBiddable    bool
	Now             time.Time
}

// RequestRecord is a request joined with listing context.
type RequestRecord struct {
	market.Request
	BuyerUsername string
	BidCount      int
}

// RequestPage is one page of request records.
type RequestPage struct {
	Requests      []RequestRecord
	NextPageToken string
}

// RequestStore persists buyer requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, req market.Request) error
	GetRequest(ctx context.Context, id string) (market.Request, error)
	UpdateRequest(ctx context.Context, req market.Request) error
	SoftDeleteRequest(ctx context.Context, id string, at time.Time) error
	ListRequests(ctx context.Context, filter RequestFilter, order RequestOrder, pageSize int, pageToken string) (RequestPage, error)
}

// BidRecord is a bid joined with listing context. The request budget
// rides along so savings can be derived without a second lookup.
type BidRecord struct {
	market.Bid
	SellerUsername     string
	RequestTitle       string
	RequestBudgetCents int64
}

// BidPage is one page of bid records.
type BidPage struct {
	Bids          []BidRecord
	NextPageToken string
}

// BidStore persists seller bids.
type BidStore interface {
	CreateBid(ctx context.Context, bid market.Bid) error
	GetBid(ctx context.Context, id string) (market.Bid, error)
	UpdateBid(ctx context.Context, bid market.Bid) error
	SoftDeleteBid(ctx context.Context, id string, at time.Time) error
	// ListBidsForRequest orders by amount ascending then age. A
	// non-empty sellerID restricts to that seller's bids.
	ListBidsForRequest(ctx context.Context, requestID, sellerID string, pageSize int, pageToken string) (BidPage, error)
	// ListBidsForSeller orders newest first.
	ListBidsForSeller(ctx context.Context, sellerID string, pageSize int, pageToken string) (BidPage, error)
	CountLiveBids(ctx context.Context, requestID string) (int, error)
}

// EscrowStatistics aggregates a user's escrows across both roles.
// PendingCents sums amounts not yet settled (pending and locked).
type EscrowStatistics struct {
	TotalEscrows  int
	ByStatus      map[escrow.Status]int
	AsBuyer       int
	AsSeller      int
	TotalCents    int64
	ReleasedCents int64
	PendingCents  int64
	HeldCents     int64
}

// EscrowPage is one page of escrow records.
type EscrowPage struct {
	Escrows       []escrow.Escrow
	NextPageToken string
}

// EscrowStore persists simulated fund custody records.
type EscrowStore interface {
	CreateEscrow(ctx context.Context, esc escrow.Escrow) error
	GetEscrow(ctx context.Context, id string) (escrow.Escrow, error)
	GetEscrowByRequest(ctx context.Context, requestID string) (escrow.Escrow, error)
	UpdateEscrow(ctx context.Context, esc escrow.Escrow) error
	// ListEscrowsForUser returns escrows where the user is buyer or
	// seller, newest first.
	ListEscrowsForUser(ctx context.Context, userID string, pageSize int, pageToken string) (EscrowPage, error)
	EscrowStatistics(ctx context.Context, userID string) (EscrowStatistics, error)
}

// MarketTxStore groups the multi-record transitions that must commit
// atomically.
type MarketTxStore interface {
	// AcceptBid persists a bid acceptance: the accepted bid, the
	// request moved to accepted, and the freshly opened escrow, all in
	// one transaction.
	AcceptBid(ctx context.Context, req market.Request, bid market.Bid, esc escrow.Escrow) error
	// SettleEscrow persists an escrow state change together with its
	// paired request in one transaction.
	SettleEscrow(ctx context.Context, esc escrow.Escrow, req market.Request) error
}

// BuyerDashboard aggregates a buyer's view of their marketplace
// activity.
type BuyerDashboard struct {
	TotalRequests     int
	OpenRequests      int
	CompletedRequests int
	TotalSpentCents   int64
	RecentRequests    []RequestRecord
	RecentBids        []BidRecord
}

// SellerDashboard aggregates a seller's view of their marketplace
// activity.
type SellerDashboard struct {
	TotalBids            int
	AcceptedBids         int
	TotalEarnedCents     int64
	PendingEarningsCents int64
	RecentBids           []BidRecord
	AvailableRequests    []RequestRecord
}

// DashboardStore computes per-user dashboard aggregates.
type DashboardStore interface {
	BuyerDashboard(ctx context.Context, userID string, now time.Time) (BuyerDashboard, error)
	SellerDashboard(ctx context.Context, userID string, now time.Time) (SellerDashboard, error)
}

// AdminStore serves operator listings that span all users. These back
// the CLI, not the HTTP API.
type AdminStore interface {
	// ListUsers returns every account, oldest first.
	ListUsers(ctx context.Context) ([]user.User, error)
	// ListEscrows returns every escrow, newest first. A zero status
	// means no filter.
	ListEscrows(ctx context.Context, status escrow.Status) ([]escrow.Escrow, error)
}
