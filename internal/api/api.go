package api

import (
	"errors"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/sokonihq/sokoni/internal/api/routepath"
	"github.com/sokonihq/sokoni/internal/platform/id"
	"github.com/sokonihq/sokoni/internal/platform/metrics"
	"github.com/sokonihq/sokoni/internal/platform/ratelimit"
	"github.com/sokonihq/sokoni/internal/storage"
	"github.com/sokonihq/sokoni/internal/token"
)

// Store is the persistence surface the API depends on. The sqlite store
// satisfies it in production; tests may substitute any implementation.
type Store interface {
	storage.UserStore
	storage.SessionStore
	storage.CategoryStore
	storage.RequestStore
	storage.BidStore
	storage.EscrowStore
	storage.MarketTxStore
	storage.DashboardStore
}

// Config carries API dependencies. Now, NewID, and PaymentRand are
// injectable for tests; nil values fall back to the real clock, random
// IDs, and a time-seeded payment source.
type Config struct {
	Store        Store
	Tokens       token.Config
	Metrics      *metrics.Metrics
	AuthLimiter  *ratelimit.Limiter
	CookieSecure bool
	Now          func() time.Time
	NewID        func() (string, error)
	PaymentRand  *rand.Rand
}

// API serves the marketplace HTTP surface.
type API struct {
	store        Store
	tokens       token.Config
	metrics      *metrics.Metrics
	authLimiter  *ratelimit.Limiter
	cookieSecure bool
	now          func() time.Time
	newID        func() (string, error)
	paymentRand  *rand.Rand
}

// New builds the API from its dependencies.
func New(cfg Config) (*API, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}
	tokens := cfg.Tokens
	if tokens.Now == nil {
		tokens.Now = now
	}
	return &API{
		store:        cfg.Store,
		tokens:       tokens,
		metrics:      cfg.Metrics,
		authLimiter:  cfg.AuthLimiter,
		cookieSecure: cfg.CookieSecure,
		now:          now,
		newID:        newID,
		paymentRand:  cfg.PaymentRand,
	}, nil
}

// Routes builds the router with the standard middleware chain. Unknown
// methods on known paths get 405 with an Allow header from the mux.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(http.MethodGet+" "+routepath.Health, handleHealth)
	if a.metrics != nil {
		mux.Handle(http.MethodGet+" "+routepath.Metrics, a.metrics.Handler())
	}

	// Credential endpoints are throttled per client IP.
	mux.HandleFunc(http.MethodPost+" "+routepath.AuthRegister, a.throttle(a.handleRegister))
	mux.HandleFunc(http.MethodPost+" "+routepath.AuthLogin, a.throttle(a.handleLogin))
	mux.HandleFunc(http.MethodPost+" "+routepath.AuthRefresh, a.throttle(a.handleRefresh))
	mux.HandleFunc(http.MethodPost+" "+routepath.AuthLogout, a.requireUser(a.handleLogout))
	mux.HandleFunc(http.MethodGet+" "+routepath.AuthProfile, a.requireUser(a.handleProfile))
	mux.HandleFunc(http.MethodPatch+" "+routepath.AuthProfile, a.requireUser(a.handleProfileUpdate))

	mux.HandleFunc(http.MethodPost+" "+routepath.Requests, a.requireUser(a.handleCreateRequest))
	mux.HandleFunc(http.MethodGet+" "+routepath.Requests, a.handleListRequests)
	mux.HandleFunc(http.MethodGet+" "+routepath.RequestsMine, a.requireUser(a.handleListMyRequests))
	mux.HandleFunc(http.MethodGet+" "+routepath.RequestPattern, a.handleGetRequest)
	mux.HandleFunc(http.MethodPatch+" "+routepath.RequestPattern, a.requireUser(a.handleUpdateRequest))
	mux.HandleFunc(http.MethodDelete+" "+routepath.RequestPattern, a.requireUser(a.handleDeleteRequest))
	mux.HandleFunc(http.MethodPost+" "+routepath.RequestBidsPattern, a.requireUser(a.handleCreateBid))
	mux.HandleFunc(http.MethodGet+" "+routepath.RequestBidsPattern, a.requireUser(a.handleListRequestBids))
	mux.HandleFunc(http.MethodPost+" "+routepath.RequestAcceptBidPattern, a.requireUser(a.handleAcceptBid))
	mux.HandleFunc(http.MethodPost+" "+routepath.RequestDeliverPattern, a.requireUser(a.handleDeliverRequest))
	mux.HandleFunc(http.MethodPost+" "+routepath.RequestReleasePattern, a.requireUser(a.handleReleaseRequest))

	mux.HandleFunc(http.MethodGet+" "+routepath.BidsMine, a.requireUser(a.handleListMyBids))
	mux.HandleFunc(http.MethodGet+" "+routepath.BidPattern, a.requireUser(a.handleGetBid))
	mux.HandleFunc(http.MethodPatch+" "+routepath.BidPattern, a.requireUser(a.handleUpdateBid))
	mux.HandleFunc(http.MethodDelete+" "+routepath.BidPattern, a.requireUser(a.handleWithdrawBid))

	mux.HandleFunc(http.MethodPost+" "+routepath.Escrows, a.requireUser(a.handleCreateEscrow))
	mux.HandleFunc(http.MethodGet+" "+routepath.Escrows, a.requireUser(a.handleListEscrows))
	mux.HandleFunc(http.MethodGet+" "+routepath.EscrowPaymentMethods, a.handlePaymentMethods)
	mux.HandleFunc(http.MethodGet+" "+routepath.EscrowStatistics, a.requireUser(a.handleEscrowStatistics))
	mux.HandleFunc(http.MethodGet+" "+routepath.EscrowPattern, a.requireUser(a.handleGetEscrow))
	mux.HandleFunc(http.MethodGet+" "+routepath.EscrowStatusPattern, a.requireUser(a.handleEscrowStatus))
	mux.HandleFunc(http.MethodPost+" "+routepath.EscrowPayPattern, a.requireUser(a.handlePayEscrow))
	mux.HandleFunc(http.MethodPost+" "+routepath.EscrowReleasePattern, a.requireUser(a.handleReleaseEscrow))
	mux.HandleFunc(http.MethodPost+" "+routepath.EscrowDisputePattern, a.requireUser(a.handleDisputeEscrow))
	mux.HandleFunc(http.MethodPost+" "+routepath.EscrowRefundPattern, a.requireUser(a.handleRefundEscrow))

	mux.HandleFunc(http.MethodGet+" "+routepath.Categories, a.handleListCategories)

	mux.HandleFunc(http.MethodGet+" "+routepath.DashboardBuyer, a.requireUser(a.handleBuyerDashboard))
	mux.HandleFunc(http.MethodGet+" "+routepath.DashboardSeller, a.requireUser(a.handleSellerDashboard))

	// instrument sits innermost so it sees the route pattern the mux
	// stamps on the request it actually serves.
	return Chain(mux,
		RecoverPanic(),
		RequestID(),
		RequestLogger(log.Default()),
		a.authenticate(),
		a.instrument(),
	)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
