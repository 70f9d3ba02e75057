package api

import (
	"time"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	"github.com/sokonihq/sokoni/internal/storage"
	"github.com/sokonihq/sokoni/internal/token"
	"github.com/sokonihq/sokoni/internal/user"
)

// View types shape domain records into JSON payloads. Password hashes and
// payment tokens never leave through the general views; the payment token
// surfaces only in the payment response.

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserView(u user.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Bio:       u.Bio,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type tokenPairView struct {
	TokenType        string    `json:"token_type"`
	Access           string    `json:"access"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	Refresh          string    `json:"refresh"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func newTokenPairView(access, refresh token.Issued) tokenPairView {
	return tokenPairView{
		TokenType:        "Bearer",
		Access:           access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		Refresh:          refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}
}

type authView struct {
	User   userView      `json:"user"`
	Tokens tokenPairView `json:"tokens"`
}

type tokenRefreshView struct {
	Tokens tokenPairView `json:"tokens"`
}

type profileView struct {
	User userView `json:"user"`
}

type categoryView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newCategoryView(category market.Category) categoryView {
	return categoryView{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Active:      category.Active,
		CreatedAt:   category.CreatedAt,
	}
}

type categoryListView struct {
	Categories []categoryView `json:"categories"`
}

type requestView struct {
	ID            string     `json:"id"`
	BuyerID       string     `json:"buyer_id"`
	BuyerUsername string     `json:"buyer_username,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	BudgetCents   int64      `json:"budget_cents"`
	CategoryID    string     `json:"category_id,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	Status        string     `json:"status"`
	BidCount      int        `json:"bid_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newRequestView(record storage.RequestRecord) requestView {
	return requestView{
		ID:            record.ID,
		BuyerID:       record.BuyerID,
		BuyerUsername: record.BuyerUsername,
		Title:         record.Title,
		Description:   record.Description,
		BudgetCents:   record.BudgetCents,
		CategoryID:    record.CategoryID,
		Deadline:      record.Deadline,
		Status:        string(record.Status),
		BidCount:      record.BidCount,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func newRequestViews(records []storage.RequestRecord) []requestView {
	views := make([]requestView, 0, len(records))
	for _, record := range records {
		views = append(views, newRequestView(record))
	}
	return views
}

// requestDetailView adds the buyer-only escrow summary to a request.
type requestDetailView struct {
	requestView
	Escrow *escrowView `json:"escrow,omitempty"`
}

type requestListView struct {
	Requests      []requestView `json:"requests"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type bidView struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"request_id"`
	RequestTitle   string     `json:"request_title,omitempty"`
	SellerID       string     `json:"seller_id"`
	SellerUsername string     `json:"seller_username,omitempty"`
	AmountCents    int64      `json:"amount_cents"`
	Message        string     `json:"message"`
	DeliveryDays   *int       `json:"delivery_days,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Accepted       bool       `json:"accepted"`
	SavingsCents   int64      `json:"savings_cents"`
	SavingsPercent float64    `json:"savings_percent"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newBidView(record storage.BidRecord) bidView {
	view := bidView{
		ID:             record.ID,
		RequestID:      record.RequestID,
		RequestTitle:   record.RequestTitle,
		SellerID:       record.SellerID,
		SellerUsername: record.SellerUsername,
		AmountCents:    record.AmountCents,
		Message:        record.Message,
		DeliveryDays:   record.DeliveryDays,
		ExpiresAt:      record.ExpiresAt,
		Accepted:       record.Accepted,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
	if record.RequestBudgetCents > 0 {
		budget := market.Request{BudgetCents: record.RequestBudgetCents}
		view.SavingsCents = market.SavingsCents(record.Bid, budget)
		view.SavingsPercent = market.SavingsPercent(record.Bid, budget)
	}
	return view
}

func newBidViews(records []storage.BidRecord) []bidView {
	views := make([]bidView, 0, len(records))
	for _, record := range records {
		views = append(views, newBidView(record))
	}
	return views
}

type bidListView struct {
	Bids          []bidView `json:"bids"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// acceptBidView carries all three records an acceptance touches.
type acceptBidView struct {
	Request requestView `json:"request"`
	Bid     bidView     `json:"bid"`
	Escrow  escrowView  `json:"escrow"`
}

type escrowView struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"request_id"`
	BidID            string     `json:"bid_id"`
	BuyerID          string     `json:"buyer_id"`
	SellerID         string     `json:"seller_id"`
	AmountCents      int64      `json:"amount_cents"`
	FeeCents         int64      `json:"fee_cents"`
	TotalCents       int64      `json:"total_cents"`
	PaymentMethod    string     `json:"payment_method"`
	Status           string     `json:"status"`
	PaymentReference string     `json:"payment_reference"`
	Notes            string     `json:"notes,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	LockedAt         *time.Time `json:"locked_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func newEscrowView(esc escrow.Escrow) escrowView {
	return escrowView{
		ID:               esc.ID,
		RequestID:        esc.RequestID,
		BidID:            esc.BidID,
		BuyerID:          esc.BuyerID,
		SellerID:         esc.SellerID,
		AmountCents:      esc.AmountCents,
		FeeCents:         esc.FeeCents,
		TotalCents:       esc.TotalCents,
		PaymentMethod:    string(esc.PaymentMethod),
		Status:           string(esc.Status),
		PaymentReference: esc.PaymentReference,
		Notes:            esc.Notes,
		ExpiresAt:        esc.ExpiresAt,
		LockedAt:         esc.LockedAt,
		ReleasedAt:       esc.ReleasedAt,
		CreatedAt:        esc.CreatedAt,
		UpdatedAt:        esc.UpdatedAt,
	}
}

func newEscrowViews(escrows []escrow.Escrow) []escrowView {
	views := make([]escrowView, 0, len(escrows))
	for _, esc := range escrows {
		views = append(views, newEscrowView(esc))
	}
	return views
}

type escrowListView struct {
	Escrows       []escrowView `json:"escrows"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

// escrowSettleView pairs an escrow state change with the request it
// moved in the same transaction.
type escrowSettleView struct {
	Escrow  escrowView  `json:"escrow"`
	Request requestView `json:"request"`
}

type escrowStatusView struct {
	Status     string     `json:"status"`
	LockedAt   *time.Time `json:"locked_at,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

func newEscrowStatusView(esc escrow.Escrow) escrowStatusView {
	return escrowStatusView{
		Status:     string(esc.Status),
		LockedAt:   esc.LockedAt,
		ReleasedAt: esc.ReleasedAt,
		ExpiresAt:  esc.ExpiresAt,
	}
}

// paymentView is the simulated processor's response: outcome, the escrow
// record after the attempt, and the gateway identifiers.
type paymentView struct {
	Escrow           escrowView `json:"escrow"`
	PaymentReference string     `json:"payment_reference"`
	PaymentToken     string     `json:"payment_token"`
	Processor        string     `json:"processor"`
	FailureReason    string     `json:"failure_reason,omitempty"`
}

type paymentMethodView struct {
	Method              string   `json:"method"`
	DisplayName         string   `json:"display_name"`
	ProcessorKey        string   `json:"processor_key"`
	Processor           string   `json:"processor"`
	RequiredFields      []string `json:"required_fields"`
	SupportedCurrencies []string `json:"supported_currencies"`
}

type paymentMethodsView struct {
	Methods       []paymentMethodView `json:"methods"`
	DefaultMethod string              `json:"default_method"`
}

func newPaymentMethodsView() paymentMethodsView {
	catalog := escrow.Catalog()
	methods := make([]paymentMethodView, 0, len(catalog))
	for _, info := range catalog {
		methods = append(methods, paymentMethodView{
			Method:              string(info.Method),
			DisplayName:         info.DisplayName,
			ProcessorKey:        info.ProcessorKey,
			Processor:           info.Processor,
			RequiredFields:      info.RequiredFields,
			SupportedCurrencies: info.SupportedCurrencies,
		})
	}
	return paymentMethodsView{
		Methods:       methods,
		DefaultMethod: string(escrow.DefaultMethod),
	}
}

type escrowStatisticsView struct {
	TotalEscrows  int            `json:"total_escrows"`
	ByStatus      map[string]int `json:"by_status"`
	AsBuyer       int            `json:"as_buyer"`
	AsSeller      int            `json:"as_seller"`
	TotalCents    int64          `json:"total_cents"`
	ReleasedCents int64          `json:"released_cents"`
	PendingCents  int64          `json:"pending_cents"`
	HeldCents     int64          `json:"held_cents"`
}

func newEscrowStatisticsView(stats storage.EscrowStatistics) escrowStatisticsView {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return escrowStatisticsView{
		TotalEscrows:  stats.TotalEscrows,
		ByStatus:      byStatus,
		AsBuyer:       stats.AsBuyer,
		AsSeller:      stats.AsSeller,
		TotalCents:    stats.TotalCents,
		ReleasedCents: stats.ReleasedCents,
		PendingCents:  stats.PendingCents,
		HeldCents:     stats.HeldCents,
	}
}

type buyerDashboardView struct {
	TotalRequests     int           `json:"total_requests"`
	OpenRequests      int           `json:"open_requests"`
	CompletedRequests int           `json:"completed_requests"`
	TotalSpentCents   int64         `json:"total_spent_cents"`
	RecentRequests    []requestView `json:"recent_requests"`
	RecentBids        []bidView     `json:"recent_bids"`
}

func newBuyerDashboardView(dashboard storage.BuyerDashboard) buyerDashboardView {
	return buyerDashboardView{
		TotalRequests:     dashboard.TotalRequests,
		OpenRequests:      dashboard.OpenRequests,
		CompletedRequests: dashboard.CompletedRequests,
		TotalSpentCents:   dashboard.TotalSpentCents,
		RecentRequests:    newRequestViews(dashboard.RecentRequests),
		RecentBids:        newBidViews(dashboard.RecentBids),
	}
}

type sellerDashboardView struct {
	TotalBids            int           `json:"total_bids"`
	AcceptedBids         int           `json:"accepted_bids"`
	TotalEarnedCents     int64         `json:"total_earned_cents"`
	PendingEarningsCents int64         `json:"pending_earnings_cents"`
	RecentBids           []bidView     `json:"recent_bids"`
	AvailableRequests    []requestView `json:"available_requests"`
}

func newSellerDashboardView(dashboard storage.SellerDashboard) sellerDashboardView {
	return sellerDashboardView{
		TotalBids:            dashboard.TotalBids,
		AcceptedBids:         dashboard.AcceptedBids,
		TotalEarnedCents:     dashboard.TotalEarnedCents,
		PendingEarningsCents: dashboard.PendingEarningsCents,
		RecentBids:           newBidViews(dashboard.RecentBids),
		AvailableRequests:    newRequestViews(dashboard.AvailableRequests),
	}
}
