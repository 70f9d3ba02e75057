// Package seed loads YAML fixtures into a marketplace store. Fixtures go
// through the same domain constructors as the API so seeded data obeys
// every validation and lifecycle rule.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	"github.com/sokonihq/sokoni/internal/platform/id"
	"github.com/sokonihq/sokoni/internal/storage"
	"github.com/sokonihq/sokoni/internal/user"
)

// paymentAttempts bounds retries against the simulated processor when a
// fixture asks for a locked escrow. Failed payments legitimately retry
// through pending, so a handful of attempts makes seeding reliable
// without forcing the outcome.
const paymentAttempts = 5

// Fixture is the root of a seed file.
type Fixture struct {
	Users      []UserFixture     `yaml:"users"`
	Categories []CategoryFixture `yaml:"categories"`
	Requests   []RequestFixture  `yaml:"requests"`
	Bids       []BidFixture      `yaml:"bids"`
	Accepts    []AcceptFixture   `yaml:"accepts"`
}

// UserFixture seeds one account. Existing accounts (same email) are
// reused, so fixtures can be applied repeatedly.
type UserFixture struct {
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Bio      string `yaml:"bio"`
	Location string `yaml:"location"`
}

// CategoryFixture seeds one category. Existing categories (same name)
// are reused.
type CategoryFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// RequestFixture seeds one buyer request. Ref names the request for
// cross-references within the fixture; buyer and category refer to a
// user email and category name seeded above (or already present).
type RequestFixture struct {
	Ref         string     `yaml:"ref"`
	Buyer       string     `yaml:"buyer"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	BudgetCents int64      `yaml:"budget_cents"`
	Category    string     `yaml:"category"`
	Deadline    *time.Time `yaml:"deadline"`
}

// BidFixture seeds one bid against a request ref.
type BidFixture struct {
	Request      string     `yaml:"request"`
	Seller       string     `yaml:"seller"`
	AmountCents  int64      `yaml:"amount_cents"`
	Message      string     `yaml:"message"`
	DeliveryDays int        `yaml:"delivery_days"`
	ExpiresAt    *time.Time `yaml:"expires_at"`
}

// AcceptFixture accepts the named seller's bid on a request ref and,
// when Pay is set, runs the simulated payment to lock the escrow.
type AcceptFixture struct {
	Request       string `yaml:"request"`
	Seller        string `yaml:"seller"`
	Pay           bool   `yaml:"pay"`
	PaymentMethod string `yaml:"payment_method"`
}

// Store is the storage surface seeding needs.
type Store interface {
	storage.UserStore
	storage.CategoryStore
	storage.RequestStore
	storage.BidStore
	storage.EscrowStore
	storage.MarketTxStore
}

// Options tunes fixture application. Zero values mean real time, real
// IDs, and a time-seeded payment source.
type Options struct {
	Now         func() time.Time
	NewID       func() (string, error)
	PaymentRand *rand.Rand
}

// Result counts what one Apply call created.
type Result struct {
	Users      int `json:"users"`
	Categories int `json:"categories"`
	Requests   int `json:"requests"`
	Bids       int `json:"bids"`
	Accepted   int `json:"accepted"`
	Paid       int `json:"paid"`
}

// Load reads and parses a fixture file.
func Load(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML.
func Parse(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// Apply loads the fixture into the store in dependency order: users,
// categories, requests, bids, then accept (and optionally pay) steps.
func Apply(ctx context.Context, store Store, fixture Fixture, opts Options) (Result, error) {
	if store == nil {
		return Result{}, errors.New("store is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = id.NewID
	}

	var result Result

	usersByEmail := make(map[string]user.User)
	for _, f := range fixture.Users {
		u, created, err := seedUser(ctx, store, f, now, newID)
		if err != nil {
			return result, fmt.Errorf("seed user %q: %w", f.Email, err)
		}
		usersByEmail[u.Email] = u
		if created {
			result.Users++
		}
	}

	categoriesByName := make(map[string]market.Category)
	for _, f := range fixture.Categories {
		c, created, err := seedCategory(ctx, store, f, now, newID)
		if err != nil {
			return result, fmt.Errorf("seed category %q: %w", f.Name, err)
		}
		categoriesByName[c.Name] = c
		if created {
			result.Categories++
		}
	}

	requestsByRef := make(map[string]market.Request)
	for _, f := range fixture.Requests {
		req, err := seedRequest(ctx, store, f, usersByEmail, categoriesByName, now, newID)
		if err != nil {
			return result, fmt.Errorf("seed request %q: %w", f.Ref, err)
		}
		requestsByRef[f.Ref] = req
		result.Requests++
	}

	// Bids are keyed by request ref plus seller email for accept steps.
	bidsByKey := make(map[string]market.Bid)
	for _, f := range fixture.Bids {
		bid, err := seedBid(ctx, store, f, requestsByRef, usersByEmail, now, newID)
		if err != nil {
			return result, fmt.Errorf("seed bid on %q: %w", f.Request, err)
		}
		bidsByKey[bidKey(f.Request, f.Seller)] = bid
		result.Bids++
	}

	for _, f := range fixture.Accepts {
		paid, err := seedAccept(ctx, store, f, requestsByRef, bidsByKey, now, newID, opts.PaymentRand)
		if err != nil {
			return result, fmt.Errorf("accept bid on %q: %w", f.Request, err)
		}
		result.Accepted++
		if paid {
			result.Paid++
		}
	}

	return result, nil
}

func seedUser(ctx context.Context, store Store, f UserFixture, now func() time.Time, newID func() (string, error)) (user.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(f.Email))
	if existing, err := store.GetUserByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, false, err
	}

	u, err := user.CreateUser(user.CreateUserInput{
		Email:           f.Email,
		Username:        f.Username,
		Password:        f.Password,
		PasswordConfirm: f.Password,
		Bio:             f.Bio,
		Location:        f.Location,
	}, now, newID)
	if err != nil {
		return user.User{}, false, err
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return user.User{}, false, err
	}
	return u, true, nil
}

func seedCategory(ctx context.Context, store Store, f CategoryFixture, now func() time.Time, newID func() (string, error)) (market.Category, bool, error) {
	name := strings.TrimSpace(f.Name)
	if existing, err := store.GetCategoryByName(ctx, name); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return market.Category{}, false, err
	}

	c, err := market.CreateCategory(market.CreateCategoryInput{
		Name:        f.Name,
		Description: f.Description,
	}, now, newID)
	if err != nil {
		return market.Category{}, false, err
	}
	if err := store.CreateCategory(ctx, c); err != nil {
		return market.Category{}, false, err
	}
	return c, true, nil
}

func seedRequest(ctx context.Context, store Store, f RequestFixture, users map[string]user.User, categories map[string]market.Category, now func() time.Time, newID func() (string, error)) (market.Request, error) {
	buyer, err := resolveUser(ctx, store, users, f.Buyer)
	if err != nil {
		return market.Request{}, err
	}
	var categoryID string
	if f.Category != "" {
		category, err := resolveCategory(ctx, store, categories, f.Category)
		if err != nil {
			return market.Request{}, err
		}
		categoryID = category.ID
	}

	req, err := market.CreateRequest(market.CreateRequestInput{
		BuyerID:     buyer.ID,
		Title:       f.Title,
		Description: f.Description,
		BudgetCents: f.BudgetCents,
		CategoryID:  categoryID,
		Deadline:    f.Deadline,
	}, now, newID)
	if err != nil {
		return market.Request{}, err
	}
	if err := store.CreateRequest(ctx, req); err != nil {
		return market.Request{}, err
	}
	return req, nil
}

func seedBid(ctx context.Context, store Store, f BidFixture, requests map[string]market.Request, users map[string]user.User, now func() time.Time, newID func() (string, error)) (market.Bid, error) {
	req, ok := requests[f.Request]
	if !ok {
		return market.Bid{}, fmt.Errorf("unknown request ref %q", f.Request)
	}
	seller, err := resolveUser(ctx, store, users, f.Seller)
	if err != nil {
		return market.Bid{}, err
	}

	var deliveryDays *int
	if f.DeliveryDays > 0 {
		days := f.DeliveryDays
		deliveryDays = &days
	}
	bid, err := market.CreateBid(market.CreateBidInput{
		SellerID:     seller.ID,
		AmountCents:  f.AmountCents,
		Message:      f.Message,
		DeliveryDays: deliveryDays,
		ExpiresAt:    f.ExpiresAt,
	}, req, now, newID)
	if err != nil {
		return market.Bid{}, err
	}
	if err := store.CreateBid(ctx, bid); err != nil {
		return market.Bid{}, err
	}
	return bid, nil
}

func seedAccept(ctx context.Context, store Store, f AcceptFixture, requests map[string]market.Request, bids map[string]market.Bid, now func() time.Time, newID func() (string, error), rng *rand.Rand) (bool, error) {
	req, ok := requests[f.Request]
	if !ok {
		return false, fmt.Errorf("unknown request ref %q", f.Request)
	}
	bid, ok := bids[bidKey(f.Request, f.Seller)]
	if !ok {
		return false, fmt.Errorf("no seeded bid by %q on %q", f.Seller, f.Request)
	}

	accepted, err := market.AcceptBid(bid, req, now)
	if err != nil {
		return false, err
	}
	acceptedReq, err := market.TransitionRequest(req, market.RequestStatusAccepted, now)
	if err != nil {
		return false, err
	}
	esc, err := escrow.CreateEscrow(escrow.CreateEscrowInput{
		RequestID:   acceptedReq.ID,
		BidID:       accepted.ID,
		BuyerID:     acceptedReq.BuyerID,
		SellerID:    accepted.SellerID,
		AmountCents: accepted.AmountCents,
	}, now, newID)
	if err != nil {
		return false, err
	}
	if err := store.AcceptBid(ctx, acceptedReq, accepted, esc); err != nil {
		return false, err
	}
	requests[f.Request] = acceptedReq

	if !f.Pay {
		return false, nil
	}

	method := escrow.DefaultMethod
	if f.PaymentMethod != "" {
		method, err = escrow.ParsePaymentMethod(f.PaymentMethod)
		if err != nil {
			return false, err
		}
	}
	for attempt := 0; attempt < paymentAttempts; attempt++ {
		processed, outcome, err := escrow.ProcessPayment(esc, method, now, rng)
		if err != nil {
			return false, err
		}
		esc = processed
		if err := store.UpdateEscrow(ctx, esc); err != nil {
			return false, err
		}
		if outcome.Success {
			return true, nil
		}
	}
	return false, fmt.Errorf("payment for %q kept declining after %d attempts", f.Request, paymentAttempts)
}

func resolveUser(ctx context.Context, store Store, users map[string]user.User, email string) (user.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if u, ok := users[key]; ok {
		return u, nil
	}
	u, err := store.GetUserByEmail(ctx, key)
	if err != nil {
		return user.User{}, fmt.Errorf("unknown user %q: %w", email, err)
	}
	users[key] = u
	return u, nil
}

func resolveCategory(ctx context.Context, store Store, categories map[string]market.Category, name string) (market.Category, error) {
	key := strings.TrimSpace(name)
	if c, ok := categories[key]; ok {
		return c, nil
	}
	c, err := store.GetCategoryByName(ctx, key)
	if err != nil {
		return market.Category{}, fmt.Errorf("unknown category %q: %w", name, err)
	}
	categories[key] = c
	return c, nil
}

func bidKey(requestRef, sellerEmail string) string {
	return requestRef + "\x00" + strings.ToLower(strings.TrimSpace(sellerEmail))
}
