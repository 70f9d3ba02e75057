package ctl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	"github.com/sokonihq/sokoni/internal/storage/sqlite"
	"github.com/sokonihq/sokoni/internal/user"
)

func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// seedMarket builds a database with one accepted bid and its escrow.
func seedMarket(t *testing.T, dbPath string) (market.Request, market.Bid, escrow.Escrow) {
	t.Helper()
	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	buyer, err := user.CreateUser(user.CreateUserInput{
		Email:           "amina@example.com",
		Username:        "amina",
		Password:        "sokoni-dev-1",
		PasswordConfirm: "sokoni-dev-1",
	}, clock, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, buyer))

	seller, err := user.CreateUser(user.CreateUserInput{
		Email:           "kofi@example.com",
		Username:        "kofi",
		Password:        "sokoni-dev-2",
		PasswordConfirm: "sokoni-dev-2",
	}, clock, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, seller))

	category, err := market.CreateCategory(market.CreateCategoryInput{Name: "Web Development"}, clock, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateCategory(ctx, category))

	req, err := market.CreateRequest(market.CreateRequestInput{
		BuyerID:     buyer.ID,
		Title:       "Build a landing page",
		Description: "One-page marketing site with a contact form",
		BudgetCents: 50_000,
		CategoryID:  category.ID,
	}, clock, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateRequest(ctx, req))

	bid, err := market.CreateBid(market.CreateBidInput{
		SellerID:    seller.ID,
		AmountCents: 40_000,
		Message:     "I can deliver this in a week",
	}, req, clock, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateBid(ctx, bid))

	accepted, err := market.AcceptBid(bid, req, clock)
	require.NoError(t, err)
	acceptedReq, err := market.TransitionRequest(req, market.RequestStatusAccepted, clock)
	require.NoError(t, err)
	esc, err := escrow.CreateEscrow(escrow.CreateEscrowInput{
		RequestID:   acceptedReq.ID,
		BidID:       accepted.ID,
		BuyerID:     acceptedReq.BuyerID,
		SellerID:    accepted.SellerID,
		AmountCents: accepted.AmountCents,
	}, clock, nil)
	require.NoError(t, err)
	require.NoError(t, store.AcceptBid(ctx, acceptedReq, accepted, esc))

	return acceptedReq, accepted, esc
}

func TestResolveDBPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		path, err := resolveDBPath("/tmp/cli.db", "")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/cli.db", path)
	})

	t.Run("explicit config file", func(t *testing.T) {
		cfg := filepath.Join(t.TempDir(), "sokonictl.yaml")
		require.NoError(t, os.WriteFile(cfg, []byte("db_path: /var/lib/sokoni.db\n"), 0o600))

		path, err := resolveDBPath("", cfg)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/sokoni.db", path)
	})

	t.Run("missing explicit config errors", func(t *testing.T) {
		_, err := resolveDBPath("", filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("SOKONI_DB_PATH", "/srv/sokoni.db")

		path, err := resolveDBPath("", "")
		require.NoError(t, err)
		assert.Equal(t, "/srv/sokoni.db", path)
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("SOKONI_DB_PATH", "")

		path, err := resolveDBPath("", "")
		require.NoError(t, err)
		assert.Equal(t, defaultDBPath, path)
	})

	t.Run("home config file", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("SOKONI_DB_PATH", "")
		require.NoError(t, os.WriteFile(filepath.Join(home, ".sokonictl.yaml"), []byte("db_path: /home/op/sokoni.db\n"), 0o600))

		path, err := resolveDBPath("", "")
		require.NoError(t, err)
		assert.Equal(t, "/home/op/sokoni.db", path)
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := runCtl(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sokonictl v"+Version)
}

func TestOpenStoreRequiresExistingDatabase(t *testing.T) {
	_, err := runCtl(t, "--db", filepath.Join(t.TempDir(), "absent.db"), "users", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestUsersList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sokoni.db")
	seedMarket(t, dbPath)

	out, err := runCtl(t, "--db", dbPath, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "amina@example.com")
	assert.Contains(t, out, "kofi@example.com")
	assert.Contains(t, out, "Total: 2 user(s)")

	jsonOut, err := runCtl(t, "--db", dbPath, "--json", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, jsonOut, `"email": "amina@example.com"`)
}

func TestRequestsListWithStatusFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sokoni.db")
	req, _, _ := seedMarket(t, dbPath)

	out, err := runCtl(t, "--db", dbPath, "requests", "list")
	require.NoError(t, err)
	assert.Contains(t, out, req.Title)
	assert.Contains(t, out, "accepted")

	filtered, err := runCtl(t, "--db", dbPath, "requests", "list", "--status", "open")
	require.NoError(t, err)
	assert.Contains(t, filtered, "No requests found.")

	_, err = runCtl(t, "--db", dbPath, "requests", "list", "--status", "bogus")
	assert.Error(t, err)
}

func TestBidsList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sokoni.db")
	req, bid, _ := seedMarket(t, dbPath)

	out, err := runCtl(t, "--db", dbPath, "bids", "list", "--request", req.ID)
	require.NoError(t, err)
	assert.Contains(t, out, bid.ID)
	assert.Contains(t, out, "kofi")
	assert.Contains(t, out, "$400.00")
	assert.Contains(t, out, "yes")

	_, err = runCtl(t, "--db", dbPath, "bids", "list")
	assert.Error(t, err, "missing --request must fail")
}

func TestEscrowShowAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sokoni.db")
	_, _, esc := seedMarket(t, dbPath)

	out, err := runCtl(t, "--db", dbPath, "escrow", "show", esc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, esc.ID)
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, esc.PaymentReference)

	_, err = runCtl(t, "--db", dbPath, "escrow", "show", "ghost")
	assert.Error(t, err)

	list, err := runCtl(t, "--db", dbPath, "escrow", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, list, esc.ID)

	empty, err := runCtl(t, "--db", dbPath, "escrow", "list", "--status", "released")
	require.NoError(t, err)
	assert.Contains(t, empty, "No escrows found.")
}

func TestCategoriesAddListDisable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sokoni.db")

	out, err := runCtl(t, "--db", dbPath, "categories", "add", "Design", "--description", "Logos and branding")
	require.NoError(t, err)
	assert.Contains(t, out, `Category "Design" added`)

	list, err := runCtl(t, "--db", dbPath, "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, list, "Design")

	disabled, err := runCtl(t, "--db", dbPath, "categories", "disable", "Design")
	require.NoError(t, err)
	assert.Contains(t, disabled, `Category "Design" disabled`)

	activeOnly, err := runCtl(t, "--db", dbPath, "categories", "list")
	require.NoError(t, err)
	assert.NotContains(t, activeOnly, "Design")

	all, err := runCtl(t, "--db", dbPath, "categories", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, all, "Design")

	_, err = runCtl(t, "--db", dbPath, "categories", "add", "Design")
	assert.Error(t, err, "duplicate category must fail")
}

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sokoni.db")
	fixturePath := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(fixturePath, []byte(`
users:
  - email: amina@example.com
    username: amina
    password: sokoni-dev-1
categories:
  - name: Web Development
`), 0o600))

	out, err := runCtl(t, "--db", dbPath, "seed", "--file", fixturePath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 users")
	assert.Contains(t, out, "1 categories")

	users, err := runCtl(t, "--db", dbPath, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, users, "amina@example.com")

	_, err = runCtl(t, "--db", dbPath, "seed", "--file", filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}
