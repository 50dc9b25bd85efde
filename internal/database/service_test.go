package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A single connection keeps every goroutine on the same in-memory database.
	db.SetMaxOpenConns(1)

	service := &Service{db: db}

	// Use the actual schema initialization
	if err := service.initSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func priceUpdate(symbol string, price int64, publishTime int64) models.PriceUpdate {
	return models.PriceUpdate{
		Symbol:      symbol,
		Price:       decimal.NewFromInt(price),
		Confidence:  decimal.NewFromInt(1),
		PublishTime: publishTime,
	}
}

func TestUpsertPrice_Bootstrap(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	applied, err := service.UpsertPrice(ctx, priceUpdate("SOL", 150, 100), now)
	if err != nil {
		t.Fatalf("UpsertPrice failed: %v", err)
	}
	if !applied {
		t.Fatal("Expected first update to be applied")
	}

	state, err := service.GetPrice(ctx, "SOL")
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if state.LastPublishTime != 100 || state.PrevPublishTime != 100 {
		t.Errorf("Expected last=prev=100, got last=%d prev=%d", state.LastPublishTime, state.PrevPublishTime)
	}
	if !state.LastPrice.Equal(state.PrevPrice) {
		t.Errorf("Expected prev price to equal last price on bootstrap, got %s and %s", state.PrevPrice, state.LastPrice)
	}
	if !state.UpdatedAt.Equal(now.UTC()) {
		t.Errorf("Expected updated_at %v, got %v", now.UTC(), state.UpdatedAt)
	}
}

func TestUpsertPrice_Monotonic(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()

	publishTimes := []int64{100, 100, 99, 105}
	prices := []int64{10, 11, 12, 13}
	wantApplied := []bool{true, false, false, true}

	for i, pt := range publishTimes {
		applied, err := service.UpsertPrice(ctx, priceUpdate("BTC", prices[i], pt), now)
		if err != nil {
			t.Fatalf("UpsertPrice(%d) failed: %v", pt, err)
		}
		if applied != wantApplied[i] {
			t.Errorf("UpsertPrice(%d) applied = %v, want %v", pt, applied, wantApplied[i])
		}
	}

	state, err := service.GetPrice(ctx, "BTC")
	if err != nil {
		t.Fatalf("GetPrice failed: %v", err)
	}
	if state.PrevPublishTime != 100 || state.LastPublishTime != 105 {
		t.Errorf("Expected prev=100 last=105, got prev=%d last=%d", state.PrevPublishTime, state.LastPublishTime)
	}
	if !state.PrevPrice.Equal(decimal.NewFromInt(10)) || !state.LastPrice.Equal(decimal.NewFromInt(13)) {
		t.Errorf("Expected prev=10 last=13, got prev=%s last=%s", state.PrevPrice, state.LastPrice)
	}
}

func TestGetPrice_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetPrice(context.Background(), "NOPE")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListPrices(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	for _, symbol := range []string{"SOL", "BTC", "ETH"} {
		if _, err := service.UpsertPrice(ctx, priceUpdate(symbol, 1, 1), time.Now()); err != nil {
			t.Fatalf("UpsertPrice failed: %v", err)
		}
	}

	states, err := service.ListPrices(ctx)
	if err != nil {
		t.Fatalf("ListPrices failed: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("Expected 3 prices, got %d", len(states))
	}
	if states[0].Symbol != "BTC" || states[2].Symbol != "SOL" {
		t.Errorf("Expected prices ordered by symbol, got %s..%s", states[0].Symbol, states[2].Symbol)
	}
}

func feeEvent(userId, signature, kind string) *models.FeeEvent {
	return &models.FeeEvent{
		UserId:    userId,
		Signature: signature,
		Kind:      kind,
		Tokens: []models.FeeEventToken{
			{Mint: "mintA", Symbol: "USDC", Decimals: 6, AmountUI: "1.5", AmountBase: "1500000"},
		},
	}
}

func TestInsertFeeEvent_Duplicate(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	if err := service.InsertFeeEvent(ctx, feeEvent("user1", "sig1", "swap")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := service.InsertFeeEvent(ctx, feeEvent("user1", "sig1", "swap"))
	if !errors.Is(err, store.ErrDuplicateFeeEvent) {
		t.Errorf("Expected ErrDuplicateFeeEvent, got %v", err)
	}

	// Same signature with a different kind is a distinct action.
	if err := service.InsertFeeEvent(ctx, feeEvent("user1", "sig1", "open")); err != nil {
		t.Errorf("Insert with different kind failed: %v", err)
	}
}

func TestListFeeEvents(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if err := service.InsertFeeEvent(ctx, feeEvent("user1", "sig1", "swap")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := service.InsertFeeEvent(ctx, feeEvent("user2", "sig2", "swap")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	events, err := service.ListFeeEvents(ctx, "user1")
	if err != nil {
		t.Fatalf("ListFeeEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Id == "" {
		t.Error("Expected generated event id")
	}
	if len(events[0].Tokens) != 1 || events[0].Tokens[0].AmountBase != "1500000" {
		t.Errorf("Unexpected tokens: %+v", events[0].Tokens)
	}
}

func TestAddFeeTotals_Accumulates(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	err := service.AddFeeTotals(ctx, "user1", []store.TotalsDelta{
		{Mint: "mintA", Decimals: 0, AmountBase: "100"},
	}, 0)
	if err != nil {
		t.Fatalf("AddFeeTotals failed: %v", err)
	}
	err = service.AddFeeTotals(ctx, "user1", []store.TotalsDelta{
		{Mint: "mintA", Symbol: "USDC", Decimals: 6, AmountBase: "18446744073709551616"},
		{Mint: "mintB", Symbol: "SOL", Decimals: 9, AmountBase: "5"},
	}, 0)
	if err != nil {
		t.Fatalf("AddFeeTotals failed: %v", err)
	}

	totals, err := service.GetFeeTotals(ctx, "user1")
	if err != nil {
		t.Fatalf("GetFeeTotals failed: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("Expected 2 totals, got %d", len(totals))
	}

	a := totals["mintA"]
	if a.AmountBase != "18446744073709551716" {
		t.Errorf("Expected mintA total 18446744073709551716, got %s", a.AmountBase)
	}
	if a.Decimals != 6 || a.Symbol != "USDC" {
		t.Errorf("Expected unset decimals and symbol to be filled, got %d %q", a.Decimals, a.Symbol)
	}
	if totals["mintB"].AmountBase != "5" {
		t.Errorf("Expected mintB total 5, got %s", totals["mintB"].AmountBase)
	}
}

func TestAddFeeTotals_KeepsExistingMetadata(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	deltas := []store.TotalsDelta{{Mint: "mintA", Symbol: "USDC", Decimals: 6, AmountBase: "1"}}
	if err := service.AddFeeTotals(ctx, "user1", deltas, 0); err != nil {
		t.Fatalf("AddFeeTotals failed: %v", err)
	}
	deltas = []store.TotalsDelta{{Mint: "mintA", Symbol: "OTHER", Decimals: 9, AmountBase: "1"}}
	if err := service.AddFeeTotals(ctx, "user1", deltas, 0); err != nil {
		t.Fatalf("AddFeeTotals failed: %v", err)
	}

	totals, err := service.GetFeeTotals(ctx, "user1")
	if err != nil {
		t.Fatalf("GetFeeTotals failed: %v", err)
	}
	if got := totals["mintA"]; got.Symbol != "USDC" || got.Decimals != 6 || got.AmountBase != "2" {
		t.Errorf("Unexpected total: %+v", got)
	}
}

func TestAddFeeTotals_Concurrent(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	const writers = 25

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- service.AddFeeTotals(ctx, "user1", []store.TotalsDelta{
				{Mint: "mintA", Decimals: 6, AmountBase: "1000"},
			}, 100)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent AddFeeTotals failed: %v", err)
		}
	}

	totals, err := service.GetFeeTotals(ctx, "user1")
	if err != nil {
		t.Fatalf("GetFeeTotals failed: %v", err)
	}
	if got := totals["mintA"].AmountBase; got != "25000" {
		t.Errorf("Expected total 25000, got %s", got)
	}
}

func TestReplaceFeeTotals(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	if err := service.AddFeeTotals(ctx, "user1", []store.TotalsDelta{{Mint: "stale", AmountBase: "9"}}, 0); err != nil {
		t.Fatalf("AddFeeTotals failed: %v", err)
	}

	err := service.ReplaceFeeTotals(ctx, "user1", models.FeeTotals{
		"mintA": {AmountBase: "42", Decimals: 6, Symbol: "USDC"},
	})
	if err != nil {
		t.Fatalf("ReplaceFeeTotals failed: %v", err)
	}

	totals, err := service.GetFeeTotals(ctx, "user1")
	if err != nil {
		t.Fatalf("GetFeeTotals failed: %v", err)
	}
	if len(totals) != 1 || totals["mintA"].AmountBase != "42" {
		t.Errorf("Expected only mintA=42, got %+v", totals)
	}
}

func TestCreateWindow_OnlyOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	start := time.UnixMilli(1_000)
	expires := time.UnixMilli(3_000)

	created, err := service.CreateWindow(ctx, "api:scope:GET:id", start, expires)
	if err != nil || !created {
		t.Fatalf("Expected window to be created, got created=%v err=%v", created, err)
	}
	created, err = service.CreateWindow(ctx, "api:scope:GET:id", start, expires)
	if err != nil || created {
		t.Fatalf("Expected second create to report existing window, got created=%v err=%v", created, err)
	}
}

func TestIncrementWindow_StopsAtLimit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	start := time.UnixMilli(1_000)
	if _, err := service.CreateWindow(ctx, "k", start, time.UnixMilli(3_000)); err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}

	for want := 2; want <= 3; want++ {
		count, ok, err := service.IncrementWindow(ctx, "k", start, 3)
		if err != nil || !ok || count != want {
			t.Fatalf("Expected count %d, got count=%d ok=%v err=%v", want, count, ok, err)
		}
	}

	count, ok, err := service.IncrementWindow(ctx, "k", start, 3)
	if err != nil {
		t.Fatalf("IncrementWindow failed: %v", err)
	}
	if ok || count != 0 {
		t.Errorf("Expected increment past the limit to be refused, got count=%d ok=%v", count, ok)
	}
}

func TestDeleteExpiredWindows_Safety(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	expires := time.UnixMilli(10_000)
	if _, err := service.CreateWindow(ctx, "k", time.UnixMilli(0), expires); err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}

	for _, now := range []time.Time{expires.Add(-time.Millisecond), expires} {
		deleted, err := service.DeleteExpiredWindows(ctx, now, 100)
		if err != nil {
			t.Fatalf("DeleteExpiredWindows failed: %v", err)
		}
		if deleted != 0 {
			t.Errorf("Expected no deletion at %d, got %d", now.UnixMilli(), deleted)
		}
	}

	deleted, err := service.DeleteExpiredWindows(ctx, expires.Add(time.Millisecond), 100)
	if err != nil {
		t.Fatalf("DeleteExpiredWindows failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deletion after expiry, got %d", deleted)
	}
}

func TestDeleteExpiredWindows_BatchSize(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		start := time.UnixMilli(int64(i) * 1_000)
		if _, err := service.CreateWindow(ctx, "k", start, start.Add(time.Second)); err != nil {
			t.Fatalf("CreateWindow failed: %v", err)
		}
	}

	now := time.UnixMilli(100_000)
	deleted, err := service.DeleteExpiredWindows(ctx, now, 3)
	if err != nil || deleted != 3 {
		t.Fatalf("Expected 3 deletions, got %d (err=%v)", deleted, err)
	}
	deleted, err = service.DeleteExpiredWindows(ctx, now, 3)
	if err != nil || deleted != 2 {
		t.Fatalf("Expected 2 deletions, got %d (err=%v)", deleted, err)
	}
}
