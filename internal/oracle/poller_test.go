package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedClient struct {
	mu     sync.Mutex
	prices []models.FeedPrice
	err    error
	calls  int
}

func (f *fakeFeedClient) LatestPrices(_ context.Context, _ []string) ([]models.FeedPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.prices, f.err
}

func (f *fakeFeedClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func feedPrice(id string, price int64, publishTime int64) models.FeedPrice {
	return models.FeedPrice{
		Id:          id,
		Price:       decimal.NewFromInt(price),
		Confidence:  decimal.NewFromInt(1),
		PublishTime: publishTime,
	}
}

func TestPollOnce_MapsAndSkips(t *testing.T) {
	ingestor, _ := setupIngestor(t)
	client := &fakeFeedClient{prices: []models.FeedPrice{
		feedPrice(solFeedId, 150, 100),
		feedPrice("unknown", 1, 100),
		feedPrice("0xABC", 3000, 0),
	}}

	poller, err := NewPoller(PollerConfig{
		Ingestor: ingestor,
		Client:   client,
		Feeds: []models.FeedConfig{
			{Id: "0x" + solFeedId, Symbol: "SOL"},
			{Id: "abc", Symbol: "ETH"},
		},
		PollingInterval: time.Second,
	})
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, 1, poller.PollOnce(ctx))

	state, err := ingestor.Latest(ctx, "SOL")
	require.NoError(t, err)
	assert.Equal(t, int64(100), state.LastPublishTime)

	_, err = ingestor.Latest(ctx, "ETH")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Same tick again is stale.
	assert.Equal(t, 0, poller.PollOnce(ctx))
}

func TestPollOnce_FetchFailureLeavesState(t *testing.T) {
	ingestor, m := setupIngestor(t)
	ctx := context.Background()
	client := &fakeFeedClient{prices: []models.FeedPrice{feedPrice(solFeedId, 150, 100)}}

	poller, err := NewPoller(PollerConfig{
		Ingestor:        ingestor,
		Client:          client,
		Feeds:           []models.FeedConfig{{Id: solFeedId, Symbol: "SOL"}},
		PollingInterval: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, 1, poller.PollOnce(ctx))

	client.err = errors.New("connection refused")
	assert.Equal(t, 0, poller.PollOnce(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedPollFailures))

	state, err := ingestor.Latest(ctx, "SOL")
	require.NoError(t, err)
	assert.Equal(t, int64(100), state.LastPublishTime)
	assert.True(t, state.LastPrice.Equal(decimal.NewFromInt(150)))
}

func TestNewPoller_Validation(t *testing.T) {
	ingestor, _ := setupIngestor(t)
	client := &fakeFeedClient{}

	_, err := NewPoller(PollerConfig{Ingestor: ingestor, Client: client, PollingInterval: 0})
	assert.Error(t, err)

	_, err = NewPoller(PollerConfig{
		Ingestor:        ingestor,
		Client:          client,
		Feeds:           []models.FeedConfig{{Id: "0xAA", Symbol: "A"}, {Id: "aa", Symbol: "B"}},
		PollingInterval: time.Second,
	})
	assert.ErrorContains(t, err, "configured twice")

	p, err := NewPoller(PollerConfig{Ingestor: ingestor, Client: client, PollingInterval: time.Second})
	require.NoError(t, err)
	assert.Error(t, p.Start(context.Background()))
}

func TestPoller_StartStop(t *testing.T) {
	ingestor, _ := setupIngestor(t)
	client := &fakeFeedClient{prices: []models.FeedPrice{feedPrice(solFeedId, 150, 100)}}

	poller, err := NewPoller(PollerConfig{
		Ingestor:        ingestor,
		Client:          client,
		Feeds:           []models.FeedConfig{{Id: solFeedId, Symbol: "SOL"}},
		PollingInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, poller.Start(context.Background()))
	assert.Eventually(t, func() bool { return client.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	poller.Stop()
}
