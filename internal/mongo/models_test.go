package mongo

import (
	"testing"
	"time"

	"dashboard-core-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTotalsField(t *testing.T) {
	assert.Equal(t, "feesPaidTotals.So11111111111111111111111111111111111111112",
		totalsField("So11111111111111111111111111111111111111112"))
	assert.Equal(t, "feesPaidTotals.mintA.amountBase", totalsField("mintA", "amountBase"))
}

func TestFeeEventModelRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &models.FeeEvent{
		Id:        "evt-1",
		UserId:    "user-1",
		Signature: "sig",
		Kind:      "swap",
		Tokens: []models.FeeEventToken{
			{Mint: "mintA", Symbol: "USDC", Decimals: 6, AmountUI: "1.23", AmountBase: "1230000"},
		},
		CreatedAt: created,
	}

	m := toFeeEventModel(event)
	assert.Equal(t, "evt-1", m.ID)
	require.Len(t, m.Tokens, 1)
	assert.Equal(t, "1230000", m.Tokens[0].AmountBase)

	back := fromFeeEventModel(m)
	assert.Equal(t, *event, back)
}

func TestUserTotalsModelRoundTrip(t *testing.T) {
	totals := models.FeeTotals{
		"mintA": {AmountBase: "30", Decimals: 2, Symbol: "AAA"},
		"mintB": {AmountBase: "1", Decimals: 9},
	}
	m := toUserTotalsModel("user-1", totals, time.Now())
	assert.Equal(t, "user-1", m.ID)
	assert.Equal(t, totals, fromUserTotalsModel(m))
}

func TestFromPriceStateModel(t *testing.T) {
	m := &priceStateModel{
		Symbol:          "SOL",
		LastPrice:       "105.5",
		LastConfidence:  "0.13",
		LastPublishTime: 105,
		PrevPrice:       "100",
		PrevConfidence:  "0.1",
		PrevPublishTime: 100,
	}
	state, err := fromPriceStateModel(m)
	require.NoError(t, err)
	assert.True(t, state.LastPrice.Equal(decimal.RequireFromString("105.5")))
	assert.True(t, state.PrevConfidence.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, int64(100), state.PrevPublishTime)

	m.PrevPrice = "not-a-number"
	_, err = fromPriceStateModel(m)
	assert.Error(t, err)
}

func TestPriceUpsertPipelineFallsBackToIncoming(t *testing.T) {
	update := models.PriceUpdate{
		Symbol:      "SOL",
		Price:       decimal.RequireFromString("100"),
		Confidence:  decimal.RequireFromString("0.1"),
		PublishTime: 100,
	}
	pipeline := priceUpsertPipeline(update, time.Unix(0, 0))
	require.Len(t, pipeline, 2)

	shift := pipeline[0].(bson.M)["$set"].(bson.M)
	prevTime := shift["prevPublishTime"].(bson.M)["$ifNull"].(bson.A)
	assert.Equal(t, "$lastPublishTime", prevTime[0])
	assert.Equal(t, int64(100), prevTime[1])

	write := pipeline[1].(bson.M)["$set"].(bson.M)
	assert.Equal(t, bson.M{"$literal": "100"}, write["lastPrice"])
	assert.Equal(t, int64(100), write["lastPublishTime"])
}
