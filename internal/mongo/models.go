package mongo

import (
	"fmt"
	"time"

	"dashboard-core-go/internal/models"

	"github.com/shopspring/decimal"
)

// priceStateModel is the persisted form of a PriceState. Prices are stored as
// decimal strings so no precision is lost in BSON doubles.
type priceStateModel struct {
	Symbol          string    `bson:"symbol"`
	LastPrice       string    `bson:"lastPrice"`
	LastConfidence  string    `bson:"lastConfidence"`
	LastPublishTime int64     `bson:"lastPublishTime"`
	PrevPrice       string    `bson:"prevPrice"`
	PrevConfidence  string    `bson:"prevConfidence"`
	PrevPublishTime int64     `bson:"prevPublishTime"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func fromPriceStateModel(m *priceStateModel) (*models.PriceState, error) {
	state := &models.PriceState{
		Symbol:          m.Symbol,
		LastPublishTime: m.LastPublishTime,
		PrevPublishTime: m.PrevPublishTime,
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{m.LastPrice, &state.LastPrice},
		{m.LastConfidence, &state.LastConfidence},
		{m.PrevPrice, &state.PrevPrice},
		{m.PrevConfidence, &state.PrevConfidence},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("store/mongo: parse price %q of %s: %w", f.raw, m.Symbol, err)
		}
		*f.dst = v
	}
	return state, nil
}

type feeEventTokenModel struct {
	Mint       string `bson:"mint"`
	Symbol     string `bson:"symbol,omitempty"`
	Decimals   int    `bson:"decimals"`
	AmountUI   string `bson:"amountUi"`
	AmountBase string `bson:"amountBase"`
}

type feeEventModel struct {
	ID        string               `bson:"_id"`
	UserID    string               `bson:"userId"`
	Signature string               `bson:"signature"`
	Kind      string               `bson:"kind"`
	Tokens    []feeEventTokenModel `bson:"tokens"`
	CreatedAt time.Time            `bson:"createdAt"`
}

func toFeeEventModel(e *models.FeeEvent) *feeEventModel {
	m := &feeEventModel{
		ID:        e.Id,
		UserID:    e.UserId,
		Signature: e.Signature,
		Kind:      e.Kind,
		Tokens:    make([]feeEventTokenModel, 0, len(e.Tokens)),
		CreatedAt: e.CreatedAt,
	}
	for _, t := range e.Tokens {
		m.Tokens = append(m.Tokens, feeEventTokenModel(t))
	}
	return m
}

func fromFeeEventModel(m *feeEventModel) models.FeeEvent {
	e := models.FeeEvent{
		Id:        m.ID,
		UserId:    m.UserID,
		Signature: m.Signature,
		Kind:      m.Kind,
		Tokens:    make([]models.FeeEventToken, 0, len(m.Tokens)),
		CreatedAt: m.CreatedAt.UTC(),
	}
	for _, t := range m.Tokens {
		e.Tokens = append(e.Tokens, models.FeeEventToken(t))
	}
	return e
}

type tokenTotalModel struct {
	AmountBase string `bson:"amountBase"`
	Decimals   int    `bson:"decimals"`
	Symbol     string `bson:"symbol,omitempty"`
}

// userTotalsModel is one document per user; each mint is a key of FeesPaidTotals.
type userTotalsModel struct {
	ID             string                     `bson:"_id"`
	FeesPaidTotals map[string]tokenTotalModel `bson:"feesPaidTotals"`
	UpdatedAt      time.Time                  `bson:"updatedAt"`
}

func toUserTotalsModel(userId string, totals models.FeeTotals, now time.Time) *userTotalsModel {
	m := &userTotalsModel{
		ID:             userId,
		FeesPaidTotals: make(map[string]tokenTotalModel, len(totals)),
		UpdatedAt:      now,
	}
	for mint, t := range totals {
		m.FeesPaidTotals[mint] = tokenTotalModel(t)
	}
	return m
}

func fromUserTotalsModel(m *userTotalsModel) models.FeeTotals {
	totals := make(models.FeeTotals, len(m.FeesPaidTotals))
	for mint, t := range m.FeesPaidTotals {
		totals[mint] = models.TokenTotal(t)
	}
	return totals
}

type windowModel struct {
	ID          string    `bson:"_id"`
	Key         string    `bson:"key"`
	WindowStart int64     `bson:"windowStart"` // unix ms
	Count       int       `bson:"count"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

// totalsField is the dotted path of a mint's entry in the totals document.
func totalsField(mint string, sub ...string) string {
	path := "feesPaidTotals." + mint
	for _, s := range sub {
		path += "." + s
	}
	return path
}
