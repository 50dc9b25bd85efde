/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedConfig maps a price feed identifier to the symbol we track it under
type FeedConfig struct {
	Id     string `yaml:"id"`
	Symbol string `yaml:"symbol"`
}

// FeedPrice is a single entry returned by the price feed
type FeedPrice struct {
	Id          string
	Price       decimal.Decimal
	Confidence  decimal.Decimal
	PublishTime int64 // unix seconds
}

// PriceUpdate is an observation to be applied to a symbol's PriceState
type PriceUpdate struct {
	Symbol      string
	Price       decimal.Decimal
	Confidence  decimal.Decimal
	PublishTime int64
}

// PriceState holds the two most recent accepted updates for a symbol.
// LastPublishTime >= PrevPublishTime always holds.
type PriceState struct {
	Symbol          string          `json:"symbol"`
	LastPrice       decimal.Decimal `json:"last_price"`
	LastConfidence  decimal.Decimal `json:"last_confidence"`
	LastPublishTime int64           `json:"last_publish_time"`
	PrevPrice       decimal.Decimal `json:"prev_price"`
	PrevConfidence  decimal.Decimal `json:"prev_confidence"`
	PrevPublishTime int64           `json:"prev_publish_time"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DisplayPrice returns the last accepted price as a float for presentation only
func (p PriceState) DisplayPrice() float64 {
	return p.LastPrice.InexactFloat64()
}

// Change returns the absolute and percentage change between the previous and
// the last accepted price. Percent is zero when the previous price is zero.
func (p PriceState) Change() (decimal.Decimal, decimal.Decimal) {
	abs := p.LastPrice.Sub(p.PrevPrice)
	if p.PrevPrice.IsZero() {
		return abs, decimal.Zero
	}
	return abs, abs.Div(p.PrevPrice).Mul(decimal.NewFromInt(100))
}
