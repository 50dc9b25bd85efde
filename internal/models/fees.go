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

// Reasons reported when a fee submission is not recorded
const (
	ReasonDuplicate = "duplicate"
	ReasonZero      = "zero"
)

// FeeToken is one fee leg as submitted by the caller, in UI units
type FeeToken struct {
	Mint     string          `json:"mint"`
	Symbol   string          `json:"symbol,omitempty"`
	Decimals int             `json:"decimals"`
	AmountUI decimal.Decimal `json:"amount_ui"`
}

// FeeEventToken is a merged fee leg as persisted on a FeeEvent
type FeeEventToken struct {
	Mint       string `json:"mint"`
	Symbol     string `json:"symbol,omitempty"`
	Decimals   int    `json:"decimals"`
	AmountUI   string `json:"amount_ui"`   // exact decimal string
	AmountBase string `json:"amount_base"` // unsigned integer string
}

// FeeEvent is an immutable ledger entry, unique on (Signature, Kind)
type FeeEvent struct {
	Id        string          `json:"id"`
	UserId    string          `json:"user_id"`
	Signature string          `json:"signature"`
	Kind      string          `json:"kind"`
	Tokens    []FeeEventToken `json:"tokens"`
	CreatedAt time.Time       `json:"created_at"`
}

// TokenTotal is the running fee total for one mint
type TokenTotal struct {
	AmountBase string `json:"amount_base"`
	Decimals   int    `json:"decimals"`
	Symbol     string `json:"symbol,omitempty"`
}

// FeeTotals maps mint to its running total for a single user
type FeeTotals map[string]TokenTotal

// RecordResult is the outcome of a fee submission
type RecordResult struct {
	Recorded bool   `json:"recorded"`
	Reason   string `json:"reason,omitempty"`
}
