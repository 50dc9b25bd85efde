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
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"dashboard-core-go/internal/common"
	"dashboard-core-go/internal/config"
	"dashboard-core-go/internal/fees"
	"dashboard-core-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// tokenList collects repeated -token mint:decimals:amount[:symbol] flags.
type tokenList []models.FeeToken

func (l *tokenList) String() string {
	parts := make([]string, 0, len(*l))
	for _, t := range *l {
		parts = append(parts, fmt.Sprintf("%s:%d:%s", t.Mint, t.Decimals, t.AmountUI))
	}
	return strings.Join(parts, ",")
}

func (l *tokenList) Set(value string) error {
	token, err := parseToken(value)
	if err != nil {
		return err
	}
	*l = append(*l, token)
	return nil
}

func parseToken(value string) (models.FeeToken, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return models.FeeToken{}, fmt.Errorf("token must be mint:decimals:amount[:symbol], got %q", value)
	}

	decimals, err := strconv.Atoi(parts[1])
	if err != nil {
		return models.FeeToken{}, fmt.Errorf("invalid decimals %q: %w", parts[1], err)
	}

	amount, err := decimal.NewFromString(parts[2])
	if err != nil {
		return models.FeeToken{}, fmt.Errorf("invalid amount %q: %w", parts[2], err)
	}

	token := models.FeeToken{Mint: parts[0], Decimals: decimals, AmountUI: amount}
	if len(parts) == 4 {
		token.Symbol = parts[3]
	}
	return token, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	var tokens tokenList
	userFlag := flag.String("user", "", "User id the fees were paid by (required)")
	signatureFlag := flag.String("signature", "", "Transaction signature of the action (required)")
	kindFlag := flag.String("kind", "", "Logical operation name, e.g. swap (required)")
	flag.Var(&tokens, "token", "Fee leg as mint:decimals:amount[:symbol] (repeatable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	backend, err := common.InitializeStoreOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer backend.Close()

	ledger := fees.NewService(backend, nil, cfg.Fees)
	result, err := ledger.RecordFees(ctx, *userFlag, *signatureFlag, *kindFlag, tokens)
	if err != nil {
		logger.Fatal("Failed to record fees", zap.Error(err))
	}

	if result.Recorded {
		fmt.Printf("✓ Recorded %d fee legs for %s (%s/%s)\n", len(tokens), *userFlag, *signatureFlag, *kindFlag)
	} else {
		fmt.Printf("~ Not recorded: %s\n", result.Reason)
	}
}
