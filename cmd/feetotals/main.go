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
	"sort"

	"dashboard-core-go/internal/common"
	"dashboard-core-go/internal/config"
	"dashboard-core-go/internal/fees"
	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/money"

	"go.uber.org/zap"
)

func printTotals(totals models.FeeTotals) {
	mints := make([]string, 0, len(totals))
	for mint := range totals {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	for i, mint := range mints {
		total := totals[mint]
		isLast := i == len(mints)-1

		ui, err := money.FromBaseUnits(total.AmountBase, total.Decimals)
		uiText := ui.String()
		if err != nil {
			uiText = "invalid"
		}

		symbol := total.Symbol
		if symbol == "" {
			symbol = "?"
		}

		fmt.Printf("%s %-8s %-15s: %24s\n",
			common.BoxPrefix(isLast),
			symbol,
			common.ShortId(mint),
			uiText)
		fmt.Printf("%s   base: %s (%d decimals)\n",
			common.BoxDetailPrefix(isLast),
			total.AmountBase,
			total.Decimals)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id to report (required)")
	reconcileFlag := flag.Bool("reconcile", false, "Rebuild the totals from the fee event log before printing")
	flag.Parse()

	if *userFlag == "" {
		logger.Fatal("Missing required flag", zap.String("flag", "user"))
	}

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

	var totals models.FeeTotals
	if *reconcileFlag {
		logger.Info("Reconciling fee totals", zap.String("user_id", *userFlag))
		totals, err = ledger.Reconcile(ctx, *userFlag)
	} else {
		totals, err = ledger.Totals(ctx, *userFlag)
	}
	if err != nil {
		logger.Fatal("Failed to load fee totals", zap.Error(err))
	}

	common.PrintHeader("FEE TOTALS", common.DefaultWidth)
	fmt.Printf("┌─ User: %s\n", *userFlag)
	common.PrintBoxSeparator(78)
	printTotals(totals)
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d mints", len(totals)), common.DefaultWidth)
}
