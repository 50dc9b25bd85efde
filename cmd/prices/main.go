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
	"errors"
	"flag"
	"fmt"
	"time"

	"dashboard-core-go/internal/common"
	"dashboard-core-go/internal/config"
	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/oracle"
	"dashboard-core-go/internal/store"

	"go.uber.org/zap"
)

func printPrice(state models.PriceState, isLast bool) {
	abs, pct := state.Change()

	fmt.Printf("%s %-8s: %16.6f  (%s%s, %s%%)\n",
		common.BoxPrefix(isLast),
		state.Symbol,
		state.DisplayPrice(),
		sign(abs.Sign()),
		abs.Abs().String(),
		pct.StringFixed(2))
	fmt.Printf("%s   conf ±%s, published %s (prev %s), ingested %s\n",
		common.BoxDetailPrefix(isLast),
		state.LastConfidence.String(),
		time.Unix(state.LastPublishTime, 0).UTC().Format(time.RFC3339),
		time.Unix(state.PrevPublishTime, 0).UTC().Format(time.RFC3339),
		state.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func sign(s int) string {
	if s < 0 {
		return "-"
	}
	return "+"
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	symbolFlag := flag.String("symbol", "", "Only show this symbol (optional)")
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

	ingestor := oracle.NewIngestor(backend, nil)

	var states []models.PriceState
	if *symbolFlag != "" {
		state, err := ingestor.Latest(ctx, *symbolFlag)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("No price recorded for %s yet\n", *symbolFlag)
			return
		}
		if err != nil {
			logger.Fatal("Failed to get price", zap.Error(err))
		}
		states = append(states, *state)
	} else {
		states, err = ingestor.All(ctx)
		if err != nil {
			logger.Fatal("Failed to list prices", zap.Error(err))
		}
	}

	common.PrintHeader("LATEST PRICES", common.DefaultWidth)
	for i, state := range states {
		printPrice(state, i == len(states)-1)
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d symbols tracked", len(states)), common.DefaultWidth)
}
