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
	"time"

	"dashboard-core-go/internal/common"
	"dashboard-core-go/internal/config"
	"dashboard-core-go/internal/ratelimit"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	apiFlag := flag.String("api", "dashboard", "API name the rule applies to")
	scopeFlag := flag.String("scope", ratelimit.ScopeIP, "Identity scope: ip or user")
	methodFlag := flag.String("method", "GET", "HTTP method")
	identityFlag := flag.String("identity", "127.0.0.1", "Caller identity (ip address or user id)")
	limitFlag := flag.Int("limit", 0, "Requests per window (default: RATE_LIMIT_DEFAULT_LIMIT)")
	windowFlag := flag.Duration("window", 0, "Window length (default: RATE_LIMIT_WINDOW)")
	countFlag := flag.Int("n", 1, "Number of requests to consume")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	rule := ratelimit.Rule{
		Api:    *apiFlag,
		Method: *methodFlag,
		Scope:  *scopeFlag,
		Limit:  cfg.RateLimit.DefaultLimit,
		Window: cfg.RateLimit.DefaultWindow,
	}
	if *limitFlag > 0 {
		rule.Limit = *limitFlag
	}
	if *windowFlag > 0 {
		rule.Window = *windowFlag
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	limiter := ratelimit.NewLimiter(services.Windows, services.Metrics)

	common.PrintHeader(fmt.Sprintf("RATE CHECK: %s (limit %d per %s)", rule.Key(*identityFlag), rule.Limit, rule.Window), common.WideWidth)

	allowed := 0
	for i := 1; i <= *countFlag; i++ {
		now := time.Now()
		decision, err := limiter.Allow(ctx, rule, *identityFlag, now)
		if err != nil {
			logger.Fatal("Failed to consume", zap.Error(err))
		}

		isLast := i == *countFlag
		if decision.Allowed {
			allowed++
			fmt.Printf("%s #%-4d ✓ allowed   remaining=%d reset=%s\n",
				common.BoxPrefix(isLast), i, decision.Remaining, decision.ResetAt.Format(time.RFC3339))
		} else {
			fmt.Printf("%s #%-4d ✗ rejected  retry after %ds\n",
				common.BoxPrefix(isLast), i, decision.RetryAfter(now))
		}
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d allowed, %d rejected", allowed, *countFlag-allowed), common.WideWidth)
}
