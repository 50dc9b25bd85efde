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
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dashboard-core-go/internal/api"
	"dashboard-core-go/internal/common"
	"dashboard-core-go/internal/config"
	"dashboard-core-go/internal/oracle"
	"dashboard-core-go/internal/ratelimit"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type stopper interface {
	Stop()
}

func main() {
	feedsFlag := flag.String("feeds", "", "Path to feeds.yaml (default: ORACLE_FEEDS_FILE)")
	metricsAddr := flag.String("metrics-addr", ":9102", "Address to serve Prometheus metrics on (empty disables)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting price ingestor",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("rate_limit_backend", cfg.Store.RateLimitBackend))

	feedsFile := cfg.Oracle.FeedsFile
	if *feedsFlag != "" {
		feedsFile = *feedsFlag
	}
	feeds, err := common.LoadFeedConfig(feedsFile)
	if err != nil {
		zap.L().Fatal("Failed to load feeds", zap.String("file", feedsFile), zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	dashboard := api.NewDashboardService(services.Backend, services.Windows, services.Metrics, cfg)
	if err := dashboard.HealthCheck(ctx); err != nil {
		zap.L().Fatal("Health check failed", zap.Error(err))
	}

	client, err := oracle.NewHermesClient(cfg.Oracle.FeedURL, cfg.Oracle.RequestTimeout)
	if err != nil {
		zap.L().Fatal("Failed to create feed client", zap.Error(err))
	}

	poller, err := oracle.NewPoller(oracle.PollerConfig{
		Ingestor:        dashboard.Oracle,
		Client:          client,
		Feeds:           feeds,
		PollingInterval: cfg.Oracle.PollingInterval,
	})
	if err != nil {
		zap.L().Fatal("Failed to create poller", zap.Error(err))
	}
	if err := poller.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start poller", zap.Error(err))
	}
	running := []stopper{poller}

	if cfg.RateLimit.SweepEnabled {
		sweeper := ratelimit.NewSweeper(dashboard.Limiter, cfg.RateLimit.SweepInterval, cfg.RateLimit.SweepBatchSize)
		sweeper.Start(ctx)
		running = append(running, sweeper)
	}

	var metricsServer *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			zap.L().Info("Serving metrics", zap.String("addr", *metricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.L().Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	zap.L().Info("Ingestor running", zap.Int("feeds", len(feeds)))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, s := range running {
			wg.Add(1)
			go func(s stopper) {
				defer wg.Done()
				s.Stop()
			}(s)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Ingestor stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
