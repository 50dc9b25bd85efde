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

package oracle

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dashboard-core-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const latestPricesPath = "/api/latest_price_feeds"

// FeedClient fetches the latest observation for a set of feed ids.
type FeedClient interface {
	LatestPrices(ctx context.Context, ids []string) ([]models.FeedPrice, error)
}

// HermesClient reads latest prices from a Hermes-style HTTP price service.
type HermesClient struct {
	baseURL    string
	httpClient http.Client
}

func NewHermesClient(baseURL string, timeout time.Duration) (*HermesClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("feed url cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid feed url %q: %w", baseURL, err)
	}

	httpClient, err := createCustomHttpClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}

	return &HermesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// NormalizeFeedId lower-cases an id and strips any 0x prefix.
func NormalizeFeedId(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.TrimPrefix(id, "0x")
}

func (c *HermesClient) LatestPrices(ctx context.Context, ids []string) ([]models.FeedPrice, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{}
	for _, id := range ids {
		query.Add("ids[]", id)
	}
	endpoint := c.baseURL + latestPricesPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("unable to read feed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseLatestPrices(body)
}

// parseLatestPrices decodes [{id, price:{price, conf, expo, publish_time}}].
// price and conf are integer strings scaled by 10^expo. Entries whose price
// cannot be parsed are dropped; publish time is passed through for the
// caller to validate.
func parseLatestPrices(body []byte) ([]models.FeedPrice, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("feed response is not valid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("feed response is not an array")
	}

	var prices []models.FeedPrice
	root.ForEach(func(_, entry gjson.Result) bool {
		id := NormalizeFeedId(entry.Get("id").String())
		p := entry.Get("price")

		price, err := scaledDecimal(p.Get("price"), p.Get("expo"))
		if err != nil {
			zap.L().Warn("Skipping feed entry with invalid price", zap.String("feed_id", id), zap.Error(err))
			return true
		}
		conf, err := scaledDecimal(p.Get("conf"), p.Get("expo"))
		if err != nil {
			zap.L().Warn("Skipping feed entry with invalid confidence", zap.String("feed_id", id), zap.Error(err))
			return true
		}

		prices = append(prices, models.FeedPrice{
			Id:          id,
			Price:       price,
			Confidence:  conf,
			PublishTime: publishTime(p.Get("publish_time")),
		})
		return true
	})
	return prices, nil
}

func scaledDecimal(raw, expo gjson.Result) (decimal.Decimal, error) {
	if !raw.Exists() {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	if !expo.Exists() || expo.Type != gjson.Number {
		return decimal.Zero, fmt.Errorf("missing exponent")
	}
	mantissa, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, err
	}
	if !mantissa.Equal(mantissa.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("value %s is not an integer", raw.String())
	}
	return mantissa.Shift(int32(expo.Int())), nil
}

// publishTime returns 0 for anything that is not a whole number of seconds.
func publishTime(v gjson.Result) int64 {
	switch v.Type {
	case gjson.Number:
		if v.Num != float64(int64(v.Num)) {
			return 0
		}
		return int64(v.Num)
	case gjson.String:
		t, err := strconv.ParseInt(v.Str, 10, 64)
		if err != nil {
			return 0
		}
		return t
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
