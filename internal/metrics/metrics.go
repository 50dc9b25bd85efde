package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors shared by the fee ledger, rate limiter and oracle.
type Metrics struct {
	FeeSubmissions   *prometheus.CounterVec
	RateDecisions    *prometheus.CounterVec
	WindowsSwept     prometheus.Counter
	PriceUpdates     *prometheus.CounterVec
	FeedPollDuration prometheus.Histogram
	FeedPollFailures prometheus.Counter
}

// New creates the collectors and registers them with registry. A nil registry
// leaves them unregistered, which is what tests use.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		FeeSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fee_submissions_total",
				Help: "Fee submissions by outcome.",
			},
			[]string{"outcome"},
		),
		RateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_decisions_total",
				Help: "Rate limit decisions by result.",
			},
			[]string{"result"},
		),
		WindowsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limit_windows_swept_total",
				Help: "Expired rate limit windows deleted by the sweeper.",
			},
		),
		PriceUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_price_updates_total",
				Help: "Price updates by outcome.",
			},
			[]string{"outcome"},
		),
		FeedPollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oracle_feed_poll_duration_seconds",
				Help:    "Price feed poll duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		FeedPollFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "oracle_feed_poll_failures_total",
				Help: "Price feed polls that failed to fetch.",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(m.FeeSubmissions, m.RateDecisions, m.WindowsSwept,
			m.PriceUpdates, m.FeedPollDuration, m.FeedPollFailures)
	}
	return m
}
