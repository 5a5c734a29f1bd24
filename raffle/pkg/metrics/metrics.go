package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raffle_build_info",
			Help: "Build information of the raffle tool",
		},
		[]string{"version", "commit", "date"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_runs_total",
			Help: "Total number of raffle runs",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raffle_run_duration_seconds",
			Help:    "Duration of a raffle run from load to last sink write",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
		},
	)

	Entries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raffle_entries",
			Help: "Deposit entries in the last draw",
		},
		[]string{"cohort"},
	)

	Winners = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raffle_winners",
			Help: "Winners in the last draw",
		},
		[]string{"cohort"},
	)

	TotalSupply = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raffle_total_supply",
			Help: "Token supply of the last draw",
		},
	)

	SampledTiers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raffle_sampled_tiers",
			Help: "Tiers resolved by seeded sampling in the last draw",
		},
	)

	HashSteps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raffle_hash_steps",
			Help: "Keccak steps taken by the sampler in the last draw",
		},
	)

	RejectedDraws = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "raffle_rejected_draws",
			Help: "Sampler picks rejected as duplicates in the last draw",
		},
	)

	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_sink_writes_total",
			Help: "Total number of sink writes",
		},
		[]string{"sink", "status"},
	)

	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raffle_sink_write_duration_seconds",
			Help:    "Duration of sink writes",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"sink"},
	)
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
