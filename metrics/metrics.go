package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Custom channel lifecycle
var (
	// ChannelsCreatedTotal counts committed custom channels
	ChannelsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicekeep_channels_created_total",
			Help: "Total custom voice channels created and committed",
		},
	)

	// ChannelCreateFailuresTotal counts failed creations by reason
	ChannelCreateFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicekeep_channel_create_failures_total",
			Help: "Failed custom channel creations by reason",
		},
		[]string{"reason"},
	)

	ChannelsRetiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicekeep_channels_retired_total",
			Help: "Total custom voice channels deleted after becoming empty",
		},
	)

	// ChannelRetireFailuresTotal counts platform deletes that failed and will be retried
	ChannelRetireFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicekeep_channel_retire_failures_total",
			Help: "Failed custom channel deletions",
		},
	)

	ChannelEditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicekeep_channel_edits_total",
			Help: "Custom channel edits by status",
		},
		[]string{"status"},
	)

	// ChannelsActive tracks live custom channels held by the manager
	ChannelsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicekeep_channels_active",
			Help: "Number of live custom voice channels",
		},
	)
)

// Sweeper
var (
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voicekeep_sweep_duration_seconds",
			Help:    "Duration of a cleanup sweep in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// SweepChannelErrorsTotal counts per-channel errors skipped during a sweep
	SweepChannelErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicekeep_sweep_channel_errors_total",
			Help: "Channels skipped during a sweep because the member count query failed",
		},
	)
)
