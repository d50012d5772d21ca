package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "engine_ticks_total", Help: "Evaluation passes completed"},
	)
	SignalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_generated_total", Help: "Candidate signals produced per strategy"},
		[]string{"strategy"},
	)
	SignalsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_accepted_total", Help: "Ranked signals accepted per strategy"},
		[]string{"strategy"},
	)
	PositionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "positions_opened_total", Help: "Positions opened"},
		[]string{"symbol", "direction"},
	)
	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "positions_closed_total", Help: "Positions closed per exit reason"},
		[]string{"reason"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "positions_open", Help: "Currently open positions"},
	)
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_tick_duration_seconds",
			Help:    "Duration of one full evaluation pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		SignalsGenerated,
		SignalsAccepted,
		PositionsOpened,
		PositionsClosed,
		OpenPositions,
		TickDuration,
	)
}
