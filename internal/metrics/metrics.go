// README: Prometheus registry for lifecycle and dispatch metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	TransitionsApplied *prometheus.CounterVec
	Normalizations     prometheus.Counter
	SweepErrors        prometheus.Counter
	SweepDuration      prometheus.Histogram

	TierAttempts     *prometheus.CounterVec
	DispatchLost     prometheus.Counter
	RealtimeDropped  prometheus.Counter
	PendingReplayed  prometheus.Counter
	PendingDepth     prometheus.Gauge
	RealtimeEvicted  prometheus.Counter
	DailyDealsIssued prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "yumzy_order_transitions_total"}, []string{"to"})
	normalizations := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_status_normalizations_total"})
	sweepErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_sweep_errors_total"})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "yumzy_sweep_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	tierAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "yumzy_notify_tier_attempts_total"}, []string{"tier", "outcome"})
	dispatchLost := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_notify_lost_total"})
	realtimeDropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_realtime_dropped_total"})
	pendingReplayed := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_pending_replayed_total"})
	pendingDepth := prometheus.NewGauge(prometheus.GaugeOpts{Name: "yumzy_pending_queue_depth"})
	realtimeEvicted := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_realtime_evicted_total"})
	dailyDeals := prometheus.NewCounter(prometheus.CounterOpts{Name: "yumzy_daily_deals_issued_total"})

	r.MustRegister(
		transitions, normalizations, sweepErrors, sweepDuration,
		tierAttempts, dispatchLost, realtimeDropped, pendingReplayed,
		pendingDepth, realtimeEvicted, dailyDeals,
	)

	return &Registry{
		reg:                r,
		TransitionsApplied: transitions,
		Normalizations:     normalizations,
		SweepErrors:        sweepErrors,
		SweepDuration:      sweepDuration,
		TierAttempts:       tierAttempts,
		DispatchLost:       dispatchLost,
		RealtimeDropped:    realtimeDropped,
		PendingReplayed:    pendingReplayed,
		PendingDepth:       pendingDepth,
		RealtimeEvicted:    realtimeEvicted,
		DailyDealsIssued:   dailyDeals,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
