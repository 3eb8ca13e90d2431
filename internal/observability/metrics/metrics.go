package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics exposes counters/histograms for reminder dispatch passes.
type DispatchMetrics struct {
	resultsTotal *prometheus.CounterVec
	sendLatency  *prometheus.HistogramVec
	passDuration prometheus.Histogram
	lastPass     prometheus.Gauge
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		resultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "countdown",
			Subsystem: "dispatch",
			Name:      "results_total",
			Help:      "Countdown records processed by dispatch, by outcome",
		}, []string{"status"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "countdown",
			Subsystem: "dispatch",
			Name:      "send_latency_seconds",
			Help:      "Latency of reminder message sends",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "countdown",
			Subsystem: "dispatch",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a full dispatch pass",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		lastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "countdown",
			Subsystem: "dispatch",
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last completed dispatch pass",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.resultsTotal, m.sendLatency, m.passDuration, m.lastPass)
	return m
}

func (m *DispatchMetrics) ObserveResult(status string) {
	if m == nil {
		return
	}
	m.resultsTotal.WithLabelValues(status).Inc()
}

func (m *DispatchMetrics) ObserveSend(success bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.sendLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *DispatchMetrics) ObservePass(seconds float64, finishedUnix float64) {
	if m == nil {
		return
	}
	m.passDuration.Observe(seconds)
	m.lastPass.Set(finishedUnix)
}
