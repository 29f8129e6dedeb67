// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package metrics exports notification counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dhcp6notify"

// Recorder counts notifications and decode skips. It satisfies
// notifier.Recorder.
type Recorder struct {
	notifications *prometheus.CounterVec
	skipped       prometheus.Counter
	decodeSkipped *prometheus.CounterVec
	subscribers   prometheus.Gauge
}

// NewRecorder registers the counters with reg. A nil reg selects the default
// registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of notifications published, by status",
			},
			[]string{"status"},
		),
		skipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_skipped_total",
				Help:      "Total number of notifications not built because nobody was subscribed",
			},
		),
		decodeSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_skipped_total",
				Help:      "Total number of malformed records left out of notifications",
			},
			[]string{"component"},
		),
		subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "subscribers",
				Help:      "Number of open notification streams",
			},
		),
	}
}

func (r *Recorder) NotificationSent(status string) {
	r.notifications.WithLabelValues(status).Inc()
}

func (r *Recorder) NotificationSkipped() {
	r.skipped.Inc()
}

func (r *Recorder) DecodeSkipped(component string) {
	r.decodeSkipped.WithLabelValues(component).Inc()
}

func (r *Recorder) SetSubscribers(n int) {
	r.subscribers.Set(float64(n))
}
