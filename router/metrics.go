// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package router

import "github.com/prometheus/client_golang/prometheus"

// UpdaterMetrics holds the collectors exported for an Updater's watch loop.
type UpdaterMetrics struct {
	ReconnectCount    prometheus.Counter
	BackoffIntervalMs prometheus.Gauge
	TotalGroups       prometheus.Gauge
	EpochRejections   prometheus.Counter
}

// NewUpdaterMetrics constructs an UpdaterMetrics; callers register the
// returned collectors with whatever registry they use.
func NewUpdaterMetrics(namespace string, constLabels prometheus.Labels) *UpdaterMetrics {
	return &UpdaterMetrics{
		ReconnectCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "router",
			Name:        "reconnects_total",
			Help:        "Number of times the router had to reconnect to the root service watch stream.",
			ConstLabels: constLabels,
		}),
		BackoffIntervalMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "router",
			Name:        "backoff_interval_ms",
			Help:        "Current reconnect backoff interval in milliseconds (0 when connected).",
			ConstLabels: constLabels,
		}),
		TotalGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "router",
			Name:        "groups_total",
			Help:        "Number of replica groups currently known to the router.",
			ConstLabels: constLabels,
		}),
		EpochRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "router",
			Name:        "epoch_rejections_total",
			Help:        "Group descriptor updates discarded for carrying a non-newer epoch.",
			ConstLabels: constLabels,
		}),
	}
}

// Collectors returns the metrics as a slice suitable for
// prometheus.Registry.MustRegister.
func (m *UpdaterMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.ReconnectCount, m.BackoffIntervalMs, m.TotalGroups, m.EpochRejections}
}
