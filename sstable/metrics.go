// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters exported for a table reader's block I/O, as a
// struct of collectors rather than package-global vectors.
type Metrics struct {
	BlockReads      prometheus.Counter
	BlockReadBytes  prometheus.Counter
	BlockCacheMiss  prometheus.Counter
	BlockReadErrors prometheus.Counter
}

// NewMetrics constructs a Metrics with the given label values (typically a
// table or store identifier) and registers nothing on its own; callers
// register the returned collectors with whatever registry they use.
func NewMetrics(namespace, subsystem string, constLabels prometheus.Labels) *Metrics {
	return &Metrics{
		BlockReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "block_reads_total",
			Help:        "Number of data and index blocks read from sstable files.",
			ConstLabels: constLabels,
		}),
		BlockReadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "block_read_bytes_total",
			Help:        "Bytes read from sstable files while loading blocks.",
			ConstLabels: constLabels,
		}),
		BlockCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "block_cache_misses_total",
			Help:        "Block reads that required a round trip to the underlying file.",
			ConstLabels: constLabels,
		}),
		BlockReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "block_read_errors_total",
			Help:        "Block reads that failed checksum validation or I/O.",
			ConstLabels: constLabels,
		}),
	}
}

// Collectors returns the metrics as a slice suitable for
// prometheus.Registry.MustRegister.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.BlockReads, m.BlockReadBytes, m.BlockCacheMiss, m.BlockReadErrors}
}
