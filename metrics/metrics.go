// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// metrics instruments the Block Repository with Prometheus counters
// and gauges. The teacher's own go.mod already depends on
// github.com/prometheus/client_golang for its RPC and peer-discovery
// metrics; this package gives the storage layer its own home for the
// same library.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters and gauges the repository updates.
// A nil *Metrics is valid and every method on it is a no-op, so
// wiring metrics is optional.
type Metrics struct {
	BlocksWritten prometheus.Counter
	BlocksRead    prometheus.Counter
	TxIndexHits   prometheus.Counter
	TxIndexMisses prometheus.Counter
	BlocksDeleted prometheus.Counter
	ReindexRuns   prometheus.Counter
	TipHeight     prometheus.Gauge
}

// New registers a fresh set of metrics against reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockrepo",
			Name:      "blocks_written_total",
			Help:      "Number of block rows written by PutBlocks.",
		}),
		BlocksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockrepo",
			Name:      "blocks_read_total",
			Help:      "Number of block rows returned by GetBlock/GetBlocks.",
		}),
		TxIndexHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockrepo",
			Name:      "tx_index_hits_total",
			Help:      "Number of transaction lookups resolved via tx_index.",
		}),
		TxIndexMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockrepo",
			Name:      "tx_index_misses_total",
			Help:      "Number of transaction lookups that missed tx_index or the referenced block.",
		}),
		BlocksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockrepo",
			Name:      "blocks_deleted_total",
			Help:      "Number of block rows removed by Delete/DeleteBlocks.",
		}),
		ReindexRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockrepo",
			Name:      "reindex_runs_total",
			Help:      "Number of completed ReIndex runs.",
		}),
		TipHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockrepo",
			Name:      "tip_height",
			Help:      "Current repository tip height.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.BlocksWritten, m.BlocksRead, m.TxIndexHits,
			m.TxIndexMisses, m.BlocksDeleted, m.ReindexRuns, m.TipHeight,
		)
	}
	return m
}

// IncBlocksWritten is a no-op on a nil *Metrics, so wiring metrics
// into a Repository is optional.
func (m *Metrics) IncBlocksWritten(n int) {
	if m == nil {
		return
	}
	m.BlocksWritten.Add(float64(n))
}

func (m *Metrics) IncBlocksRead(n int) {
	if m == nil {
		return
	}
	m.BlocksRead.Add(float64(n))
}

func (m *Metrics) IncTxIndexHit() {
	if m == nil {
		return
	}
	m.TxIndexHits.Inc()
}

func (m *Metrics) IncTxIndexMiss() {
	if m == nil {
		return
	}
	m.TxIndexMisses.Inc()
}

func (m *Metrics) IncBlocksDeleted(n int) {
	if m == nil {
		return
	}
	m.BlocksDeleted.Add(float64(n))
}

func (m *Metrics) IncReindexRuns() {
	if m == nil {
		return
	}
	m.ReindexRuns.Inc()
}

func (m *Metrics) SetTipHeight(height uint64) {
	if m == nil {
		return
	}
	m.TipHeight.Set(float64(height))
}
