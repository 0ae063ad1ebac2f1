package pebbledb

import (
	"github.com/ValentinKolb/syncstore/lib/db"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the internal metrics of a pebble engine to prometheus
type Collector struct {
	db *pebble.DB

	compactionCount         *prometheus.Desc
	compactionEstimatedDebt *prometheus.Desc
	compactionInProgress    *prometheus.Desc

	memtableSize  *prometheus.Desc
	memtableCount *prometheus.Desc

	walFiles        *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesIn      *prometheus.Desc
	walBytesWritten *prometheus.Desc

	diskUsage *prometheus.Desc
}

// NewCollector returns a collector for engine, or false if engine is not a pebble engine.
func NewCollector(engine db.KVEngine) (*Collector, bool) {
	e, ok := engine.(*pebbleImpl)
	if !ok {
		return nil, false
	}
	labels := prometheus.Labels{"path": e.path}

	return &Collector{
		db: e.db,

		compactionCount: prometheus.NewDesc(
			"syncstore_pebble_compaction_count_total",
			"Total number of compactions performed",
			nil, labels,
		),
		compactionEstimatedDebt: prometheus.NewDesc(
			"syncstore_pebble_compaction_estimated_debt_bytes",
			"Estimated number of bytes that need to be compacted to reach a stable state",
			nil, labels,
		),
		compactionInProgress: prometheus.NewDesc(
			"syncstore_pebble_compaction_in_progress_bytes",
			"Number of bytes being compacted currently",
			nil, labels,
		),

		memtableSize: prometheus.NewDesc(
			"syncstore_pebble_memtable_size_bytes",
			"Current size of the memtable in bytes",
			nil, labels,
		),
		memtableCount: prometheus.NewDesc(
			"syncstore_pebble_memtable_count",
			"Current count of memtables",
			nil, labels,
		),

		walFiles: prometheus.NewDesc(
			"syncstore_pebble_wal_files",
			"Number of live WAL files",
			nil, labels,
		),
		walSize: prometheus.NewDesc(
			"syncstore_pebble_wal_size_bytes",
			"Size of live WAL data in bytes",
			nil, labels,
		),
		walBytesIn: prometheus.NewDesc(
			"syncstore_pebble_wal_bytes_in_total",
			"Total logical bytes written to the WAL",
			nil, labels,
		),
		walBytesWritten: prometheus.NewDesc(
			"syncstore_pebble_wal_bytes_written_total",
			"Total physical bytes written to the WAL",
			nil, labels,
		),

		diskUsage: prometheus.NewDesc(
			"syncstore_pebble_disk_usage_bytes",
			"Total disk space used by the engine",
			nil, labels,
		),
	}, true
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.compactionCount
	ch <- c.compactionEstimatedDebt
	ch <- c.compactionInProgress

	ch <- c.memtableSize
	ch <- c.memtableCount

	ch <- c.walFiles
	ch <- c.walSize
	ch <- c.walBytesIn
	ch <- c.walBytesWritten

	ch <- c.diskUsage
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.db.Metrics()

	ch <- prometheus.MustNewConstMetric(c.compactionCount, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(c.compactionEstimatedDebt, prometheus.GaugeValue, float64(m.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(c.compactionInProgress, prometheus.GaugeValue, float64(m.Compact.InProgressBytes))

	ch <- prometheus.MustNewConstMetric(c.memtableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(c.memtableCount, prometheus.GaugeValue, float64(m.MemTable.Count))

	ch <- prometheus.MustNewConstMetric(c.walFiles, prometheus.GaugeValue, float64(m.WAL.Files))
	ch <- prometheus.MustNewConstMetric(c.walSize, prometheus.GaugeValue, float64(m.WAL.Size))
	ch <- prometheus.MustNewConstMetric(c.walBytesIn, prometheus.CounterValue, float64(m.WAL.BytesIn))
	ch <- prometheus.MustNewConstMetric(c.walBytesWritten, prometheus.CounterValue, float64(m.WAL.BytesWritten))

	ch <- prometheus.MustNewConstMetric(c.diskUsage, prometheus.GaugeValue, float64(m.DiskSpaceUsage()))
}
