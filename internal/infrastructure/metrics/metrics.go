package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "omran_backup"

// Recorder owns a private registry so several instances can coexist in
// one process (tests, embedded use).
type Recorder struct {
	registry *prometheus.Registry

	created          *prometheus.CounterVec
	failures         *prometheus.CounterVec
	restoredKeys     prometheus.Counter
	checksumMismatch prometheus.Counter
	retentionDeleted prometheus.Counter
	exports          *prometheus.CounterVec
	imports          *prometheus.CounterVec
	backupBytes      prometheus.Histogram
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		created: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "created_total",
			Help:      "Backups created, by trigger.",
		}, []string{"automatic"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed backup operations, by operation.",
		}, []string{"operation"}),
		restoredKeys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restored_keys_total",
			Help:      "Store keys written by restores.",
		}),
		checksumMismatch: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checksum_mismatches_total",
			Help:      "Restores whose recorded checksum did not match the data.",
		}),
		retentionDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Backups removed by retention cleanup.",
		}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports, by channel and whether the local fallback was used.",
		}, []string{"channel", "fallback"}),
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Imported backup files, by format adapter.",
		}, []string{"adapter"}),
		backupBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "size_bytes",
			Help:      "Serialized size of created backups.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}
}

func (r *Recorder) BackupCreated(automatic bool, size int64) {
	r.created.WithLabelValues(strconv.FormatBool(automatic)).Inc()
	r.backupBytes.Observe(float64(size))
}

func (r *Recorder) OperationFailed(operation string) {
	r.failures.WithLabelValues(operation).Inc()
}

func (r *Recorder) Restored(keys int) {
	r.restoredKeys.Add(float64(keys))
}

func (r *Recorder) ChecksumMismatch() {
	r.checksumMismatch.Inc()
}

func (r *Recorder) RetentionDeleted(n int) {
	r.retentionDeleted.Add(float64(n))
}

func (r *Recorder) Exported(channel string, fallback bool) {
	r.exports.WithLabelValues(channel, strconv.FormatBool(fallback)).Inc()
}

func (r *Recorder) Imported(adapter string) {
	r.imports.WithLabelValues(adapter).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
