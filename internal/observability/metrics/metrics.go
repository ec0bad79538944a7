package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "presence_"

	// IngestResultSuccess labels a successful append.
	IngestResultSuccess = "success"
	// IngestResultError labels a failed append.
	IngestResultError = "error"
)

var (
	registerOnce sync.Once

	ingestTotal   *prometheus.CounterVec
	ingestErrors  *prometheus.CounterVec
	ingestLatency *prometheus.HistogramVec

	decodeErrors *prometheus.CounterVec

	reconstructLatency *prometheus.HistogramVec

	exportTotal *prometheus.CounterVec

	samplerRuns     prometheus.Counter
	samplerSubjects prometheus.Gauge

	eventLogRows prometheus.Gauge
)

// EventCounter reports the presence log depth.
type EventCounter interface {
	EventCount(ctx context.Context) (int64, error)
}

// Init registers observability metrics and starts the log-depth gauge loop.
func Init(counter EventCounter, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_total",
				Help: "Total presence log appends by source and result",
			},
			[]string{"source", "result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)

		decodeErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "connector_decode_errors_total",
				Help: "Connector envelope decode failures by topic",
			},
			[]string{"topic"},
		)

		reconstructLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "reconstruct_latency_seconds",
				Help:    "Interval reconstruction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"filtered"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Report exports by format",
			},
			[]string{"format"},
		)

		samplerRuns = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sampler_runs_total",
				Help: "Completed sampler sweeps",
			},
		)
		samplerSubjects = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sampler_subjects",
				Help: "Subjects recorded by the last sampler sweep",
			},
		)

		eventLogRows = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "event_log_rows",
				Help: "Rows in the presence log",
			},
		)

		prometheus.MustRegister(
			ingestTotal,
			ingestErrors,
			ingestLatency,
			decodeErrors,
			reconstructLatency,
			exportTotal,
			samplerRuns,
			samplerSubjects,
			eventLogRows,
		)

		if counter != nil {
			go pollEventCount(counter, logger)
		}
	})
}

func pollEventCount(counter EventCounter, logger *log.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		count, err := counter.EventCount(ctx)
		cancel()
		if err != nil {
			if logger != nil {
				logger.Printf("metrics: event count error: %v", err)
			}
			continue
		}
		eventLogRows.Set(float64(count))
	}
}

// ObserveIngest records one append with its latency.
func ObserveIngest(source, result string, elapsed time.Duration) {
	if ingestTotal == nil {
		return
	}
	ingestTotal.WithLabelValues(source, result).Inc()
	ingestLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// IncIngestError counts one ingest failure by reason.
func IncIngestError(reason string) {
	if ingestErrors == nil {
		return
	}
	ingestErrors.WithLabelValues(reason).Inc()
}

// IncDecodeError counts one connector decode failure.
func IncDecodeError(topic string) {
	if decodeErrors == nil {
		return
	}
	decodeErrors.WithLabelValues(topic).Inc()
}

// ObserveReconstruction records one reconstruction with its latency.
func ObserveReconstruction(filtered bool, elapsed time.Duration) {
	if reconstructLatency == nil {
		return
	}
	label := "no"
	if filtered {
		label = "yes"
	}
	reconstructLatency.WithLabelValues(label).Observe(elapsed.Seconds())
}

// IncExport counts one report export by format.
func IncExport(format string) {
	if exportTotal == nil {
		return
	}
	exportTotal.WithLabelValues(format).Inc()
}

// RecordSamplerSweep records one completed sampler sweep.
func RecordSamplerSweep(subjects int) {
	if samplerRuns == nil {
		return
	}
	samplerRuns.Inc()
	samplerSubjects.Set(float64(subjects))
}
