package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixfold/image-processor/internal/instance"
)

type Options struct {
	Labels prometheus.Labels
}

func copyLabels(p prometheus.Labels) prometheus.Labels {
	x := prometheus.Labels{}
	for k, v := range p {
		x[k] = v
	}

	return x
}

func New(o Options) instance.Prometheus {
	totalCompletedJobs := copyLabels(o.Labels)
	totalFailedJobs := copyLabels(o.Labels)
	rejectedOverloaded := copyLabels(o.Labels)
	rejectedUnavailable := copyLabels(o.Labels)
	totalBytesIn := copyLabels(o.Labels)
	totalBytesOut := copyLabels(o.Labels)

	totalCompletedJobs["state"] = "completed"
	totalFailedJobs["state"] = "failed"

	rejectedOverloaded["reason"] = "overloaded"
	rejectedUnavailable["reason"] = "unavailable"

	totalBytesIn["direction"] = "in"
	totalBytesOut["direction"] = "out"

	return &Instance{
		totalCompletedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "total_jobs",
			Help:        "The total number of completed jobs",
			ConstLabels: totalCompletedJobs,
		}),
		totalFailedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "total_jobs",
			Help:        "The total number of failed jobs",
			ConstLabels: totalFailedJobs,
		}),
		rejectedOverloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "rejected_jobs",
			Help:        "The number of admissions rejected at the queue-depth limit",
			ConstLabels: rejectedOverloaded,
		}),
		rejectedUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "rejected_jobs",
			Help:        "The number of admissions rejected during shutdown drain",
			ConstLabels: rejectedUnavailable,
		}),
		timedOutJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "timed_out_jobs",
			Help:        "The number of jobs that exceeded a deadline",
			ConstLabels: copyLabels(o.Labels),
		}),
		cancelledJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "cancelled_jobs",
			Help:        "The number of jobs aborted by the caller",
			ConstLabels: copyLabels(o.Labels),
		}),
		currentJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "image_processor",
			Name:        "current_jobs",
			Help:        "The current number of running jobs",
			ConstLabels: copyLabels(o.Labels),
		}),
		queuedJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "image_processor",
			Name:        "queued_jobs",
			Help:        "The current number of jobs waiting for a slot",
			ConstLabels: copyLabels(o.Labels),
		}),
		jobDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_processor",
			Name:        "job_duration_seconds",
			Help:        "The seconds spent running jobs",
			ConstLabels: copyLabels(o.Labels),
		}),
		transformDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_processor",
			Name:        "transform_duration_seconds",
			Help:        "The seconds spent in the transform pipeline",
			ConstLabels: copyLabels(o.Labels),
		}),
		metadataDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "image_processor",
			Name:        "metadata_duration_seconds",
			Help:        "The seconds spent extracting metadata",
			ConstLabels: copyLabels(o.Labels),
		}),
		totalBytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "total_bytes",
			Help:        "The total number of bytes received",
			ConstLabels: totalBytesIn,
		}),
		totalBytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "image_processor",
			Name:        "total_bytes",
			Help:        "The total number of bytes produced",
			ConstLabels: totalBytesOut,
		}),
	}
}

type Instance struct {
	totalCompletedJobs  prometheus.Counter
	totalFailedJobs     prometheus.Counter
	rejectedOverloaded  prometheus.Counter
	rejectedUnavailable prometheus.Counter
	timedOutJobs        prometheus.Counter
	cancelledJobs       prometheus.Counter
	currentJobs         prometheus.Gauge
	queuedJobs          prometheus.Gauge
	jobDurationSeconds  prometheus.Histogram

	transformDurationSeconds prometheus.Histogram
	metadataDurationSeconds  prometheus.Histogram

	totalBytesIn  prometheus.Counter
	totalBytesOut prometheus.Counter
}

func (m *Instance) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.totalCompletedJobs,
		m.totalFailedJobs,
		m.rejectedOverloaded,
		m.rejectedUnavailable,
		m.timedOutJobs,
		m.cancelledJobs,
		m.currentJobs,
		m.queuedJobs,
		m.jobDurationSeconds,

		m.transformDurationSeconds,
		m.metadataDurationSeconds,

		m.totalBytesIn,
		m.totalBytesOut,
	)
}

func (m *Instance) StartJob() func(success bool) {
	start := time.Now()
	m.currentJobs.Inc()

	return func(success bool) {
		if success {
			m.totalCompletedJobs.Inc()
		} else {
			m.totalFailedJobs.Inc()
		}
		m.currentJobs.Dec()
		m.jobDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) JobQueued() func() {
	m.queuedJobs.Inc()

	return func() {
		m.queuedJobs.Dec()
	}
}

func (m *Instance) RejectedOverloaded() {
	m.rejectedOverloaded.Inc()
}

func (m *Instance) RejectedUnavailable() {
	m.rejectedUnavailable.Inc()
}

func (m *Instance) JobTimedOut() {
	m.timedOutJobs.Inc()
}

func (m *Instance) JobCancelled() {
	m.cancelledJobs.Inc()
}

func (m *Instance) Transform() func() {
	start := time.Now()

	return func() {
		m.transformDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) ExtractMetadata() func() {
	start := time.Now()

	return func() {
		m.metadataDurationSeconds.Observe(float64(time.Since(start)/time.Millisecond) / 1000)
	}
}

func (m *Instance) TotalBytesIn(bytes int) {
	m.totalBytesIn.Add(float64(bytes))
}

func (m *Instance) TotalBytesOut(bytes int) {
	m.totalBytesOut.Add(float64(bytes))
}
