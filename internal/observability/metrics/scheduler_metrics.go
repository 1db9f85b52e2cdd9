package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
)

const (
	SchedulerJobReasonDeadlineExceeded    = "deadline_exceeded"
	SchedulerJobReasonConcurrency         = "concurrency_conflict"
	SchedulerJobReasonUniqueViolation     = "unique_violation"
	SchedulerJobReasonDependency          = "dependency_unavailable"
	SchedulerJobReasonForbidden           = "forbidden"
	SchedulerJobReasonBusinessRule        = "business_rule"
	SchedulerJobReasonUnknown             = "unknown"
	SchedulerBatchSkippedReasonLockHeld   = "lock_held"
	SchedulerBatchSkippedReasonJobPending = "job_pending"
)

// SchedulerMetrics captures background job health for the lifecycle scans.
type SchedulerMetrics struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	batchProcessed *prometheus.CounterVec
	jobSkipped     *prometheus.CounterVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the process-wide scheduler metrics.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the process-wide scheduler metrics, registering
// them on first use with service and env const labels from cfg.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func constLabels(cfg Config) prometheus.Labels {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "printflow"
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "unknown"
	}
	return prometheus.Labels{"service": service, "env": env}
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)

	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "printflow_scheduler_job_runs_total",
			Help:        "Scheduler job runs by name.",
			ConstLabels: labels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "printflow_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: labels,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "printflow_scheduler_job_timeouts_total",
			Help:        "Scheduler jobs that hit their timeout before finishing the batch.",
			ConstLabels: labels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "printflow_scheduler_job_errors_total",
			Help:        "Scheduler job errors by low-cardinality reason.",
			ConstLabels: labels,
		}, []string{"job", "reason"}),
		batchProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "printflow_scheduler_batch_processed_total",
			Help:        "Items processed by scheduler jobs.",
			ConstLabels: labels,
		}, []string{"job", "resource"}),
		jobSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "printflow_scheduler_job_skipped_total",
			Help:        "Scheduler ticks skipped without running the job.",
			ConstLabels: labels,
		}, []string{"job", "reason"}),
	}
	registerer.MustRegister(m.jobRuns, m.jobDuration, m.jobTimeouts, m.jobErrors, m.batchProcessed, m.jobSkipped)
	return m
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifySchedulerJobReason(err)).Inc()
}

// AddBatchProcessed adds count items of resource handled by job.
func (m *SchedulerMetrics) AddBatchProcessed(job, resource string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.batchProcessed.WithLabelValues(job, resource).Add(float64(count))
}

func (m *SchedulerMetrics) IncJobSkipped(job, reason string) {
	if m == nil {
		return
	}
	m.jobSkipped.WithLabelValues(job, reason).Inc()
}

// ClassifySchedulerJobReason maps job errors to low-cardinality reasons.
func ClassifySchedulerJobReason(err error) string {
	if err == nil {
		return SchedulerJobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SchedulerJobReasonDeadlineExceeded
	}
	if pkgdb.IsDuplicateKeyErr(err) {
		return SchedulerJobReasonUniqueViolation
	}
	if pkgdb.IsConflictErr(err) {
		return SchedulerJobReasonConcurrency
	}
	switch errs.KindOf(err) {
	case errs.KindConcurrencyConflict:
		return SchedulerJobReasonConcurrency
	case errs.KindDependencyUnavailable:
		return SchedulerJobReasonDependency
	case errs.KindForbidden:
		return SchedulerJobReasonForbidden
	case errs.KindInternal:
		if pkgdb.IsUnavailableErr(err) {
			return SchedulerJobReasonDependency
		}
		return SchedulerJobReasonUnknown
	default:
		return SchedulerJobReasonBusinessRule
	}
}
