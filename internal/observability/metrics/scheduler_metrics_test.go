package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/printflow/pkg/errs"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("scan: %w", context.DeadlineExceeded), want: SchedulerJobReasonDeadlineExceeded},
		{name: "forbidden", err: errs.ErrForbidden, want: SchedulerJobReasonForbidden},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonConcurrency},
		{name: "version_conflict", err: errs.ErrConcurrencyConflict, want: SchedulerJobReasonConcurrency},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "smtp_down", err: errs.ErrDependencyUnavailable, want: SchedulerJobReasonDependency},
		{name: "business_rule", err: errs.New(errs.KindInvalidState, "order_not_active", "order not active"), want: SchedulerJobReasonBusinessRule},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{ServiceName: "printflow", Environment: "test"})

	m.AddBatchProcessed("scan_sla_breaches", "sla_timers", 3)
	m.AddBatchProcessed("scan_sla_breaches", "sla_timers", 0)

	got := testutil.ToFloat64(m.batchProcessed.WithLabelValues("scan_sla_breaches", "sla_timers"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestIncJobSkipped(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry, Config{})

	m.IncJobSkipped("expire_quotes", SchedulerBatchSkippedReasonLockHeld)

	got := testutil.ToFloat64(m.jobSkipped.WithLabelValues("expire_quotes", SchedulerBatchSkippedReasonLockHeld))
	if got != 1 {
		t.Fatalf("expected 1 skipped run, got %v", got)
	}
}
