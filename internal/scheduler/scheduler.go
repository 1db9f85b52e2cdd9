package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/printflow/internal/clock"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	"github.com/smallbiznis/printflow/internal/lifecyclemetrics"
	obsmetrics "github.com/smallbiznis/printflow/internal/observability/metrics"
	quotedomain "github.com/smallbiznis/printflow/internal/quote/domain"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type quoteExpirer interface {
	ExpireStale(ctx context.Context, now time.Time, limit int) (int, error)
}

type breachScanner interface {
	ScanForBreaches(ctx context.Context, now time.Time, limit int) (int, error)
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, limit int) (eventdomain.DispatchResult, error)
}

type reorderSource interface {
	ReorderAlertItems(ctx context.Context) ([]inventorydomain.InventoryItem, error)
}

type metricsPusher interface {
	Push(ctx context.Context, pusher lifecyclemetrics.Pusher) error
}

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Quotes    quotedomain.Service
	SLA       sladomain.Service
	Events    eventdomain.Service
	Inventory inventorydomain.Service
	Collector *lifecyclemetrics.Collector
	Pusher    lifecyclemetrics.Pusher `optional:"true"`
	Lock      RunLock                 `optional:"true"`
	Config    Config                  `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	lock      RunLock
	quotes    quoteExpirer
	sla       breachScanner
	events    eventDispatcher
	inventory reorderSource
	collector metricsPusher
	pusher    lifecyclemetrics.Pusher

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

type job struct {
	name     string
	resource string
	run      func(ctx context.Context) (int, error)
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Quotes == nil || p.SLA == nil || p.Events == nil || p.Inventory == nil || p.Collector == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		lock:      p.Lock,
		quotes:    p.Quotes,
		sla:       p.SLA,
		events:    p.Events,
		inventory: p.Inventory,
		collector: p.Collector,
		pusher:    p.Pusher,
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobExpireQuotes, "quotes", s.ExpireQuotesJob},
		{JobScanSLABreaches, "sla_timers", s.ScanSLABreachesJob},
		{JobDispatchEvents, "lifecycle_events", s.DispatchEventsJob},
		{JobReorderAlerts, "inventory_items", s.ReorderAlertsJob},
		{JobPushLifecycleMetrics, "lifecycle_metrics", s.PushLifecycleMetricsJob},
	}
}

// runJob wraps one execution with the replica lock, timeout, logs and metrics.
// A timeout is soft: the batch stops and the next tick picks up the rest.
func (s *Scheduler) runJob(parent context.Context, j job) error {
	schedMetrics := obsmetrics.Scheduler()

	if s.lock != nil {
		token, ok, err := s.lock.TryLock(parent, lockKey(j.name), s.cfg.JobTimeout+5*time.Second)
		if err != nil {
			schedMetrics.IncJobError(j.name, err)
			s.log.Warn("scheduler lock unavailable", zap.String("job", j.name), zap.Error(err))
			return nil
		}
		if !ok {
			schedMetrics.IncJobSkipped(j.name, obsmetrics.SchedulerBatchSkippedReasonLockHeld)
			return nil
		}
		defer func() {
			if err := s.lock.Release(context.Background(), lockKey(j.name), token); err != nil {
				s.log.Warn("scheduler lock release failed", zap.String("job", j.name), zap.Error(err))
			}
		}()
	}

	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, j.name, s.cfg.BatchSize)
	s.logJobStart(ctx, run)
	schedMetrics.IncJobRun(j.name)

	processed, err := j.run(ctx)
	run.AddProcessed(processed)
	schedMetrics.AddBatchProcessed(j.name, j.resource, processed)
	schedMetrics.ObserveJobDuration(j.name, s.clock.Now().Sub(start))
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(j.name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(j.name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", j.name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", j.name, err)
}

// RunOnce runs every enabled job a single time, in order.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		err = errors.Join(err, s.runJob(ctx, j))
	}
	return err
}

// Start registers enabled jobs on a cron runner. Overlapping ticks of the same
// job inside one process are skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cronLog := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		j := j
		spec := s.cfg.Specs[j.name]
		if _, err := c.AddFunc(spec, func() {
			if err := s.runJob(ctx, j); err != nil {
				s.log.Warn("scheduler job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			cancel()
			return fmt.Errorf("schedule %s (%q): %w", j.name, spec, err)
		}
		s.log.Info("scheduler job registered", zap.String("job", j.name), zap.String("spec", spec))
	}

	s.cron = c
	s.cancel = cancel
	c.Start()
	return nil
}

// Stop cancels running jobs and waits for them until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if enabled == name {
			return true
		}
	}
	return false
}

func (s *Scheduler) ExpireQuotesJob(ctx context.Context) (int, error) {
	return s.quotes.ExpireStale(ctx, s.clock.Now(), s.cfg.BatchSize)
}

func (s *Scheduler) ScanSLABreachesJob(ctx context.Context) (int, error) {
	return s.sla.ScanForBreaches(ctx, s.clock.Now(), s.cfg.BatchSize)
}

func (s *Scheduler) DispatchEventsJob(ctx context.Context) (int, error) {
	result, err := s.events.Dispatch(ctx, s.cfg.BatchSize)
	if err != nil {
		return result.Published, err
	}
	if result.Failed > 0 || result.GaveUp > 0 {
		s.logger(ctx).Warn("event dispatch incomplete",
			zap.Int("claimed", result.Claimed),
			zap.Int("failed", result.Failed),
			zap.Int("gave_up", result.GaveUp),
		)
	}
	return result.Published, nil
}

func (s *Scheduler) ReorderAlertsJob(ctx context.Context) (int, error) {
	items, err := s.inventory.ReorderAlertItems(ctx)
	if err != nil {
		return 0, err
	}
	log := s.logger(ctx)
	for _, item := range items {
		log.Warn("inventory.reorder_needed",
			zap.String("item_id", item.ID.String()),
			zap.String("sku", item.SKU),
			zap.String("qty_on_hand", item.QtyOnHand.String()),
			zap.String("reorder_point", item.ReorderPoint.String()),
		)
	}
	return len(items), nil
}

func (s *Scheduler) PushLifecycleMetricsJob(ctx context.Context) (int, error) {
	if s.pusher == nil {
		obsmetrics.Scheduler().IncJobSkipped(JobPushLifecycleMetrics, "not_configured")
		return 0, nil
	}
	if err := s.collector.Push(ctx, s.pusher); err != nil {
		return 0, err
	}
	return 1, nil
}
