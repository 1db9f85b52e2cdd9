package scheduler

import (
	"time"

	"github.com/smallbiznis/printflow/internal/config"
)

const (
	JobExpireQuotes         = "expire_quotes"
	JobScanSLABreaches      = "scan_sla_breaches"
	JobDispatchEvents       = "dispatch_events"
	JobReorderAlerts        = "reorder_alerts"
	JobPushLifecycleMetrics = "push_lifecycle_metrics"
)

// Config controls which jobs run, how often and how much each run may take on.
type Config struct {
	Enabled     bool
	EnabledJobs []string
	BatchSize   int
	JobTimeout  time.Duration
	Specs       map[string]string
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		BatchSize:  100,
		JobTimeout: 30 * time.Second,
		Specs: map[string]string{
			JobExpireQuotes:         "@every 5m",
			JobScanSLABreaches:      "@every 1m",
			JobDispatchEvents:       "@every 10s",
			JobReorderAlerts:        "0 7 * * *",
			JobPushLifecycleMetrics: "@every 1m",
		},
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Scheduler.Enabled,
		EnabledJobs: cfg.Scheduler.EnabledJobs,
		BatchSize:   cfg.Scheduler.BatchSize,
		JobTimeout:  cfg.Scheduler.JobTimeout,
		Specs:       cfg.Scheduler.Specs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	specs := make(map[string]string, len(defaults.Specs))
	for job, spec := range defaults.Specs {
		specs[job] = spec
	}
	for job, spec := range c.Specs {
		if spec != "" {
			specs[job] = spec
		}
	}
	c.Specs = specs
	return c
}
