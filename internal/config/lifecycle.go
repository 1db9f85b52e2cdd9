package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LifecycleConfig holds business rules that operators tune without a redeploy.
type LifecycleConfig struct {
	Booking   BookingRules   `mapstructure:"booking"`
	Quote     QuoteRules     `mapstructure:"quote"`
	SLA       SLARules       `mapstructure:"sla"`
	Inventory InventoryRules `mapstructure:"inventory"`
	Outbox    OutboxRules    `mapstructure:"outbox"`
}

type BookingRules struct {
	CancellationLeadTime time.Duration `mapstructure:"cancellation_lead_time"`
	Timezone             string        `mapstructure:"timezone"`
}

// Location resolves the business timezone used to place booking slots.
func (r BookingRules) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(r.Timezone))
	if err != nil || r.Timezone == "" {
		return time.UTC
	}
	return loc
}

type QuoteRules struct {
	Expiry time.Duration `mapstructure:"expiry"`
}

type SLARules struct {
	FirstProof         time.Duration `mapstructure:"first_proof"`
	RevisionTurnaround time.Duration `mapstructure:"revision_turnaround"`
	ProductionDefault  time.Duration `mapstructure:"production_default"`
}

type InventoryRules struct {
	AllowNegativeStock bool `mapstructure:"allow_negative_stock"`
}

type OutboxRules struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		Booking: BookingRules{
			CancellationLeadTime: 24 * time.Hour,
			Timezone:             "UTC",
		},
		Quote: QuoteRules{
			Expiry: 14 * 24 * time.Hour,
		},
		SLA: SLARules{
			FirstProof:         48 * time.Hour,
			RevisionTurnaround: 24 * time.Hour,
			ProductionDefault:  72 * time.Hour,
		},
		Inventory: InventoryRules{
			AllowNegativeStock: true,
		},
		Outbox: OutboxRules{
			MaxAttempts: 10,
		},
	}
}

// LifecycleConfigHolder serves the current rules and swaps them atomically on reload.
type LifecycleConfigHolder struct {
	current atomic.Value // holds LifecycleConfig
}

// NewStaticLifecycleHolder returns a holder that never reloads.
func NewStaticLifecycleHolder(cfg LifecycleConfig) *LifecycleConfigHolder {
	holder := &LifecycleConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewLifecycleConfigHolder(cfg Config, log *zap.Logger) (*LifecycleConfigHolder, error) {
	log = log.Named("config.lifecycle")
	v := viper.New()

	if cfg.LifecycleConfigPath != "" {
		v.SetConfigFile(cfg.LifecycleConfigPath)
	} else {
		v.SetConfigName("lifecycle")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/printflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PRINTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setLifecycleDefaults(v, DefaultLifecycleConfig())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read lifecycle config: %w", err)
		}
		fileLoaded = false
	}

	var rules LifecycleConfig
	if err := v.Unmarshal(&rules); err != nil {
		return nil, fmt.Errorf("decode lifecycle config: %w", err)
	}
	if err := validateLifecycleConfig(rules); err != nil {
		return nil, err
	}

	holder := NewStaticLifecycleHolder(rules)
	if !fileLoaded {
		log.Info("lifecycle config file not found, using defaults")
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LifecycleConfig
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("lifecycle config reload failed", zap.Error(err))
			return
		}
		if err := validateLifecycleConfig(updated); err != nil {
			log.Warn("invalid lifecycle config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("lifecycle config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *LifecycleConfigHolder) Get() LifecycleConfig {
	if h == nil {
		return DefaultLifecycleConfig()
	}
	return h.current.Load().(LifecycleConfig)
}

func setLifecycleDefaults(v *viper.Viper, d LifecycleConfig) {
	v.SetDefault("booking.cancellation_lead_time", d.Booking.CancellationLeadTime)
	v.SetDefault("booking.timezone", d.Booking.Timezone)
	v.SetDefault("quote.expiry", d.Quote.Expiry)
	v.SetDefault("sla.first_proof", d.SLA.FirstProof)
	v.SetDefault("sla.revision_turnaround", d.SLA.RevisionTurnaround)
	v.SetDefault("sla.production_default", d.SLA.ProductionDefault)
	v.SetDefault("inventory.allow_negative_stock", d.Inventory.AllowNegativeStock)
	v.SetDefault("outbox.max_attempts", d.Outbox.MaxAttempts)
}

func validateLifecycleConfig(cfg LifecycleConfig) error {
	if cfg.Booking.CancellationLeadTime < 0 {
		return errors.New("booking.cancellation_lead_time cannot be negative")
	}
	if cfg.Booking.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Booking.Timezone); err != nil {
			return fmt.Errorf("booking.timezone: %w", err)
		}
	}
	if cfg.Quote.Expiry <= 0 {
		return errors.New("quote.expiry must be positive")
	}
	if cfg.SLA.FirstProof <= 0 || cfg.SLA.RevisionTurnaround <= 0 || cfg.SLA.ProductionDefault <= 0 {
		return errors.New("sla durations must be positive")
	}
	if cfg.Outbox.MaxAttempts <= 0 {
		return errors.New("outbox.max_attempts must be positive")
	}
	return nil
}
