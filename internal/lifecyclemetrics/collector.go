// Package lifecyclemetrics snapshots lifecycle gauges from the database into a
// private registry that backs /metrics and the optional push exporter.
package lifecyclemetrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// Collector owns the lifecycle gauges. Refresh must run before a gather to
// reflect the current database state.
type Collector struct {
	db       *gorm.DB
	log      *zap.Logger
	registry *prometheus.Registry

	ordersByStatus *prometheus.GaugeVec
	openBreaches   prometheus.Gauge
	reorderItems   prometheus.Gauge
	pendingEvents  prometheus.Gauge
}

func NewCollector(p Params) *Collector {
	c := &Collector{
		db:       p.DB,
		log:      p.Log.Named("lifecyclemetrics"),
		registry: prometheus.NewRegistry(),
		ordersByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "printflow_orders",
			Help: "Orders by lifecycle status.",
		}, []string{"status"}),
		openBreaches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "printflow_sla_open_breaches",
			Help: "Breached SLA timers that are still running.",
		}),
		reorderItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "printflow_inventory_reorder_items",
			Help: "Inventory items at or below their reorder point.",
		}),
		pendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "printflow_outbox_pending_events",
			Help: "Lifecycle events not yet handed to the notifier.",
		}),
	}
	c.registry.MustRegister(c.ordersByStatus, c.openBreaches, c.reorderItems, c.pendingEvents)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Refresh reloads every gauge. The order gauge is reset so statuses that
// drained to zero disappear instead of going stale.
func (c *Collector) Refresh(ctx context.Context) error {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := c.db.WithContext(ctx).
		Raw(`SELECT status, COUNT(*) AS total FROM orders GROUP BY status`).
		Scan(&rows).Error; err != nil {
		return err
	}
	c.ordersByStatus.Reset()
	for _, row := range rows {
		c.ordersByStatus.WithLabelValues(row.Status).Set(float64(row.Total))
	}

	counts := []struct {
		gauge prometheus.Gauge
		query string
		args  []any
	}{
		{c.openBreaches, `SELECT COUNT(*) FROM sla_timers WHERE is_breached = ? AND completed_at IS NULL`, []any{true}},
		{c.reorderItems, `SELECT COUNT(*) FROM inventory_items WHERE qty_on_hand <= reorder_point`, nil},
		{c.pendingEvents, `SELECT COUNT(*) FROM lifecycle_events WHERE published_at IS NULL AND failed_at IS NULL`, nil},
	}
	for _, item := range counts {
		var total int64
		if err := c.db.WithContext(ctx).Raw(item.query, item.args...).Scan(&total).Error; err != nil {
			return err
		}
		item.gauge.Set(float64(total))
	}
	return nil
}

// Handler serves the process registry together with the lifecycle gauges,
// refreshing the gauges on every scrape.
func (c *Collector) Handler() http.Handler {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, c.registry}
	inner := promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := c.Refresh(r.Context()); err != nil {
			c.log.Warn("refresh lifecycle gauges failed", zap.Error(err))
		}
		inner.ServeHTTP(w, r)
	})
}

// Push refreshes the gauges and hands the registry to pusher. A nil pusher
// means pushing is not configured.
func (c *Collector) Push(ctx context.Context, pusher Pusher) error {
	if pusher == nil {
		return nil
	}
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	return pusher.Push(ctx, c.registry)
}
