package lifecyclemetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/shopspring/decimal"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	inventorydomain "github.com/smallbiznis/printflow/internal/inventory/domain"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	"github.com/smallbiznis/printflow/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) *gorm.DB {
	t.Helper()

	conn := dbtest.Open(t,
		&orderdomain.Order{},
		&sladomain.SlaTimer{},
		&inventorydomain.InventoryItem{},
		&eventdomain.LifecycleEvent{},
	)

	orders := []orderdomain.Order{
		{ID: 1, QuoteID: 11, CustomerID: "c1", ServiceID: 5, Status: orderdomain.StatusInProduction},
		{ID: 2, QuoteID: 12, CustomerID: "c2", ServiceID: 5, Status: orderdomain.StatusInProduction},
		{ID: 3, QuoteID: 13, CustomerID: "c3", ServiceID: 5, Status: orderdomain.StatusCompleted},
	}
	for i := range orders {
		orders[i].CreatedAt, orders[i].UpdatedAt = now, now
	}
	require.NoError(t, conn.Create(&orders).Error)

	completed := now
	timers := []sladomain.SlaTimer{
		{ID: 21, OrderID: 1, TimerType: sladomain.TimerProduction, StartedAt: now, DueAt: now, IsBreached: true},
		{ID: 22, OrderID: 3, TimerType: sladomain.TimerProduction, StartedAt: now, DueAt: now, IsBreached: true, CompletedAt: &completed},
		{ID: 23, OrderID: 2, TimerType: sladomain.TimerProduction, StartedAt: now, DueAt: now},
	}
	for i := range timers {
		timers[i].CreatedAt, timers[i].UpdatedAt = now, now
	}
	require.NoError(t, conn.Create(&timers).Error)

	items := []inventorydomain.InventoryItem{
		{ID: 31, SKU: "PAPER-A4", Name: "A4", Unit: "sheet", QtyOnHand: decimal.NewFromInt(5), ReorderPoint: decimal.NewFromInt(10)},
		{ID: 32, SKU: "INK-K", Name: "Ink", Unit: "ml", QtyOnHand: decimal.NewFromInt(500), ReorderPoint: decimal.NewFromInt(100)},
	}
	for i := range items {
		items[i].CreatedAt, items[i].UpdatedAt = now, now
	}
	require.NoError(t, conn.Create(&items).Error)

	events := []eventdomain.LifecycleEvent{
		{ID: 41, EventType: eventdomain.EventOrderStatusChanged, AggregateType: eventdomain.AggregateOrder, AggregateID: 1, Payload: datatypes.JSON(`{}`), DedupeKey: "a", CreatedAt: now},
		{ID: 42, EventType: eventdomain.EventOrderStatusChanged, AggregateType: eventdomain.AggregateOrder, AggregateID: 2, Payload: datatypes.JSON(`{}`), DedupeKey: "b", CreatedAt: now, PublishedAt: &completed},
		{ID: 43, EventType: eventdomain.EventOrderStatusChanged, AggregateType: eventdomain.AggregateOrder, AggregateID: 3, Payload: datatypes.JSON(`{}`), DedupeKey: "c", CreatedAt: now, FailedAt: &completed},
	}
	require.NoError(t, conn.Create(&events).Error)
	return conn
}

func gaugeValues(t *testing.T, gatherer prometheus.Gatherer) map[string]float64 {
	t.Helper()

	families, err := gatherer.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "/" + label.GetValue()
			}
			out[key] = metric.GetGauge().GetValue()
		}
	}
	return out
}

func TestRefreshSnapshotsLifecycleState(t *testing.T) {
	c := NewCollector(Params{DB: seed(t), Log: zap.NewNop()})
	require.NoError(t, c.Refresh(context.Background()))

	values := gaugeValues(t, c.Registry())
	assert.Equal(t, 2.0, values["printflow_orders/IN_PRODUCTION"])
	assert.Equal(t, 1.0, values["printflow_orders/COMPLETED"])
	assert.Equal(t, 1.0, values["printflow_sla_open_breaches"])
	assert.Equal(t, 1.0, values["printflow_inventory_reorder_items"])
	assert.Equal(t, 1.0, values["printflow_outbox_pending_events"])
}

func TestRefreshDropsDrainedStatuses(t *testing.T) {
	conn := seed(t)
	c := NewCollector(Params{DB: conn, Log: zap.NewNop()})
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, conn.Model(&orderdomain.Order{}).Where("id = ?", 3).Update("status", orderdomain.StatusCancelled).Error)
	require.NoError(t, c.Refresh(context.Background()))

	values := gaugeValues(t, c.Registry())
	_, ok := values["printflow_orders/COMPLETED"]
	assert.False(t, ok)
	assert.Equal(t, 1.0, values["printflow_orders/CANCELLED"])
}

func TestRemoteWritePush(t *testing.T) {
	var received prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, received.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewCollector(Params{DB: seed(t), Log: zap.NewNop()})
	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return now }

	require.NoError(t, c.Push(context.Background(), pusher))
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	found := false
	for _, series := range received.Timeseries {
		for _, label := range series.Labels {
			if label.Name == "__name__" && label.Value == "printflow_sla_open_breaches" {
				found = true
				require.Len(t, series.Samples, 1)
				assert.Equal(t, 1.0, series.Samples[0].Value)
				assert.Equal(t, now.UnixMilli(), series.Samples[0].Timestamp)
			}
		}
	}
	assert.True(t, found)
}

func TestRemoteWriteRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewCollector(Params{DB: seed(t), Log: zap.NewNop()})
	err := c.Push(context.Background(), NewRemoteWritePusher(srv.URL, ""))
	require.Error(t, err)
}

func TestHistogramsAreNotPushed(t *testing.T) {
	families := []*dto.MetricFamily{{
		Name:   proto.String("latency"),
		Type:   dto.MetricType_HISTOGRAM.Enum(),
		Metric: []*dto.Metric{{Histogram: &dto.Histogram{}}},
	}}
	assert.Empty(t, toTimeSeries(families, 0))
}
