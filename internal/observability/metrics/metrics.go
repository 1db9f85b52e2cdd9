package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes order lifecycle instruments.
type Metrics struct {
	statusTransitions metric.Int64Counter
	payments          metric.Int64Counter
	bookings          metric.Int64Counter
	slaBreaches       metric.Int64Counter
	eventsDispatched  metric.Int64Counter
}

// NewProvider configures and registers the global meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}
	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}
	return provider, nil
}

// New builds the domain instruments from provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "printflow"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.statusTransitions, err = meter.Int64Counter("printflow_order_status_transitions_total"); err != nil {
		return nil, err
	}
	if m.payments, err = meter.Int64Counter("printflow_payments_total"); err != nil {
		return nil, err
	}
	if m.bookings, err = meter.Int64Counter("printflow_bookings_total"); err != nil {
		return nil, err
	}
	if m.slaBreaches, err = meter.Int64Counter("printflow_sla_breaches_total"); err != nil {
		return nil, err
	}
	if m.eventsDispatched, err = meter.Int64Counter("printflow_events_dispatched_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordStatusTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	)...))
}

func (m *Metrics) RecordPayment(ctx context.Context, method, status string) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	)...))
}

func (m *Metrics) RecordBooking(ctx context.Context, slotType, status string) {
	if m == nil {
		return
	}
	m.bookings.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("slot_type", slotType),
		attribute.String("status", status),
	)...))
}

func (m *Metrics) RecordSLABreach(ctx context.Context, slaType string) {
	if m == nil {
		return
	}
	m.slaBreaches.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("sla_type", slaType))...))
}

// RecordEventDispatched counts outbox deliveries; channel is email or sms.
func (m *Metrics) RecordEventDispatched(ctx context.Context, eventType, channel, status string) {
	if m == nil {
		return
	}
	m.eventsDispatched.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("event_type", eventType),
		attribute.String("channel", channel),
		attribute.String("status", status),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Order, customer and booking ids are never allowed as labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"from":        {},
	"to":          {},
	"method":      {},
	"status":      {},
	"slot_type":   {},
	"sla_type":    {},
	"event_type":  {},
	"channel":     {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
