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

// Metrics exposes application-level instruments.
type Metrics struct {
	couponsIssued    metric.Int64Counter
	issuanceRejected metric.Int64Counter
	orderTransitions metric.Int64Counter
	amendments       metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tably"
	}
	meter := provider.Meter(name)

	couponsIssued, err := meter.Int64Counter("tably_coupons_issued_total")
	if err != nil {
		return nil, err
	}
	issuanceRejected, err := meter.Int64Counter("tably_issuance_rejected_total")
	if err != nil {
		return nil, err
	}
	orderTransitions, err := meter.Int64Counter("tably_order_transitions_total")
	if err != nil {
		return nil, err
	}
	amendments, err := meter.Int64Counter("tably_order_amendments_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		couponsIssued:    couponsIssued,
		issuanceRejected: issuanceRejected,
		orderTransitions: orderTransitions,
		amendments:       amendments,
	}, nil
}

// RecordCouponsIssued adds issued coupon counts for a program.
func (m *Metrics) RecordCouponsIssued(ctx context.Context, programID string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.couponsIssued.Add(ctx, count, metric.WithAttributes(
		attribute.String("program_id", strings.TrimSpace(programID)),
	))
}

// RecordIssuanceRejected counts issuance requests rejected before commit.
func (m *Metrics) RecordIssuanceRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.issuanceRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", strings.TrimSpace(reason)),
	))
}

// RecordOrderTransition counts applied status transitions.
func (m *Metrics) RecordOrderTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordAmendment counts created order amendments by type.
func (m *Metrics) RecordAmendment(ctx context.Context, amendmentType string) {
	if m == nil {
		return
	}
	m.amendments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", amendmentType),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch protocol {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
