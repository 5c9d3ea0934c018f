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
	usageImport      metric.Int64Counter
	usageRecords     metric.Int64Counter
	reactions        metric.Int64Counter
	familyDetail     metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
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

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "revitfy"
	}
	meter := provider.Meter(name)

	usageImport, err := meter.Int64Counter("revitfy_usage_import_total")
	if err != nil {
		return nil, err
	}
	usageRecords, err := meter.Int64Counter("revitfy_usage_records_total")
	if err != nil {
		return nil, err
	}
	reactions, err := meter.Int64Counter("revitfy_reactions_total")
	if err != nil {
		return nil, err
	}
	familyDetail, err := meter.Int64Counter("revitfy_family_detail_reads_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("revitfy_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("revitfy_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		usageImport:      usageImport,
		usageRecords:     usageRecords,
		reactions:        reactions,
		familyDetail:     familyDetail,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordUsageImport increments processed import snapshots.
func (m *Metrics) RecordUsageImport(ctx context.Context, projectName string, rows int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("project", strings.TrimSpace(projectName)))
	m.usageImport.Add(ctx, 1, attrs)
	m.usageRecords.Add(ctx, rows, attrs)
}

// RecordReaction increments reaction writes by entity type and resulting state.
func (m *Metrics) RecordReaction(ctx context.Context, entityType, state string) {
	if m == nil {
		return
	}
	m.reactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("state", state),
	))
}

// RecordFamilyDetail increments aggregation reads.
func (m *Metrics) RecordFamilyDetail(ctx context.Context) {
	if m == nil {
		return
	}
	m.familyDetail.Add(ctx, 1)
}

// RecordRateLimit increments allow/deny counts for the import limiter.
func (m *Metrics) RecordRateLimit(ctx context.Context, allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.rateLimitAllowed.Add(ctx, 1)
		return
	}
	m.rateLimitDenied.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp metrics protocol %q", protocol)
	}
}
