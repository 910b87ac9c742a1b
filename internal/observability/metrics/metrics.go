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
	priceQuotes      metric.Int64Counter
	serialsIssued    metric.Int64Counter
	serialRetries    metric.Int64Counter
	invoicesSigned   metric.Int64Counter
	reportExports    metric.Int64Counter
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
		name = "statement"
	}
	meter := provider.Meter(name)

	priceQuotes, err := meter.Int64Counter("statement_price_quotes_total")
	if err != nil {
		return nil, err
	}
	serialsIssued, err := meter.Int64Counter("statement_serials_issued_total")
	if err != nil {
		return nil, err
	}
	serialRetries, err := meter.Int64Counter("statement_serial_retries_total")
	if err != nil {
		return nil, err
	}
	invoicesSigned, err := meter.Int64Counter("statement_invoices_signed_total")
	if err != nil {
		return nil, err
	}
	reportExports, err := meter.Int64Counter("statement_report_exports_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("statement_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("statement_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		priceQuotes:      priceQuotes,
		serialsIssued:    serialsIssued,
		serialRetries:    serialRetries,
		invoicesSigned:   invoicesSigned,
		reportExports:    reportExports,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// NewNoop returns instruments backed by a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordPriceQuote counts resolved prices by cascade level and source.
func (m *Metrics) RecordPriceQuote(ctx context.Context, level, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("level", strings.TrimSpace(level)),
		attribute.String("source", strings.TrimSpace(source)),
	)
	m.priceQuotes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSerialIssued counts serial numbers handed out, by prefix.
func (m *Metrics) RecordSerialIssued(ctx context.Context, prefix string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("prefix", strings.TrimSpace(prefix)))
	m.serialsIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSerialRetry counts serial assignments retried after a collision.
func (m *Metrics) RecordSerialRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.serialRetries.Add(ctx, 1)
}

// RecordInvoiceSigned counts signatures, split by single or batch signing.
func (m *Metrics) RecordInvoiceSigned(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("mode", strings.TrimSpace(mode)))
	m.invoicesSigned.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReportExport counts report downloads by format and period type.
func (m *Metrics) RecordReportExport(ctx context.Context, format, period string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("format", strings.TrimSpace(format)),
		attribute.String("period", strings.TrimSpace(period)),
	)
	m.reportExports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"level":       {},
	"source":      {},
	"prefix":      {},
	"mode":        {},
	"format":      {},
	"period":      {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
