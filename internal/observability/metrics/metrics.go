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
	checkouts          metric.Int64Counter
	ledgerTransactions metric.Int64Counter
	payouts            metric.Int64Counter
	storefrontResolved metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
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
		name = "vendora"
	}
	meter := provider.Meter(name)

	checkouts, err := meter.Int64Counter("vendora_checkouts_total")
	if err != nil {
		return nil, err
	}
	ledgerTransactions, err := meter.Int64Counter("vendora_ledger_transactions_total")
	if err != nil {
		return nil, err
	}
	payouts, err := meter.Int64Counter("vendora_payouts_total")
	if err != nil {
		return nil, err
	}
	storefrontResolved, err := meter.Int64Counter("vendora_storefront_resolved_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("vendora_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		checkouts:          checkouts,
		ledgerTransactions: ledgerTransactions,
		payouts:            payouts,
		storefrontResolved: storefrontResolved,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordCheckout increments checkout counts.
func (m *Metrics) RecordCheckout(ctx context.Context, paymentMethod string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("payment_method", strings.TrimSpace(paymentMethod)))
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerTransaction increments ledger transaction counts.
func (m *Metrics) RecordLedgerTransaction(ctx context.Context, txType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tx_type", strings.TrimSpace(txType)))
	m.ledgerTransactions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayout increments payout counts per lifecycle status.
func (m *Metrics) RecordPayout(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.payouts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStorefrontResolution increments host resolution counts.
func (m *Metrics) RecordStorefrontResolution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.storefrontResolved.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"endpoint":       {},
	"status":         {},
	"status_code":    {},
	"outcome":        {},
	"tx_type":        {},
	"payment_method": {},
	"reason":         {},
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
