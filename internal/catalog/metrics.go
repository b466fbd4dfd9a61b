package catalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/xenking/procart/internal/catalog"

// Fetch outcomes recorded in the result attribute.
const (
	resultOK    = "ok"
	resultError = "error"
	resultStale = "stale"
)

type metrics struct {
	fetchCount    metric.Int64Counter
	fetchDuration metric.Float64Histogram
	viewCount     metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) *metrics {
	meter := mp.Meter(meterName)
	m := &metrics{}

	var err error
	m.fetchCount, err = meter.Int64Counter(
		"catalog.fetch.count",
		metric.WithDescription("Catalog fetches by resource and outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		m.fetchCount, _ = meter.Int64Counter("catalog.fetch.count")
	}

	m.fetchDuration, err = meter.Float64Histogram(
		"catalog.fetch.duration",
		metric.WithDescription("Duration of catalog fetches in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.fetchDuration, _ = meter.Float64Histogram("catalog.fetch.duration")
	}

	m.viewCount, err = meter.Int64Counter(
		"catalog.view.count",
		metric.WithDescription("View projections by cache outcome"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		m.viewCount, _ = meter.Int64Counter("catalog.view.count")
	}

	return m
}

func (m *metrics) recordFetch(ctx context.Context, resource, result string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("catalog.resource", resource),
		attribute.String("catalog.result", result),
	)
	m.fetchCount.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}

func (m *metrics) recordView(hit bool) {
	m.viewCount.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("catalog.cache_hit", hit)))
}
