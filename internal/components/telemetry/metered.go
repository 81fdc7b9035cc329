package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("gwtdownloads")

// MeteredAPI forwards every report to an inner API and mirrors counts and
// breakages into otel instruments.
type MeteredAPI struct {
	inner    API
	counts   metric.Int64Gauge
	broken   metric.Int64Counter
	warnings metric.Int64Counter
}

func NewMeteredAPI(inner API) (MeteredAPI, error) {
	counts, err := meter.Int64Gauge("report_count")
	if err != nil {
		return MeteredAPI{}, err
	}
	broken, err := meter.Int64Counter("report_broken")
	if err != nil {
		return MeteredAPI{}, err
	}
	warnings, err := meter.Int64Counter("report_warning")
	if err != nil {
		return MeteredAPI{}, err
	}
	return MeteredAPI{
		inner:    inner,
		counts:   counts,
		broken:   broken,
		warnings: warnings,
	}, nil
}

func (m MeteredAPI) ReportBroken(id string, params ...any) {
	m.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportBroken(id, params...)
}

func (m MeteredAPI) ReportWarning(id string, params ...any) {
	m.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportWarning(id, params...)
}

func (m MeteredAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MeteredAPI) ReportCount(id string, count int64) {
	m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportCount(id, count)
}
