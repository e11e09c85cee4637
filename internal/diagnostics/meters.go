package diagnostics

import (
	"context"

	"github.com/mirzahilmi/lora-orion-bridge/internal/ingest"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meters records readings and sync outcomes as otel instruments.
type Meters struct {
	temperature metric.Float64Gauge
	humidity    metric.Float64Gauge
	outcomes    metric.Int64Counter
}

func NewMeters(meter metric.Meter) (*Meters, error) {
	temperature, err := meter.Float64Gauge(
		"sensors.temperature",
		metric.WithDescription("Temperature reported by the field sensor"),
		metric.WithUnit("Cel"),
	)
	if err != nil {
		log.Error().
			Err(err).
			Msg("diagnostics: cannot create meter gauge instance")
		return nil, err
	}
	humidity, err := meter.Float64Gauge(
		"sensors.humidity",
		metric.WithDescription("Relative humidity reported by the field sensor"),
		metric.WithUnit("%"),
	)
	if err != nil {
		log.Error().
			Err(err).
			Msg("diagnostics: cannot create meter gauge instance")
		return nil, err
	}
	outcomes, err := meter.Int64Counter(
		"bridge.outcomes",
		metric.WithDescription("Cycles by outcome"),
	)
	if err != nil {
		log.Error().
			Err(err).
			Msg("diagnostics: cannot create meter counter instance")
		return nil, err
	}

	return &Meters{temperature, humidity, outcomes}, nil
}

func (m *Meters) Observe(ctx context.Context, report ingest.Report) {
	if report.Reading != nil {
		m.temperature.Record(ctx, report.Reading.Temperature)
		m.humidity.Record(ctx, report.Reading.Humidity)
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", report.Outcome.Kind.String())))
}
