package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"tankarena/server/domain"
)

// Metrics はdomain.MetricsRecorderをOpenTelemetryの計器で実装します。
type Metrics struct {
	tickDuration metric.Float64Histogram
	tanks        metric.Int64Gauge
	bullets      metric.Int64Gauge
	intents      metric.Int64Counter
	violations   metric.Int64Counter
	rooms        metric.Int64UpDownCounter
	sessions     metric.Int64UpDownCounter
}

var _ domain.MetricsRecorder = (*Metrics)(nil)

// NewMetrics はmeterに計器を登録します。meterがnilならグローバルのMeterProviderを使います。
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var m Metrics
	var err, e error

	m.tickDuration, e = meter.Float64Histogram("tankarena.room.tick.duration",
		metric.WithDescription("Time spent simulating one room tick"),
		metric.WithUnit("ms"))
	err = errors.Join(err, e)
	m.tanks, e = meter.Int64Gauge("tankarena.room.tanks",
		metric.WithDescription("Tanks in the room after the tick"))
	err = errors.Join(err, e)
	m.bullets, e = meter.Int64Gauge("tankarena.room.bullets",
		metric.WithDescription("Bullets in flight after the tick"))
	err = errors.Join(err, e)
	m.intents, e = meter.Int64Counter("tankarena.intents",
		metric.WithDescription("Submitted intents by outcome"))
	err = errors.Join(err, e)
	m.violations, e = meter.Int64Counter("tankarena.room.invariant_violations",
		metric.WithDescription("Ticks that broke a simulation invariant"))
	err = errors.Join(err, e)
	m.rooms, e = meter.Int64UpDownCounter("tankarena.rooms",
		metric.WithDescription("Running rooms"))
	err = errors.Join(err, e)
	m.sessions, e = meter.Int64UpDownCounter("tankarena.sessions",
		metric.WithDescription("Sessions joined to a room"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordTick(ctx context.Context, roomID domain.RoomID, elapsed time.Duration, tanks, bullets int) {
	attrs := metric.WithAttributes(attribute.String("room.id", roomID.String()))
	m.tickDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	m.tanks.Record(ctx, int64(tanks), attrs)
	m.bullets.Record(ctx, int64(bullets), attrs)
}

func (m *Metrics) RecordIntent(ctx context.Context, status domain.IntentStatus) {
	m.intents.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
}

func (m *Metrics) RecordInvariantViolation(ctx context.Context, roomID domain.RoomID) {
	m.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("room.id", roomID.String())))
}

func (m *Metrics) RecordRooms(ctx context.Context, delta int64) {
	m.rooms.Add(ctx, delta)
}

func (m *Metrics) RecordSessions(ctx context.Context, delta int64) {
	m.sessions.Add(ctx, delta)
}
