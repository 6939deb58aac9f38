package domain

import (
	"context"
	"time"
)

//go:generate go tool mockgen -destination=./mocks/metrics_mock.go -package=mocks . MetricsRecorder

// MetricsRecorder はルームとレジストリの計測値を受け取ります。
type MetricsRecorder interface {
	RecordTick(ctx context.Context, roomID RoomID, elapsed time.Duration, tanks, bullets int)
	RecordIntent(ctx context.Context, status IntentStatus)
	RecordInvariantViolation(ctx context.Context, roomID RoomID)
	RecordRooms(ctx context.Context, delta int64)
	RecordSessions(ctx context.Context, delta int64)
}

// NopMetrics は何も記録しません。
type NopMetrics struct{}

func (NopMetrics) RecordTick(context.Context, RoomID, time.Duration, int, int) {}
func (NopMetrics) RecordIntent(context.Context, IntentStatus)                  {}
func (NopMetrics) RecordInvariantViolation(context.Context, RoomID)            {}
func (NopMetrics) RecordRooms(context.Context, int64)                          {}
func (NopMetrics) RecordSessions(context.Context, int64)                       {}
