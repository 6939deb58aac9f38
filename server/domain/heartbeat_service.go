package domain

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatService はpingを定期送信します。pongの受信はSessionEndpointがSessionに記録し、
// 応答の無いセッションはIsIdleで切断されます。
type HeartbeatService struct {
	interval time.Duration
	session  *Session
	writeCh  chan<- ServerMessage

	seq     uint64
	dropped int
}

func NewHeartbeatService(interval time.Duration, session *Session, writeCh chan<- ServerMessage) *HeartbeatService {
	return &HeartbeatService{
		interval: interval,
		session:  session,
		writeCh:  writeCh,
	}
}

// Run はinterval間隔でpingをwriteChに積みます。ctxの終了かセッションのクローズで戻ります。
// writeChが満杯のときは待たずにそのpingを捨てます。
func (h *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.session.IsClosed() {
				return
			}
			h.ping(ctx)
		}
	}
}

func (h *HeartbeatService) ping(ctx context.Context) {
	h.seq++
	select {
	case h.writeCh <- NewPingMessage(h.seq, time.Now()):
		if h.dropped > 0 {
			slog.InfoContext(ctx, "heartbeat: ping resumed", "sessionID", h.session.ID(), "dropped", h.dropped)
			h.dropped = 0
		}
	default:
		h.dropped++
		slog.WarnContext(ctx, "heartbeat: writeCh full, ping dropped", "sessionID", h.session.ID(), "seq", h.seq, "dropped", h.dropped)
	}
}
