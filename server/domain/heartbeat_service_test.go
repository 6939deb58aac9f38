package domain_test

import (
	"context"
	"testing"
	"time"

	domain "tankarena/server/domain"
)

func TestHeartbeatService_SendsPingToWriteCh(t *testing.T) {
	session := domain.NewSession()
	writeCh := make(chan domain.ServerMessage, 16)

	hb := domain.NewHeartbeatService(50*time.Millisecond, session, writeCh)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go hb.Run(ctx)

	select {
	case msg := <-writeCh:
		if msg.Type != domain.MsgPing {
			t.Fatalf("message type = %q, want %q", msg.Type, domain.MsgPing)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for ping message")
	}
}

func TestHeartbeatService_StopsOnContextCancel(t *testing.T) {
	session := domain.NewSession()
	writeCh := make(chan domain.ServerMessage, 16)

	hb := domain.NewHeartbeatService(50*time.Millisecond, session, writeCh)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("HeartbeatService did not stop after context cancel")
	}
}

func TestHeartbeatService_DropsWhenWriteChFull(t *testing.T) {
	session := domain.NewSession()
	// バッファ無しでwriteChが常に満杯になるようにする
	writeCh := make(chan domain.ServerMessage)

	hb := domain.NewHeartbeatService(50*time.Millisecond, session, writeCh)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("HeartbeatService blocked on full writeCh")
	}
}

func TestHeartbeatService_PingSequence(t *testing.T) {
	session := domain.NewSession()
	writeCh := make(chan domain.ServerMessage, 16)
	hb := domain.NewHeartbeatService(20*time.Millisecond, session, writeCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hb.Run(ctx)

	before := time.Now().UnixMilli()
	for want := uint64(1); want <= 3; want++ {
		select {
		case msg := <-writeCh:
			p := msg.Payload.(domain.PingPayload)
			if p.Seq != want {
				t.Errorf("Seq = %d, want %d", p.Seq, want)
			}
			if p.Timestamp < before {
				t.Errorf("Timestamp = %d, want >= %d", p.Timestamp, before)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("timed out waiting for ping %d", want)
		}
	}
}

func TestHeartbeatService_StopsWhenSessionClosed(t *testing.T) {
	session := domain.NewSession()
	session.Close()
	writeCh := make(chan domain.ServerMessage, 16)
	hb := domain.NewHeartbeatService(20*time.Millisecond, session, writeCh)

	done := make(chan struct{})
	go func() {
		hb.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("HeartbeatService kept running for a closed session")
	}
	if len(writeCh) != 0 {
		t.Errorf("pings after close = %d, want 0", len(writeCh))
	}
}
