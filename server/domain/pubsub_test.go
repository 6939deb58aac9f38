package domain

import (
	"context"
	"testing"
	"time"
)

func TestSimplePubSub_PublishDeliversToSubscribers(t *testing.T) {
	ps := NewSimplePubSub()
	topic := Topic("session:a")

	ch1 := ps.Subscribe(topic)
	ch2 := ps.Subscribe(topic)
	ps.Publish(context.Background(), topic, Message{Payload: NewPingMessage(1, time.Unix(0, 0))})

	for i, ch := range []<-chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Payload.Type != MsgPing {
				t.Errorf("subscriber %d got %q, want %q", i, msg.Payload.Type, MsgPing)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestSimplePubSub_PublishNeverBlocks(t *testing.T) {
	ps := NewSimplePubSub()
	ps.buffer = 1
	topic := Topic("session:slow")
	ch := ps.Subscribe(topic)

	for range 5 {
		ps.Publish(context.Background(), topic, Message{Payload: NewPingMessage(1, time.Unix(0, 0))})
	}
	if got := len(ch); got != 1 {
		t.Errorf("len(ch) = %d, want 1", got)
	}
}

func TestSimplePubSub_UnsubscribeClosesChannel(t *testing.T) {
	ps := NewSimplePubSub()
	topic := Topic("room:x")
	ch := ps.Subscribe(topic)

	ps.Unsubscribe(topic, ch)
	if _, ok := <-ch; ok {
		t.Errorf("channel should be closed")
	}
	if got := ps.Subscribers(topic); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
	// 解除後のpublishは何もしない
	ps.Publish(context.Background(), topic, Message{Payload: NewPingMessage(1, time.Unix(0, 0))})
}
