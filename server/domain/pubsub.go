package domain

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Topic はPubSubの配送先です。
type Topic string

// SessionTopic はセッション宛メッセージのトピックを返します。
func SessionTopic(id SessionID) Topic {
	return Topic("session:" + id.String())
}

// Message はPubSubで配送される1件のサーバーメッセージです。
// 符号化は受信側のSessionEndpointがコーデックに合わせて行います。
type Message struct {
	SessionID SessionID
	Payload   ServerMessage
}

type PubSub interface {
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
	// Publish はブロックしません。購読者のバッファが満杯の場合は破棄します。
	Publish(ctx context.Context, topic Topic, msg Message)
}

const defaultSubscriberBuffer = 256

// SimplePubSub はプロセス内で完結するPubSub実装です。
type SimplePubSub struct {
	mu     sync.RWMutex
	subs   map[Topic][]chan Message
	buffer int
}

var _ PubSub = (*SimplePubSub)(nil)

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{
		subs:   make(map[Topic][]chan Message),
		buffer: defaultSubscriberBuffer,
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, p.buffer)
	p.mu.Lock()
	p.subs[topic] = append(p.subs[topic], ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe は購読を解除してチャネルを閉じます。
func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subs[topic]
	for i, c := range subs {
		if c == ch {
			close(c)
			subs = slices.Delete(subs, i, i+1)
			break
		}
	}
	if len(subs) == 0 {
		delete(p.subs, topic)
		return
	}
	p.subs[topic] = subs
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs[topic] {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "pubsub: subscriber buffer full, message dropped", "topic", topic, "type", msg.Payload.Type)
		}
	}
}

// Subscribers は購読者数を返します。
func (p *SimplePubSub) Subscribers(topic Topic) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs[topic])
}
