package domain

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"
)

type RoomID string

func (id RoomID) String() string { return string(id) }
func (id RoomID) IsEmpty() bool  { return id == "" }

// chatHistoryLimit は参加時に送り直すチャットの件数です。
const chatHistoryLimit = 50

var (
	ErrRoomBusy   = errors.New("room intent queue is full")
	ErrRoomClosed = errors.New("room is closed")
)

// RoomOptions はRoomの実行パラメータです。
type RoomOptions struct {
	TickRate    int
	MaxDt       float64
	IntentQueue int
}

func (o RoomOptions) withDefaults() RoomOptions {
	if o.TickRate <= 0 {
		o.TickRate = 30
	}
	if o.MaxDt <= 0 {
		o.MaxDt = 0.1
	}
	if o.IntentQueue <= 0 {
		o.IntentQueue = 256
	}
	return o
}

type roomCtrlKind uint8

const (
	roomCtrlJoin roomCtrlKind = iota + 1
	roomCtrlLeave
)

type roomCtrl struct {
	kind       roomCtrlKind
	sessionID  SessionID
	playerName string
	reply      chan roomReply
}

type roomReply struct {
	join   JoinResult
	tankID TankID
	ok     bool
	err    error
}

// Room は1つのApplicationを一定間隔のtickで駆動します。
// Applicationに触れるのはRunのゴルーチンだけです。
type Room struct {
	ID RoomID

	pubsub      PubSub
	application Application
	metrics     MetricsRecorder

	ctrlCh   chan roomCtrl
	intentCh chan Intent
	chatCh   chan ChatPayload
	done     chan struct{}

	// alive はtickごとに差し替えられる生存セッションのスナップショット
	alive atomic.Pointer[map[SessionID]bool]

	// Runのゴルーチン専用
	sessions map[SessionID]struct{}
	chatLog  []ChatPayload
	tick     uint64

	tickInterval time.Duration
	maxDt        float64
}

func NewRoom(id RoomID, pubsub PubSub, application Application, metrics MetricsRecorder, opts RoomOptions) *Room {
	opts = opts.withDefaults()
	if metrics == nil {
		metrics = NopMetrics{}
	}
	r := &Room{
		ID:           id,
		pubsub:       pubsub,
		application:  application,
		metrics:      metrics,
		ctrlCh:       make(chan roomCtrl),
		intentCh:     make(chan Intent, opts.IntentQueue),
		chatCh:       make(chan ChatPayload, 64),
		done:         make(chan struct{}),
		sessions:     make(map[SessionID]struct{}),
		tickInterval: time.Second / time.Duration(opts.TickRate),
		maxDt:        opts.MaxDt,
	}
	empty := map[SessionID]bool{}
	r.alive.Store(&empty)
	return r
}

// Done はRunが終了すると閉じられます。
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Join はRunのゴルーチン上でApplicationにセッションを参加させます。
func (r *Room) Join(ctx context.Context, sessionID SessionID, playerName string) (JoinResult, error) {
	rep, err := r.call(ctx, roomCtrl{kind: roomCtrlJoin, sessionID: sessionID, playerName: playerName})
	if err != nil {
		return JoinResult{}, err
	}
	return rep.join, rep.err
}

// Leave はセッションを離脱させ、残りのセッションにplayerLeftを配信します。
func (r *Room) Leave(ctx context.Context, sessionID SessionID) (TankID, bool, error) {
	rep, err := r.call(ctx, roomCtrl{kind: roomCtrlLeave, sessionID: sessionID})
	if err != nil {
		return "", false, err
	}
	return rep.tankID, rep.ok, nil
}

func (r *Room) call(ctx context.Context, c roomCtrl) (roomReply, error) {
	c.reply = make(chan roomReply, 1)
	select {
	case r.ctrlCh <- c:
	case <-r.done:
		return roomReply{}, ErrRoomClosed
	case <-ctx.Done():
		return roomReply{}, ctx.Err()
	}
	select {
	case rep := <-c.reply:
		return rep, nil
	case <-r.done:
		return roomReply{}, ErrRoomClosed
	case <-ctx.Done():
		return roomReply{}, ctx.Err()
	}
}

// SessionAlive は直近のtick時点でセッションの戦車が生存しているかを返します。
func (r *Room) SessionAlive(sessionID SessionID) bool {
	return (*r.alive.Load())[sessionID]
}

// EnqueueIntent はブロックせずに入力をキューへ積みます。
func (r *Room) EnqueueIntent(intent Intent) error {
	select {
	case r.intentCh <- intent:
		return nil
	default:
		return ErrRoomBusy
	}
}

// EnqueueChat はブロックせずにチャットをキューへ積みます。次のtickで全員に配信されます。
func (r *Room) EnqueueChat(chat ChatPayload) error {
	select {
	case r.chatCh <- chat:
		return nil
	default:
		return ErrRoomBusy
	}
}

func (r *Room) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-r.ctrlCh:
			r.handleControl(ctx, c)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.step(ctx, dt)
		}
	}
}

// step は1tick分の処理を行います。dtは[0, maxDt]に丸められます。
func (r *Room) step(ctx context.Context, dt float64) {
	start := time.Now()
	if dt <= 0 {
		dt = r.tickInterval.Seconds()
	}
	if dt > r.maxDt {
		dt = r.maxDt
	}

	var intents []Intent
INTENT_LOOP:
	for {
		select {
		case intent := <-r.intentCh:
			intents = append(intents, intent)
		default:
			break INTENT_LOOP
		}
	}

	frame := r.application.Tick(ctx, dt, intents)
	r.tick++
	if frame.Alive == nil {
		frame.Alive = map[SessionID]bool{}
	}
	r.alive.Store(&frame.Alive)

	if frame.Violation != nil {
		slog.ErrorContext(ctx, "room invariant violated", "roomID", r.ID, "tick", r.tick, "err", frame.Violation)
		r.metrics.RecordInvariantViolation(ctx, r.ID)
	}

	r.Broadcast(ctx, NewStateUpdateMessage(frame.State))
	for _, ev := range frame.Events {
		r.Broadcast(ctx, ev)
	}
	r.flushChat(ctx)
	r.metrics.RecordTick(ctx, r.ID, time.Since(start), len(frame.State.Tanks), len(frame.State.Bullets))
}

func (r *Room) handleControl(ctx context.Context, c roomCtrl) {
	switch c.kind {
	case roomCtrlJoin:
		res, err := r.application.Join(ctx, c.sessionID, c.playerName)
		if err == nil {
			r.sessions[c.sessionID] = struct{}{}
			// 次のstateUpdateより先にjoinedが届くようにここで配信する
			r.SendTo(ctx, c.sessionID, NewJoinedMessage(res.TankID, res.State))
			for _, chat := range r.chatLog {
				r.SendTo(ctx, c.sessionID, NewChatMessage(chat))
			}
			r.markAlive(c.sessionID, true)
		}
		c.reply <- roomReply{join: res, err: err}
	case roomCtrlLeave:
		delete(r.sessions, c.sessionID)
		tankID, ok := r.application.Leave(ctx, c.sessionID)
		r.markAlive(c.sessionID, false)
		if ok {
			r.Broadcast(ctx, NewPlayerLeftMessage(tankID))
		}
		c.reply <- roomReply{tankID: tankID, ok: ok}
	default:
		slog.WarnContext(ctx, "unknown room control", "kind", c.kind)
		c.reply <- roomReply{}
	}
}

func (r *Room) flushChat(ctx context.Context) {
	for {
		select {
		case chat := <-r.chatCh:
			r.chatLog = append(r.chatLog, chat)
			if len(r.chatLog) > chatHistoryLimit {
				r.chatLog = slices.Delete(r.chatLog, 0, len(r.chatLog)-chatHistoryLimit)
			}
			r.Broadcast(ctx, NewChatMessage(chat))
		default:
			return
		}
	}
}

func (r *Room) markAlive(sessionID SessionID, alive bool) {
	next := maps.Clone(*r.alive.Load())
	if alive {
		next[sessionID] = true
	} else {
		delete(next, sessionID)
	}
	r.alive.Store(&next)
}

// Broadcast はルームに参加中の全セッションへ配信します。
func (r *Room) Broadcast(ctx context.Context, msg ServerMessage) {
	for sessionID := range r.sessions {
		r.SendTo(ctx, sessionID, msg)
	}
}

func (r *Room) SendTo(ctx context.Context, sessionID SessionID, msg ServerMessage) {
	r.pubsub.Publish(ctx, SessionTopic(sessionID), Message{SessionID: sessionID, Payload: msg})
}
