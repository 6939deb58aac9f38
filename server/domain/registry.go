package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:generate go tool mockgen -destination=./mocks/session_registry_mock.go -package=mocks . SessionRegistry

var (
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("session already joined a room")
	ErrNotJoined     = errors.New("session is not in a room")
)

// SessionRegistry はセッションとルームの対応を管理します。
type SessionRegistry interface {
	Join(ctx context.Context, roomID RoomID, sessionID SessionID, playerName string) (JoinResult, error)
	Leave(ctx context.Context, sessionID SessionID) error
	SubmitIntent(ctx context.Context, sessionID SessionID, intent Intent) IntentStatus
	Chat(ctx context.Context, sessionID SessionID, text string) error
}

// ApplicationFactory はルームごとのApplicationを生成します。
type ApplicationFactory func(roomID RoomID) Application

// RoomInfo はルーム一覧の1件です。
type RoomInfo struct {
	ID      RoomID `json:"id"`
	Players int    `json:"players"`
}

type RegistryOptions struct {
	DefaultRoom RoomID
	MaxPlayers  int
	Room        RoomOptions
}

type binding struct {
	roomID RoomID
	tankID TankID
	name   string
	// pending はルームへの参加が完了するまでtrueです。
	pending bool
}

type roomEntry struct {
	room   *Room
	cancel context.CancelFunc
	// players は参加済みと参加処理中のセッション数です。
	players int
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Registry はルームの生成と破棄、セッションの参加と離脱を管理します。
// ルームをまたいで共有される状態はここだけです。
// muはマップの読み書きの間だけ保持し、ルームのゴルーチンとのやりとりはロックの外で行います。
type Registry struct {
	mu       sync.RWMutex
	rooms    map[RoomID]*roomEntry
	bindings map[SessionID]binding
	sessions map[SessionID]*sessionLock

	baseCtx context.Context
	wg      sync.WaitGroup

	newApp  ApplicationFactory
	pubsub  PubSub
	metrics MetricsRecorder
	opts    RegistryOptions
	tracer  trace.Tracer
}

var _ SessionRegistry = (*Registry)(nil)

// NewRegistry はRegistryを生成します。ctxがキャンセルされると全ルームが停止します。
func NewRegistry(ctx context.Context, newApp ApplicationFactory, pubsub PubSub, metrics MetricsRecorder, opts RegistryOptions) *Registry {
	if opts.DefaultRoom.IsEmpty() {
		opts.DefaultRoom = "default"
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 4
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Registry{
		rooms:    make(map[RoomID]*roomEntry),
		bindings: make(map[SessionID]binding),
		sessions: make(map[SessionID]*sessionLock),
		baseCtx:  ctx,
		newApp:   newApp,
		pubsub:   pubsub,
		metrics:  metrics,
		opts:     opts,
		tracer:   otel.Tracer("tankarena/server/domain"),
	}
}

// Join はセッションをルームに参加させます。roomIDが空の場合はデフォルトルームを使います。
func (r *Registry) Join(ctx context.Context, roomID RoomID, sessionID SessionID, playerName string) (res JoinResult, err error) {
	if roomID.IsEmpty() {
		roomID = r.opts.DefaultRoom
	}
	ctx, span := r.tracer.Start(ctx, "Registry.Join", trace.WithAttributes(
		attribute.String("room.id", roomID.String()),
		attribute.String("session.id", sessionID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock := r.lockSession(sessionID)
	defer unlock()

	entry, err := r.reserve(roomID, sessionID)
	if err != nil {
		return JoinResult{}, err
	}

	res, err = entry.room.Join(ctx, sessionID, playerName)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// 呼び出し側が諦めた後にルーム側で参加が完了している可能性がある
			_, _, _ = entry.room.Leave(context.WithoutCancel(ctx), sessionID)
		}
		r.mu.Lock()
		delete(r.bindings, sessionID)
		r.releaseLocked(ctx, roomID, entry)
		r.mu.Unlock()
		return JoinResult{}, fmt.Errorf("join room %s: %w", roomID, err)
	}

	r.mu.Lock()
	r.bindings[sessionID] = binding{roomID: roomID, tankID: res.TankID, name: playerName}
	r.mu.Unlock()
	r.metrics.RecordSessions(ctx, 1)
	slog.InfoContext(ctx, "session joined room", "sessionID", sessionID, "roomID", roomID, "tankID", res.TankID)
	return res, nil
}

// reserve は席と仮のバインディングを確保します。ルームが無ければ作成します。
func (r *Registry) reserve(roomID RoomID, sessionID SessionID) (*roomEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[sessionID]; ok {
		return nil, ErrAlreadyJoined
	}
	entry := r.roomLocked(roomID)
	if entry.players >= r.opts.MaxPlayers {
		return nil, fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}
	entry.players++
	r.bindings[sessionID] = binding{roomID: roomID, pending: true}
	return entry, nil
}

// Leave はセッションをルームから外し、空になったルームを破棄します。
func (r *Registry) Leave(ctx context.Context, sessionID SessionID) error {
	ctx, span := r.tracer.Start(ctx, "Registry.Leave", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	unlock := r.lockSession(sessionID)
	defer unlock()

	r.mu.Lock()
	b, ok := r.bindings[sessionID]
	if !ok || b.pending {
		r.mu.Unlock()
		return ErrNotJoined
	}
	delete(r.bindings, sessionID)
	entry, ok := r.rooms[b.roomID]
	r.mu.Unlock()
	r.metrics.RecordSessions(ctx, -1)
	if !ok {
		return nil
	}

	if _, _, err := entry.room.Leave(ctx, sessionID); err != nil {
		slog.WarnContext(ctx, "room leave failed", "sessionID", sessionID, "roomID", b.roomID, "err", err)
	}
	slog.InfoContext(ctx, "session left room", "sessionID", sessionID, "roomID", b.roomID, "tankID", b.tankID)

	r.mu.Lock()
	r.releaseLocked(ctx, b.roomID, entry)
	r.mu.Unlock()
	return nil
}

// SubmitIntent は入力をルームのキューに積みます。エラーやpanicにはならず結果種別だけを返します。
func (r *Registry) SubmitIntent(ctx context.Context, sessionID SessionID, intent Intent) IntentStatus {
	status := r.submitIntent(sessionID, intent)
	r.metrics.RecordIntent(ctx, status)
	if status != IntentAccepted {
		slog.DebugContext(ctx, "intent not accepted", "sessionID", sessionID, "kind", intent.Kind, "status", status)
	}
	return status
}

func (r *Registry) submitIntent(sessionID SessionID, intent Intent) IntentStatus {
	r.mu.RLock()
	b, ok := r.bindings[sessionID]
	var entry *roomEntry
	if ok && !b.pending {
		entry = r.rooms[b.roomID]
	}
	r.mu.RUnlock()

	if entry == nil {
		return IntentNotJoined
	}
	intent.SessionID = sessionID
	if err := intent.Validate(); err != nil {
		return IntentInvalid
	}
	if !entry.room.SessionAlive(sessionID) {
		return IntentDropped
	}
	if err := entry.room.EnqueueIntent(intent); err != nil {
		return IntentDropped
	}
	return IntentAccepted
}

// Chat は発言を検証し、セッションのいるルームに配信を依頼します。
func (r *Registry) Chat(ctx context.Context, sessionID SessionID, text string) error {
	text, err := NormalizeChat(text)
	if err != nil {
		return err
	}

	r.mu.RLock()
	b, ok := r.bindings[sessionID]
	var entry *roomEntry
	if ok && !b.pending {
		entry = r.rooms[b.roomID]
	}
	r.mu.RUnlock()
	if entry == nil {
		return ErrNotJoined
	}

	chat := ChatPayload{TankID: b.tankID, Name: b.name, Text: text, Timestamp: time.Now().UnixMilli()}
	if err := entry.room.EnqueueChat(chat); err != nil {
		return fmt.Errorf("chat in room %s: %w", b.roomID, err)
	}
	slog.DebugContext(ctx, "chat queued", "sessionID", sessionID, "roomID", b.roomID)
	return nil
}

// Rooms は稼働中のルームをID順に返します。
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, e := range r.rooms {
		out = append(out, RoomInfo{ID: id, Players: e.players})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Binding はセッションが参加しているルームと戦車を返します。
func (r *Registry) Binding(sessionID SessionID) (RoomID, TankID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[sessionID]
	if !ok || b.pending {
		return "", "", false
	}
	return b.roomID, b.tankID, true
}

// Wait は全ルームのゴルーチンの終了を待ちます。
func (r *Registry) Wait() {
	r.wg.Wait()
}

// lockSession は同じセッションの参加と離脱を直列化します。
func (r *Registry) lockSession(sessionID SessionID) (unlock func()) {
	r.mu.Lock()
	l, ok := r.sessions[sessionID]
	if !ok {
		l = &sessionLock{}
		r.sessions[sessionID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
	}
}

func (r *Registry) roomLocked(roomID RoomID) *roomEntry {
	if e, ok := r.rooms[roomID]; ok {
		return e
	}
	room := NewRoom(roomID, r.pubsub, r.newApp(roomID), r.metrics, r.opts.Room)
	roomCtx, cancel := context.WithCancel(r.baseCtx)
	e := &roomEntry{room: room, cancel: cancel}
	r.rooms[roomID] = e

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := room.Run(roomCtx); err != nil {
			slog.ErrorContext(roomCtx, "room stopped with error", "roomID", roomID, "err", err)
		}
	}()
	r.metrics.RecordRooms(roomCtx, 1)
	slog.InfoContext(roomCtx, "room created", "roomID", roomID)
	return e
}

// releaseLocked は席を1つ返し、誰もいなくなったルームを破棄します。
func (r *Registry) releaseLocked(ctx context.Context, roomID RoomID, e *roomEntry) {
	e.players--
	if e.players <= 0 && r.rooms[roomID] == e {
		r.destroyLocked(ctx, roomID, e)
	}
}

func (r *Registry) destroyLocked(ctx context.Context, roomID RoomID, e *roomEntry) {
	e.cancel()
	delete(r.rooms, roomID)
	r.metrics.RecordRooms(ctx, -1)
	slog.InfoContext(ctx, "room destroyed", "roomID", roomID)
}
