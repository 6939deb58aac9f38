package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

//go:generate go tool mockgen -destination=./mocks/ticket_verifier_mock.go -package=mocks . TicketVerifier

// TicketVerifier はjoinに添付された参加チケットを検証し、プレイヤー名を返します。
type TicketVerifier interface {
	Verify(token string) (playerName string, err error)
}

const defaultPlayerName = "Player"

type EndpointOptions struct {
	IdleTimeout  time.Duration
	PingInterval time.Duration
	// Verifier がnilの場合はチケット無しで参加できます。
	Verifier TicketVerifier
}

type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	codec      Codec
	pubsub     PubSub
	registry   SessionRegistry
	opts       EndpointOptions

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan ServerMessage // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(ctx context.Context, session *Session, connection *Connection, codec Codec, pubsub PubSub, registry SessionRegistry, opts EndpointOptions) (*SessionEndpoint, error) {
	if session == nil || connection == nil || codec == nil || pubsub == nil || registry == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(ctx)
	se := &SessionEndpoint{
		ctx:        ctx,
		cancel:     cancel,
		session:    session,
		connection: connection,
		codec:      codec,
		pubsub:     pubsub,
		registry:   registry,
		opts:       opts,
		ctrlCh:     make(chan endpointEvent, 16),
		writeCh:    make(chan ServerMessage, 1024),
	}
	return se, nil
}

func (se *SessionEndpoint) Run() error {
	// 自分宛のメッセージを購読
	sessionTopic := SessionTopic(se.session.ID())
	msgCh := se.pubsub.Subscribe(sessionTopic)
	defer se.pubsub.Unsubscribe(sessionTopic, msgCh)

	// セッションID通知を最初に送る
	if err := se.Send(NewAssignMessage(se.session.ID())); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	if se.opts.PingInterval > 0 {
		hb := NewHeartbeatService(se.opts.PingInterval, se.session, se.writeCh)
		eg.Go(func() error {
			hb.Run(ctx)
			return nil
		})
	}

	return eg.Wait()
}

func (se *SessionEndpoint) Send(msg ServerMessage) error {
	select {
	case se.writeCh <- msg:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

func (se *SessionEndpoint) ForceClose() {
	se.close("")
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if ok, reason := se.session.IsIdle(se.opts.IdleTimeout); ok {
				slog.InfoContext(ctx, "closing idle session", "sessionID", se.session.ID(), "reason", reason)
				se.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  errors.New(reason.String()),
				})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.DebugContext(ctx, "read failed", "sessionID", se.session.ID(), "err", err)
			}
			se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: err})
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-se.writeCh:
			data, err := se.codec.Marshal(msg)
			if err != nil {
				slog.ErrorContext(ctx, "failed to encode message", "type", msg.Type, "err", err)
				continue
			}
			if err := se.connection.Write(ctx, data); err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: err})
				return
			}
			se.session.TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			select {
			case se.writeCh <- msg.Payload:
			default:
				slog.WarnContext(ctx, "subscribeLoop: writeCh full, message dropped", "sessionID", se.session.ID(), "type", msg.Payload.Type)
			}
		}
	}
}

// close はルームからの離脱を済ませてから接続を閉じます。2回目以降は何もしません。
func (se *SessionEndpoint) close(reason string) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	ctx := context.WithoutCancel(se.ctx)
	if err := se.registry.Leave(ctx, se.session.ID()); err != nil && !errors.Is(err, ErrNotJoined) {
		slog.WarnContext(ctx, "leave on close failed", "sessionID", se.session.ID(), "err", err)
	}
	se.cancel()
	se.session.Close()
	se.connection.Close(reason)
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	msg, err := DecodeClientMessage(se.codec, data)
	if err != nil {
		slog.WarnContext(ctx, "failed to decode client message", "sessionID", se.session.ID(), "err", err)
		return
	}

	switch msg.Type {
	case MsgJoin:
		se.handleJoin(ctx, msg)
	case MsgLeave:
		if err := se.registry.Leave(ctx, se.session.ID()); err != nil {
			slog.DebugContext(ctx, "leave ignored", "sessionID", se.session.ID(), "err", err)
		}
	case MsgMove, MsgTurn, MsgFire:
		intent, err := IntentFromMessage(se.session.ID(), msg)
		if err != nil && !errors.Is(err, ErrInvalidIntent) {
			slog.WarnContext(ctx, "malformed intent", "sessionID", se.session.ID(), "err", err)
			return
		}
		// 範囲外の値はレジストリがIntentInvalidとして数える
		se.registry.SubmitIntent(ctx, se.session.ID(), intent)
	case MsgChat:
		if err := se.registry.Chat(ctx, se.session.ID(), msg.Text); err != nil {
			slog.DebugContext(ctx, "chat rejected", "sessionID", se.session.ID(), "err", err)
		}
	case MsgPong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	default:
		slog.WarnContext(ctx, "unknown message type", "sessionID", se.session.ID(), "type", msg.Type)
	}
}

func (se *SessionEndpoint) handleJoin(ctx context.Context, msg ClientMessage) {
	name := msg.PlayerName
	if se.opts.Verifier != nil {
		verified, err := se.opts.Verifier.Verify(msg.Token)
		if err != nil {
			slog.WarnContext(ctx, "join ticket rejected", "sessionID", se.session.ID(), "err", err)
			se.sendJoinError(ctx, JoinErrorUnauthorized)
			return
		}
		name = verified
	}
	if name == "" {
		name = defaultPlayerName
	}

	// joinedはルームのゴルーチンから配信される
	if _, err := se.registry.Join(ctx, RoomID(msg.RoomID), se.session.ID(), name); err != nil {
		slog.InfoContext(ctx, "join rejected", "sessionID", se.session.ID(), "roomID", msg.RoomID, "err", err)
		se.sendJoinError(ctx, joinErrorReason(err))
	}
}

func (se *SessionEndpoint) sendJoinError(ctx context.Context, reason string) {
	if err := se.Send(NewJoinErrorMessage(reason)); err != nil {
		slog.WarnContext(ctx, "failed to queue joinError", "sessionID", se.session.ID(), "err", err)
	}
}

func joinErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrRoomFull):
		return JoinErrorRoomFull
	case errors.Is(err, ErrAlreadyJoined):
		return JoinErrorAlreadyJoined
	case errors.Is(err, ErrNoSpawnPoint):
		return JoinErrorNoSpawnPoint
	default:
		return JoinErrorInternal
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		reason := ""
		if ev.err != nil {
			reason = ev.err.Error()
		}
		se.close(reason)
	case evPong:
		se.session.TouchPong()
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
