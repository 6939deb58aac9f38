package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	adapterwebsocket "tankarena/server/adapter/websocket"
	"tankarena/server/domain"
)

type AcceptHandler struct {
	shutdown context.Context
	pubsub   domain.PubSub
	registry domain.SessionRegistry
	opts     domain.EndpointOptions
}

// NewAcceptHandler は接続ごとにSessionEndpointを起動するハンドラーを作成します。
// shutdownがキャンセルされると全ての接続を閉じます。
func NewAcceptHandler(shutdown context.Context, pubsub domain.PubSub, registry domain.SessionRegistry, opts domain.EndpointOptions) *AcceptHandler {
	return &AcceptHandler{shutdown: shutdown, pubsub: pubsub, registry: registry, opts: opts}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.shutdown, cancel)
	defer stop()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{domain.MsgpackSubprotocol},
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	codec := domain.CodecFor(conn.Subprotocol())
	session := domain.NewSession()
	transport := adapterwebsocket.NewTransportFrom(conn, codec.Binary())
	connection := domain.NewConnection(session.ID(), transport)
	endpoint, err := domain.NewSessionEndpoint(ctx, session, connection, codec, h.pubsub, h.registry, h.opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		connection.Close("internal error")
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "session_id", session.ID(), "codec", codec.Name())
	if err := endpoint.Run(); err != nil {
		slog.ErrorContext(ctx, "failed to run session endpoint", "session_id", session.ID(), "err", err)
		return
	}
}
