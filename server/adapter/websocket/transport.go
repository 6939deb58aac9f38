package adapterwebsocket

import (
	"context"

	"github.com/coder/websocket"

	"tankarena/server/domain"
)

// closeReasonLimit はクローズフレームに載せられる理由の最大バイト数です。
const closeReasonLimit = 123

type wsTransport struct {
	conn        *websocket.Conn
	messageType websocket.MessageType
}

// NewTransportFrom は接続をdomain.Transportに包みます。binaryならバイナリフレームで書き込みます。
func NewTransportFrom(conn *websocket.Conn, binary bool) domain.Transport {
	mt := websocket.MessageText
	if binary {
		mt = websocket.MessageBinary
	}
	return &wsTransport{conn: conn, messageType: mt}
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, t.messageType, data)
}

func (t *wsTransport) Close(code int32, reason string) error {
	return t.conn.Close(websocket.StatusCode(code), truncateReason(reason))
}

func truncateReason(reason string) string {
	if len(reason) <= closeReasonLimit {
		return reason
	}
	// マルチバイト文字の途中で切らない
	cut := closeReasonLimit
	for cut > 0 && reason[cut]&0xC0 == 0x80 {
		cut--
	}
	return reason[:cut]
}
