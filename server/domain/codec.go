package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackSubprotocol を要求したクライアントにはバイナリフレームでMessagePackを返します。
const MsgpackSubprotocol = "tankarena.msgpack"

// Codec はワイヤ表現の符号化方式です。どの方式もJSONと同じフィールド名を使います。
type Codec interface {
	Name() string
	// Binary はバイナリフレームで送るべきかを返します。
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// SplitEnvelope はサーバーメッセージを種別と未復号のpayloadに分けます。
	SplitEnvelope(data []byte) (string, []byte, error)
}

// CodecFor はサブプロトコル名に対応するコーデックを返します。
func CodecFor(subprotocol string) Codec {
	if subprotocol == MsgpackSubprotocol {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

type JSONCodec struct{}

func (JSONCodec) Name() string                       { return "json" }
func (JSONCodec) Binary() bool                       { return false }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSONCodec) SplitEnvelope(data []byte) (string, []byte, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	return env.Type, env.Payload, nil
}

type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (c MsgpackCodec) SplitEnvelope(data []byte) (string, []byte, error) {
	var env struct {
		Type    string             `json:"type"`
		Payload msgpack.RawMessage `json:"payload"`
	}
	if err := c.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	return env.Type, env.Payload, nil
}

// DecodeServerMessage はサーバーメッセージを型付きのpayloadまで復号します。
func DecodeServerMessage(c Codec, data []byte) (ServerMessage, error) {
	typ, raw, err := c.SplitEnvelope(data)
	if err != nil {
		return ServerMessage{}, err
	}
	var payload any
	switch typ {
	case MsgAssign:
		payload, err = unmarshalPayload[AssignPayload](c, raw)
	case MsgJoined:
		payload, err = unmarshalPayload[JoinedPayload](c, raw)
	case MsgJoinError:
		payload, err = unmarshalPayload[JoinErrorPayload](c, raw)
	case MsgStateUpdate:
		payload, err = unmarshalPayload[RoomState](c, raw)
	case MsgRoomFinished:
		payload, err = unmarshalPayload[RoomFinishedPayload](c, raw)
	case MsgPlayerLeft:
		payload, err = unmarshalPayload[PlayerLeftPayload](c, raw)
	case MsgPing:
		payload, err = unmarshalPayload[PingPayload](c, raw)
	case MsgChat:
		payload, err = unmarshalPayload[ChatPayload](c, raw)
	default:
		return ServerMessage{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, typ)
	}
	if err != nil {
		return ServerMessage{}, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return ServerMessage{Type: typ, Payload: payload}, nil
}

func unmarshalPayload[T any](c Codec, raw []byte) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := c.Unmarshal(raw, &v)
	return v, err
}

// DecodeClientMessage はクライアントメッセージを復号します。typeが無いものはエラーです。
func DecodeClientMessage(c Codec, data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := c.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, err
	}
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("%w: type", ErrMissingField)
	}
	return msg, nil
}
