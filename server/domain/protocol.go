package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// クライアント → サーバー
const (
	MsgJoin  = "join"
	MsgMove  = "move"
	MsgTurn  = "turn"
	MsgFire  = "fire"
	MsgLeave = "leave"
	MsgPong  = "pong"
	// MsgChat はクライアントからの発言とサーバーからの配信の両方で使います。
	MsgChat = "chat"
)

// MaxChatLength はチャット1件の最大文字数です。
const MaxChatLength = 200

// サーバー → クライアント
const (
	MsgAssign       = "assign"
	MsgJoined       = "joined"
	MsgJoinError    = "joinError"
	MsgStateUpdate  = "stateUpdate"
	MsgRoomFinished = "roomFinished"
	MsgPlayerLeft   = "playerLeft"
	MsgPing         = "ping"
)

// joinError の理由
const (
	JoinErrorRoomFull      = "room_full"
	JoinErrorAlreadyJoined = "already_joined"
	JoinErrorUnauthorized  = "unauthorized"
	JoinErrorNoSpawnPoint  = "no_spawn_point"
	JoinErrorInternal      = "internal"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMissingField       = errors.New("required field is missing")
	ErrInvalidIntent      = errors.New("invalid intent")
	ErrInvalidChat        = errors.New("invalid chat message")
)

// TankID はルーム内の戦車を識別するIDです。
type TankID string

// ClientMessage はクライアントから届く平坦なエンベロープです。
// type ごとに使うフィールドだけが埋まります。
type ClientMessage struct {
	Type       string `json:"type"`
	RoomID     string `json:"roomId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Token      string `json:"token,omitempty"`
	Moving     *bool  `json:"moving,omitempty"`
	Direction  *int   `json:"direction,omitempty"`
	Text       string `json:"text,omitempty"`
}

// ServerMessage はサーバーから送るエンベロープです。
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type AssignPayload struct {
	SessionID string `json:"sessionId"`
}

type JoinedPayload struct {
	TankID    TankID    `json:"tankId"`
	RoomState RoomState `json:"roomState"`
}

type JoinErrorPayload struct {
	Reason string `json:"reason"`
}

type RoomFinishedPayload struct {
	Reason string `json:"reason"`
}

type PlayerLeftPayload struct {
	TankID TankID `json:"tankId"`
}

type ChatPayload struct {
	TankID    TankID `json:"tankId"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// PingPayload のSeqはセッションごとに1から増えます。
type PingPayload struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
}

// RoomState はある時点のルームのスナップショットです。
// Map は joined でのみ埋まります。
type RoomState struct {
	RoomID    RoomID        `json:"roomId"`
	Status    string        `json:"status"`
	Level     int           `json:"level"`
	Tick      uint64        `json:"tick"`
	Tanks     []TankState   `json:"tanks"`
	Bullets   []BulletState `json:"bullets"`
	Timestamp int64         `json:"timestamp"`
	Map       *MapState     `json:"map,omitempty"`
}

type TankState struct {
	ID        TankID  `json:"id"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction float64 `json:"direction"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
	Alive     bool    `json:"alive"`
	Score     int     `json:"score"`
}

type BulletState struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	OwnerID TankID  `json:"ownerId"`
}

type MapState struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	TileSize int     `json:"tileSize"`
	Tiles    [][]int `json:"tiles"`
}

func NewAssignMessage(id SessionID) ServerMessage {
	return ServerMessage{Type: MsgAssign, Payload: AssignPayload{SessionID: id.String()}}
}

func NewJoinedMessage(tankID TankID, state RoomState) ServerMessage {
	return ServerMessage{Type: MsgJoined, Payload: JoinedPayload{TankID: tankID, RoomState: state}}
}

func NewJoinErrorMessage(reason string) ServerMessage {
	return ServerMessage{Type: MsgJoinError, Payload: JoinErrorPayload{Reason: reason}}
}

func NewStateUpdateMessage(state RoomState) ServerMessage {
	return ServerMessage{Type: MsgStateUpdate, Payload: state}
}

func NewRoomFinishedMessage(reason string) ServerMessage {
	return ServerMessage{Type: MsgRoomFinished, Payload: RoomFinishedPayload{Reason: reason}}
}

func NewPlayerLeftMessage(tankID TankID) ServerMessage {
	return ServerMessage{Type: MsgPlayerLeft, Payload: PlayerLeftPayload{TankID: tankID}}
}

func NewChatMessage(p ChatPayload) ServerMessage {
	return ServerMessage{Type: MsgChat, Payload: p}
}

// NormalizeChat は前後の空白を除いたチャット本文を返します。
// 空、不正なUTF-8、制御文字を含むもの、MaxChatLengthを超えるものはErrInvalidChatです。
func NormalizeChat(text string) (string, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidChat)
	case !utf8.ValidString(text):
		return "", fmt.Errorf("%w: not utf-8", ErrInvalidChat)
	case utf8.RuneCountInString(text) > MaxChatLength:
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidChat, MaxChatLength)
	case strings.IndexFunc(text, unicode.IsControl) >= 0:
		return "", fmt.Errorf("%w: control character", ErrInvalidChat)
	}
	return text, nil
}

func NewPingMessage(seq uint64, at time.Time) ServerMessage {
	return ServerMessage{Type: MsgPing, Payload: PingPayload{Seq: seq, Timestamp: at.UnixMilli()}}
}

// IntentKind はルームに送る入力の種類です。
type IntentKind uint8

const (
	IntentMove IntentKind = iota + 1
	IntentTurn
	IntentFire
)

func (k IntentKind) String() string {
	switch k {
	case IntentMove:
		return "move"
	case IntentTurn:
		return "turn"
	case IntentFire:
		return "fire"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Intent は1セッションの1入力です。次のtickの先頭でまとめて適用されます。
type Intent struct {
	SessionID SessionID
	Kind      IntentKind
	Moving    bool
	Turn      int
}

func (i Intent) Validate() error {
	switch i.Kind {
	case IntentMove, IntentFire:
		return nil
	case IntentTurn:
		if i.Turn < -1 || i.Turn > 1 {
			return fmt.Errorf("%w: turn direction %d", ErrInvalidIntent, i.Turn)
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %s", ErrInvalidIntent, i.Kind)
	}
}

// IntentFromMessage はmove/turn/fireメッセージをIntentに変換します。
func IntentFromMessage(sessionID SessionID, msg ClientMessage) (Intent, error) {
	intent := Intent{SessionID: sessionID}
	switch msg.Type {
	case MsgMove:
		if msg.Moving == nil {
			return Intent{}, fmt.Errorf("%w: moving", ErrMissingField)
		}
		intent.Kind = IntentMove
		intent.Moving = *msg.Moving
	case MsgTurn:
		if msg.Direction == nil {
			return Intent{}, fmt.Errorf("%w: direction", ErrMissingField)
		}
		intent.Kind = IntentTurn
		intent.Turn = *msg.Direction
	case MsgFire:
		intent.Kind = IntentFire
	default:
		return Intent{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}
	return intent, intent.Validate()
}

// IntentStatus はSubmitIntentの結果です。
type IntentStatus uint8

const (
	IntentAccepted IntentStatus = iota
	IntentNotJoined
	IntentInvalid
	IntentDropped
)

func (s IntentStatus) String() string {
	switch s {
	case IntentAccepted:
		return "accepted"
	case IntentNotJoined:
		return "not_joined"
	case IntentInvalid:
		return "invalid"
	case IntentDropped:
		return "dropped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}
