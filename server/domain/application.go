package domain

import (
	"context"
	"errors"
)

//go:generate go tool mockgen -destination=./mocks/application_mock.go -package=mocks . Application

var (
	// ErrNoSpawnPoint はマップ上に戦車を置ける空き位置が無い場合に返されるエラーです。
	ErrNoSpawnPoint = errors.New("no free spawn point")
)

// Application はルーム1つ分のゲームロジックです。
// すべてのメソッドはRoomのゴルーチンからのみ呼ばれます。
type Application interface {
	Join(ctx context.Context, sessionID SessionID, playerName string) (JoinResult, error)
	// Leave は戦車を削除対象にします。実際の削除は次のTickで行われます。
	Leave(ctx context.Context, sessionID SessionID) (TankID, bool)
	Tick(ctx context.Context, dt float64, intents []Intent) Frame
}

type JoinResult struct {
	TankID TankID
	State  RoomState
}

// Frame は1tick分の結果です。
type Frame struct {
	State  RoomState
	Events []ServerMessage
	// Alive は戦車が生存しているセッションの集合です。
	Alive map[SessionID]bool
	// Violation は不変条件違反でルームが終了した場合に非nilになります。
	Violation error
}
