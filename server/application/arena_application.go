package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tankarena/server/domain"
)

// ArenaOptions はルームごとにフィールドを作るための設定です。
type ArenaOptions struct {
	Field FieldConfig
	// Map が nil なら Width×Height の空マップに RandomWalls 個の壁を置きます。
	Map         *Map
	Width       int
	Height      int
	TileSize    int
	RandomWalls int
	// Seed が0ならルーム作成時の時刻から決めます。
	Seed uint64
}

// NewArenaFactory はルームが作られるたびに新しいフィールドを用意するファクトリを返します。
// マップファイルを使う場合はルームごとに複製します。
func NewArenaFactory(opts ArenaOptions) domain.ApplicationFactory {
	return func(roomID domain.RoomID) domain.Application {
		seed := opts.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		if opts.Map != nil {
			return NewArenaApplication(roomID, NewField(opts.Map.Clone(), opts.Field, seed))
		}
		m := NewMap(opts.Width, opts.Height, opts.TileSize)
		f := NewField(m, opts.Field, seed)
		m.RandomizeWalls(f.Rand(), opts.RandomWalls)
		return NewArenaApplication(roomID, f)
	}
}

// ArenaApplication はセッションと戦車を対応付け、Fieldをdomain.Applicationとして公開します。
type ArenaApplication struct {
	roomID domain.RoomID
	field  *Field

	tanks map[domain.SessionID]domain.TankID
}

var _ domain.Application = (*ArenaApplication)(nil)

func NewArenaApplication(roomID domain.RoomID, field *Field) *ArenaApplication {
	return &ArenaApplication{
		roomID: roomID,
		field:  field,
		tanks:  make(map[domain.SessionID]domain.TankID),
	}
}

// Field はシミュレーション状態を返します。
func (app *ArenaApplication) Field() *Field {
	return app.field
}

func (app *ArenaApplication) Join(ctx context.Context, sessionID domain.SessionID, playerName string) (domain.JoinResult, error) {
	if _, ok := app.tanks[sessionID]; ok {
		return domain.JoinResult{}, domain.ErrAlreadyJoined
	}
	tank, err := app.field.AddPlayer(playerName)
	if err != nil {
		return domain.JoinResult{}, err
	}
	app.tanks[sessionID] = tank.ID

	state := app.field.State(app.roomID)
	state.Map = app.field.Map.State()
	slog.DebugContext(ctx, "tank spawned", "roomID", app.roomID, "sessionID", sessionID, "tankID", tank.ID, "x", tank.Position.X, "y", tank.Position.Y)
	return domain.JoinResult{TankID: tank.ID, State: state}, nil
}

func (app *ArenaApplication) Leave(ctx context.Context, sessionID domain.SessionID) (domain.TankID, bool) {
	tankID, ok := app.tanks[sessionID]
	if !ok {
		return "", false
	}
	delete(app.tanks, sessionID)
	app.field.RemoveTank(tankID)
	slog.DebugContext(ctx, "tank removed", "roomID", app.roomID, "sessionID", sessionID, "tankID", tankID)
	return tankID, true
}

func (app *ArenaApplication) Tick(ctx context.Context, dt float64, intents []domain.Intent) domain.Frame {
	tankIntents := make([]TankIntent, 0, len(intents))
	for _, in := range intents {
		tankID, ok := app.tanks[in.SessionID]
		if !ok {
			continue
		}
		tankIntents = append(tankIntents, TankIntent{TankID: tankID, Kind: in.Kind, Moving: in.Moving, Turn: in.Turn})
	}

	res := app.field.Tick(dt, tankIntents)

	frame := domain.Frame{
		State: app.field.State(app.roomID),
		Alive: make(map[domain.SessionID]bool, len(app.tanks)),
	}
	for sessionID, tankID := range app.tanks {
		if t, ok := app.field.Tank(tankID); ok && t.Alive && app.field.Status == StatusActive {
			frame.Alive[sessionID] = true
		}
	}
	if res.Finished != "" {
		slog.InfoContext(ctx, "round finished", "roomID", app.roomID, "reason", res.Finished, "level", app.field.Level)
		frame.Events = append(frame.Events, domain.NewRoomFinishedMessage(res.Finished))
	}
	if res.Restarted {
		slog.InfoContext(ctx, "round restarted", "roomID", app.roomID, "level", app.field.Level)
	}
	if res.Violation != nil {
		frame.Violation = fmt.Errorf("room %s: %w", app.roomID, res.Violation)
	}
	return frame
}
