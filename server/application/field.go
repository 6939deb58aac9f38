package application

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"tankarena/server/domain"
)

// RoomStatus はフィールドの進行状態です。
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusActive   RoomStatus = "active"
	StatusFinished RoomStatus = "finished"
)

// 終了理由
const (
	ReasonLevelClear         = "level_clear"
	ReasonDefeat             = "defeat"
	ReasonLastTankStanding   = "last_tank_standing"
	ReasonInvariantViolation = "invariant_violation"
)

// KillScore は撃破したプレイヤーに与えるスコアです。
const KillScore = 100

var ErrInvariantViolation = errors.New("simulation invariant violated")

type FieldConfig struct {
	PlayerStats TankStats
	AIStats     TankStats
	AITanks     int
	// RestartDelay 経過後に次のラウンドを始めます。0以下なら終了したままです。
	RestartDelay time.Duration
	Bot          BotController
}

func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		PlayerStats:  DefaultPlayerStats(),
		AIStats:      DefaultAIStats(),
		AITanks:      3,
		RestartDelay: 3 * time.Second,
		Bot:          NewRandomBotController(),
	}
}

// TankIntent は戦車1台への1入力です。
type TankIntent struct {
	TankID domain.TankID
	Kind   domain.IntentKind
	Moving bool
	Turn   int
}

// TickResult はTickで起きたことをまとめたものです。
type TickResult struct {
	// Finished はこのtickでフィールドが終了した場合に理由が入ります。
	Finished  string
	Restarted bool
	Dropped   int
	Violation error
}

// Field はマップ、戦車、弾丸を持つ1ルーム分のシミュレーション状態です。
// 戦車は参加順に処理するため、同じシードと同じ入力列なら結果は決定的です。
type Field struct {
	Map *Map

	tanks   map[domain.TankID]*Tank
	order   []domain.TankID
	bullets []*Bullet

	Status RoomStatus
	Reason string
	Level  int
	tick   uint64

	cfg          FieldConfig
	rng          *rand.Rand
	nextTankID   int
	nextBulletID int
	finishedFor  float64
	roundPlayers int
}

// NewField は指定されたマップでフィールドを作成します。
func NewField(m *Map, cfg FieldConfig, seed uint64) *Field {
	if cfg.Bot == nil {
		cfg.Bot = NewRandomBotController()
	}
	return &Field{
		Map:    m,
		tanks:  make(map[domain.TankID]*Tank),
		Status: StatusWaiting,
		Level:  1,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Rand はフィールドの乱数源を返します。
func (f *Field) Rand() *rand.Rand {
	return f.rng
}

// TickCount はこれまでに進めたtick数です。
func (f *Field) TickCount() uint64 {
	return f.tick
}

// Tank はIDの戦車を返します。
func (f *Field) Tank(id domain.TankID) (*Tank, bool) {
	t, ok := f.tanks[id]
	return t, ok
}

// Tanks は参加順に戦車を返します。
func (f *Field) Tanks() []*Tank {
	out := make([]*Tank, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.tanks[id])
	}
	return out
}

func (f *Field) Bullets() []*Bullet {
	return f.bullets
}

// AddPlayer はプレイヤーの戦車を空き位置に置きます。最初の参加でラウンドが始まります。
func (f *Field) AddPlayer(name string) (*Tank, error) {
	pos, ok := f.findSpawn(f.cfg.PlayerStats)
	if !ok {
		return nil, fmt.Errorf("spawn player %q: %w", name, domain.ErrNoSpawnPoint)
	}
	t := f.addTank(KindPlayer, name, f.cfg.PlayerStats, pos, 0)
	if f.Status == StatusWaiting {
		f.startRound()
	}
	f.roundPlayers++
	return t, nil
}

// AddTank は指定した位置に戦車を置きます。テストやマップ固有の配置に使います。
func (f *Field) AddTank(kind TankKind, name string, stats TankStats, pos domain.Position2D, direction float64) *Tank {
	t := f.addTank(kind, name, stats, pos, direction)
	if f.Status == StatusWaiting {
		f.Status = StatusActive
	}
	if kind == KindPlayer {
		f.roundPlayers++
	}
	return t
}

// RemoveTank は戦車を削除対象にします。実際の削除と弾の破棄は次のTickで行います。
func (f *Field) RemoveTank(id domain.TankID) bool {
	t, ok := f.tanks[id]
	if !ok || t.Removed {
		return false
	}
	t.Removed = true
	t.Moving = false
	t.Turning = 0
	return true
}

func (f *Field) addTank(kind TankKind, name string, stats TankStats, pos domain.Position2D, direction float64) *Tank {
	f.nextTankID++
	id := domain.TankID("tank-" + strconv.Itoa(f.nextTankID))
	t := NewTank(id, kind, name, stats, pos, direction)
	f.tanks[id] = t
	f.order = append(f.order, id)
	return t
}

func (f *Field) findSpawn(stats TankStats) (domain.Position2D, bool) {
	var blocked []domain.Rect
	for _, t := range f.Tanks() {
		if !t.Removed {
			blocked = append(blocked, t.CollisionBox())
		}
	}
	return f.Map.FindSpawn(f.rng, stats.Width, stats.Height, blocked)
}

func (f *Field) startRound() {
	f.Status = StatusActive
	f.Reason = ""
	f.finishedFor = 0
	for i := range f.cfg.AITanks {
		pos, ok := f.findSpawn(f.cfg.AIStats)
		if !ok {
			break
		}
		f.addTank(KindAI, "AI "+strconv.Itoa(i+1), f.cfg.AIStats, pos, f.rng.Float64()*360)
	}
}

// Tick はdt秒だけシミュレーションを進めます。
func (f *Field) Tick(dt float64, intents []TankIntent) TickResult {
	f.tick++
	var res TickResult

	switch f.Status {
	case StatusActive:
		res.Dropped = f.applyIntents(intents)
		f.decideBots()
		f.updateTanks(dt)
		f.updateBullets(dt)
		f.resolveOverlaps()
		if reason := f.checkTermination(); reason != "" {
			f.finish(reason)
			res.Finished = reason
		}
	case StatusFinished:
		res.Dropped = len(intents)
		f.finishedFor += dt
		if f.canRestart() {
			f.restart()
			res.Restarted = true
		}
	default:
		res.Dropped = len(intents)
	}

	f.purge()

	if err := f.checkInvariants(); err != nil {
		res.Violation = err
		if f.Status != StatusFinished || f.Reason != ReasonInvariantViolation {
			f.finish(ReasonInvariantViolation)
			res.Finished = ReasonInvariantViolation
		}
	}
	return res
}

// applyIntents は戦車ごとに軸単位で最後の入力を採用します。fireは何回来ても1回の試行です。
func (f *Field) applyIntents(intents []TankIntent) int {
	dropped := 0
	fire := make(map[domain.TankID]bool)
	for _, in := range intents {
		t, ok := f.tanks[in.TankID]
		if !ok || !t.Active() {
			dropped++
			continue
		}
		switch in.Kind {
		case domain.IntentMove:
			t.Moving = in.Moving
		case domain.IntentTurn:
			t.Turning = in.Turn
		case domain.IntentFire:
			fire[in.TankID] = true
		default:
			dropped++
		}
	}
	for _, id := range f.order {
		if fire[id] {
			f.tanks[id].Fire(f.spawnBullet)
		}
	}
	return dropped
}

func (f *Field) decideBots() {
	for _, id := range f.order {
		t := f.tanks[id]
		if t.Kind != KindAI || !t.Active() {
			continue
		}
		a := f.cfg.Bot.Decide(f.rng)
		a.Apply(t)
		if a.Fire {
			t.Fire(f.spawnBullet)
		}
	}
}

func (f *Field) spawnBullet(b *Bullet) {
	f.nextBulletID++
	b.ID = "b-" + strconv.Itoa(f.nextBulletID)
	f.bullets = append(f.bullets, b)
}

func (f *Field) updateTanks(dt float64) {
	tanks := f.Tanks()
	for _, t := range tanks {
		if t.Removed {
			continue
		}
		t.Update(dt, f.Map, tanks)
	}
}

// updateBullets は弾を進め、マップ外、壁、所有者以外の戦車の順に判定します。
func (f *Field) updateBullets(dt float64) {
	for _, b := range f.bullets {
		if !b.Active {
			continue
		}
		b.Update(dt)
		switch {
		case !f.Map.InBounds(b.Position):
			b.Active = false
		case f.Map.IsWall(b.Position):
			b.Active = false
		default:
			f.hitTank(b)
		}
	}
}

func (f *Field) hitTank(b *Bullet) {
	box := b.Bounds()
	for _, id := range f.order {
		t := f.tanks[id]
		if id == b.OwnerID || !t.Active() {
			continue
		}
		if !domain.RectsOverlap(box, t.CollisionBox()) {
			continue
		}
		b.Active = false
		if t.TakeDamage(b.Damage) {
			if owner, ok := f.tanks[b.OwnerID]; ok && !owner.Removed {
				owner.Score += KillScore
			}
		}
		return
	}
}

// resolveOverlaps は戦車同士を先に、次に戦車と障害物の重なりを押し出しで解消します。
// 障害物を最後に処理するので、戦車同士の押し出しで壁にめり込んだままにはなりません。
func (f *Field) resolveOverlaps() {
	var live []*Tank
	for _, id := range f.order {
		if t := f.tanks[id]; t.Active() {
			live = append(live, t)
		}
	}
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			a, b := live[i], live[j]
			if !domain.RectsOverlap(a.CollisionBox(), b.CollisionBox()) {
				continue
			}
			push := domain.MinimumOverlapPush(a.CollisionBox(), b.CollisionBox()).Scale(0.5)
			a.Position = a.Position.Add(push)
			b.Position = b.Position.Add(push.Scale(-1))
		}
	}
	for _, t := range live {
		for _, o := range f.Map.Obstacles() {
			box := t.CollisionBox()
			if !domain.RectsOverlap(box, o) {
				continue
			}
			t.Position = t.Position.Add(domain.MinimumOverlapPush(box, o))
		}
	}
}

func (f *Field) checkTermination() string {
	var ai, aiAlive, players, playersAlive int
	for _, t := range f.tanks {
		if t.Removed {
			continue
		}
		switch t.Kind {
		case KindAI:
			ai++
			if t.Alive {
				aiAlive++
			}
		case KindPlayer:
			players++
			if t.Alive {
				playersAlive++
			}
		}
	}
	if ai > 0 {
		switch {
		case aiAlive == 0:
			return ReasonLevelClear
		case players > 0 && playersAlive == 0:
			return ReasonDefeat
		}
		return ""
	}
	if f.roundPlayers >= 2 && playersAlive <= 1 {
		return ReasonLastTankStanding
	}
	return ""
}

func (f *Field) finish(reason string) {
	f.Status = StatusFinished
	f.Reason = reason
	f.finishedFor = 0
}

func (f *Field) canRestart() bool {
	if f.Reason == ReasonInvariantViolation || f.cfg.RestartDelay <= 0 {
		return false
	}
	return f.finishedFor >= f.cfg.RestartDelay.Seconds()
}

// restart は全プレイヤーを新しい位置で復帰させ、AIを作り直して次のラウンドを始めます。
func (f *Field) restart() {
	if f.Reason == ReasonLevelClear {
		f.Level++
	}
	f.bullets = f.bullets[:0]

	var players []*Tank
	for _, t := range f.Tanks() {
		if t.Kind == KindAI {
			delete(f.tanks, t.ID)
			continue
		}
		players = append(players, t)
	}
	f.order = f.order[:0]
	for _, t := range players {
		f.order = append(f.order, t.ID)
	}

	// 置き直す戦車自身は邪魔にならないよう、置き終えた戦車だけを避ける
	var placed []domain.Rect
	for _, t := range players {
		if t.Removed {
			continue
		}
		pos, ok := f.Map.FindSpawn(f.rng, t.Width, t.Height, placed)
		if !ok {
			pos = t.Position
		}
		t.Reset(pos.X, pos.Y, 0)
		placed = append(placed, t.CollisionBox())
	}
	f.roundPlayers = 0
	for _, t := range players {
		if !t.Removed {
			f.roundPlayers++
		}
	}
	f.startRound()
}

// purge は非アクティブな弾と削除対象の戦車を取り除きます。
func (f *Field) purge() {
	removed := make(map[domain.TankID]bool)
	for _, id := range f.order {
		if f.tanks[id].Removed {
			removed[id] = true
		}
	}
	if len(removed) > 0 {
		for id := range removed {
			delete(f.tanks, id)
		}
		f.order = slices.DeleteFunc(f.order, func(id domain.TankID) bool { return removed[id] })
	}
	f.bullets = slices.DeleteFunc(f.bullets, func(b *Bullet) bool {
		return !b.Active || removed[b.OwnerID]
	})
	if f.Status != StatusWaiting && !f.hasPlayers() {
		// プレイヤーが居なくなったらAIも片付けて次の参加を待つ
		clear(f.tanks)
		f.order = f.order[:0]
		f.bullets = f.bullets[:0]
		f.Status = StatusWaiting
		f.Reason = ""
		f.roundPlayers = 0
	}
}

func (f *Field) hasPlayers() bool {
	for _, t := range f.tanks {
		if t.Kind == KindPlayer && !t.Removed {
			return true
		}
	}
	return false
}

func (f *Field) checkInvariants() error {
	for _, id := range f.order {
		t := f.tanks[id]
		if t.Health < 0 || t.Health > t.MaxHealth {
			return fmt.Errorf("%w: tank %s health %f outside [0,%f]", ErrInvariantViolation, id, t.Health, t.MaxHealth)
		}
		if t.Alive != (t.Health > 0) {
			return fmt.Errorf("%w: tank %s alive=%v with health %f", ErrInvariantViolation, id, t.Alive, t.Health)
		}
		if !t.Position.IsFinite() || math.IsNaN(t.Direction) || math.IsInf(t.Direction, 0) {
			return fmt.Errorf("%w: tank %s has non-finite pose", ErrInvariantViolation, id)
		}
	}
	for _, b := range f.bullets {
		if !b.Position.IsFinite() {
			return fmt.Errorf("%w: bullet %s has non-finite position", ErrInvariantViolation, b.ID)
		}
	}
	return nil
}

// State はフィールドのスナップショットを返します。削除対象の戦車は含めません。
func (f *Field) State(roomID domain.RoomID) domain.RoomState {
	tanks := make([]domain.TankState, 0, len(f.order))
	for _, id := range f.order {
		if t := f.tanks[id]; !t.Removed {
			tanks = append(tanks, t.State())
		}
	}
	bullets := make([]domain.BulletState, 0, len(f.bullets))
	for _, b := range f.bullets {
		if b.Active {
			bullets = append(bullets, b.State())
		}
	}
	return domain.RoomState{
		RoomID:    roomID,
		Status:    string(f.Status),
		Level:     f.Level,
		Tick:      f.tick,
		Tanks:     tanks,
		Bullets:   bullets,
		Timestamp: time.Now().UnixMilli(),
	}
}
