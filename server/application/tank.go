package application

import (
	"tankarena/server/domain"
)

// TankKind はプレイヤー操作かAI操作かを表します。
type TankKind string

const (
	KindPlayer TankKind = "player"
	KindAI     TankKind = "ai"
)

// MuzzleOffset は砲口が車体前端からさらに前に出ている距離です。
const MuzzleOffset = 15.0

// TankStats は戦車の性能値です。
type TankStats struct {
	Speed         float64 // px/s
	RotationSpeed float64 // deg/s
	FireRate      float64 // shots/s
	MaxHealth     float64
	BulletSpeed   float64
	BulletDamage  float64
	Width         float64
	Height        float64
}

func DefaultPlayerStats() TankStats {
	return TankStats{
		Speed:         100,
		RotationSpeed: 180,
		FireRate:      1,
		MaxHealth:     100,
		BulletSpeed:   300,
		BulletDamage:  25,
		Width:         30,
		Height:        40,
	}
}

func DefaultAIStats() TankStats {
	return TankStats{
		Speed:         70,
		RotationSpeed: 120,
		FireRate:      0.5,
		MaxHealth:     80,
		BulletSpeed:   250,
		BulletDamage:  20,
		Width:         30,
		Height:        40,
	}
}

// Tank はフィールド上の戦車です。Alive は常に Health > 0 と一致します。
type Tank struct {
	ID        domain.TankID
	Kind      TankKind
	Name      string
	Position  domain.Position2D
	Direction float64 // 度, [0,360)

	Speed         float64
	RotationSpeed float64
	Width         float64
	Height        float64

	Health    float64
	MaxHealth float64
	Alive     bool
	Score     int

	FireCooldown float64
	FireRate     float64
	BulletSpeed  float64
	BulletDamage float64

	// 入力
	Moving  bool
	Turning int // -1, 0, 1

	// Removed は切断などで次のpurgeで取り除かれることを表します。
	Removed bool
}

func NewTank(id domain.TankID, kind TankKind, name string, stats TankStats, pos domain.Position2D, direction float64) *Tank {
	return &Tank{
		ID:            id,
		Kind:          kind,
		Name:          name,
		Position:      pos,
		Direction:     domain.NormalizeDegrees(direction),
		Speed:         stats.Speed,
		RotationSpeed: stats.RotationSpeed,
		Width:         stats.Width,
		Height:        stats.Height,
		Health:        stats.MaxHealth,
		MaxHealth:     stats.MaxHealth,
		Alive:         stats.MaxHealth > 0,
		FireRate:      stats.FireRate,
		BulletSpeed:   stats.BulletSpeed,
		BulletDamage:  stats.BulletDamage,
	}
}

// CollisionBox は向きに関係なく Width×Height の軸平行な矩形です。
func (t *Tank) CollisionBox() domain.Rect {
	return domain.RectAround(t.Position, t.Width, t.Height)
}

// Active は衝突や入力の対象になるかを返します。
func (t *Tank) Active() bool {
	return t.Alive && !t.Removed
}

// Update はクールダウン、回転、移動を進めます。
// 移動は四隅のどれかが壁に入るか、他の生存戦車にぶつかる場合は丸ごと取り消されます。
func (t *Tank) Update(dt float64, m *Map, others []*Tank) {
	if !t.Alive {
		return
	}
	t.FireCooldown = max(0, t.FireCooldown-dt)

	if t.Turning != 0 {
		t.Direction = domain.NormalizeDegrees(t.Direction + float64(t.Turning)*t.RotationSpeed*dt)
	}
	if !t.Moving {
		return
	}

	candidate := t.Position.Add(domain.FromAngle(t.Direction, t.Speed*dt))
	box := domain.RectAround(candidate, t.Width, t.Height)
	if !m.BoxClear(box) {
		return
	}
	for _, o := range others {
		if o == t || !o.Active() {
			continue
		}
		if domain.RectsOverlap(box, o.CollisionBox()) {
			return
		}
	}
	t.Position = candidate
}

// Muzzle は弾の発射位置を返します。
func (t *Tank) Muzzle() domain.Position2D {
	return t.Position.Add(domain.FromAngle(t.Direction, t.Height/2+MuzzleOffset))
}

// Fire はクールダウン中でなければ弾を1発生成してspawnに渡します。IDはspawn側で振ります。
func (t *Tank) Fire(spawn func(*Bullet)) bool {
	if !t.Alive || t.FireCooldown > 0 {
		return false
	}
	if t.FireRate > 0 {
		t.FireCooldown = 1 / t.FireRate
	}
	spawn(NewBullet("", t.Muzzle(), t.Direction, t.BulletSpeed, t.BulletDamage, t.ID))
	return true
}

// TakeDamage はダメージを受けます。この呼び出しで撃破された場合だけtrueを返します。
func (t *Tank) TakeDamage(amount float64) bool {
	if !t.Alive || amount <= 0 {
		return false
	}
	t.Health = max(0, t.Health-amount)
	if t.Health == 0 {
		t.Alive = false
		t.Moving = false
		t.Turning = 0
		return true
	}
	return false
}

// Reset は指定位置で体力を全快させて復帰させます。
func (t *Tank) Reset(x, y, direction float64) {
	t.Position = domain.Position2D{X: x, Y: y}
	t.Direction = domain.NormalizeDegrees(direction)
	t.Health = t.MaxHealth
	t.Alive = t.MaxHealth > 0
	t.Moving = false
	t.Turning = 0
	t.FireCooldown = 0
}

// State はクライアントに送る戦車の表現を返します。
func (t *Tank) State() domain.TankState {
	return domain.TankState{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Name:      t.Name,
		X:         t.Position.X,
		Y:         t.Position.Y,
		Direction: t.Direction,
		Width:     t.Width,
		Height:    t.Height,
		Health:    t.Health,
		MaxHealth: t.MaxHealth,
		Alive:     t.Alive,
		Score:     t.Score,
	}
}
