package application

import "tankarena/server/domain"

const BulletRadius = 3.0

// Bullet はフィールド上の弾丸です。速度は生成時に固定されます。
type Bullet struct {
	ID       string
	OwnerID  domain.TankID // 所有者は既に居ない場合もある
	Position domain.Position2D
	Velocity domain.Position2D
	Damage   float64
	Radius   float64
	Active   bool
}

// NewBullet はdirection(度)方向にspeedで進む弾を生成します。
func NewBullet(id string, pos domain.Position2D, direction, speed, damage float64, owner domain.TankID) *Bullet {
	return &Bullet{
		ID:       id,
		OwnerID:  owner,
		Position: pos,
		Velocity: domain.FromAngle(direction, speed),
		Damage:   damage,
		Radius:   BulletRadius,
		Active:   true,
	}
}

func (b *Bullet) Update(dt float64) {
	if !b.Active {
		return
	}
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
}

// Bounds は弾の当たり判定の矩形です。
func (b *Bullet) Bounds() domain.Rect {
	return domain.RectAround(b.Position, b.Radius*2, b.Radius*2)
}

func (b *Bullet) State() domain.BulletState {
	return domain.BulletState{
		ID:      b.ID,
		X:       b.Position.X,
		Y:       b.Position.Y,
		Radius:  b.Radius,
		OwnerID: b.OwnerID,
	}
}
