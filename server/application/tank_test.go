package application

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"tankarena/server/domain"
)

func newTestTank(x, y, direction float64) *Tank {
	return NewTank("tank-1", KindPlayer, "p1", DefaultPlayerStats(), domain.Position2D{X: x, Y: y}, direction)
}

func TestTank_UpdateMovesForward(t *testing.T) {
	m := NewMap(10, 10, 40)
	tank := newTestTank(100, 100, 0)
	tank.Moving = true

	tank.Update(0.1, m, nil)

	if tank.Position.X != 110 {
		t.Errorf("Position.X = %v, want 110", tank.Position.X)
	}
	if tank.Position.Y != 100 {
		t.Errorf("Position.Y = %v, want 100", tank.Position.Y)
	}
}

func TestTank_UpdateStopsAtBoundaryWall(t *testing.T) {
	m := NewMap(5, 5, 40)
	tank := newTestTank(100, 100, 0)
	tank.Speed = 40
	tank.Moving = true

	for range 5 {
		tank.Update(1.0, m, nil)
	}

	if tank.Position.X != 140 {
		t.Errorf("Position.X = %v, want 140", tank.Position.X)
	}
	if right := tank.CollisionBox().X + tank.Width; right >= 160 {
		t.Errorf("right edge = %v, want < 160 (boundary wall)", right)
	}
}

func TestTank_UpdateRotation(t *testing.T) {
	m := NewMap(10, 10, 40)
	tank := newTestTank(100, 100, 0)
	tank.Turning = -1

	tank.Update(0.5, m, nil)

	if tank.Direction != 270 {
		t.Errorf("Direction = %v, want 270", tank.Direction)
	}
}

func TestTank_UpdateBlockedByTank(t *testing.T) {
	m := NewMap(10, 10, 40)
	tank := newTestTank(100, 100, 0)
	tank.Speed = 10
	tank.Moving = true
	other := NewTank("tank-2", KindPlayer, "p2", DefaultPlayerStats(), domain.Position2D{X: 140, Y: 100}, 0)

	tank.Update(1.0, m, []*Tank{tank, other})

	if tank.Position.X != 100 {
		t.Errorf("Position.X = %v, want 100 (blocked)", tank.Position.X)
	}

	other.TakeDamage(other.MaxHealth)
	tank.Update(1.0, m, []*Tank{tank, other})
	if tank.Position.X != 110 {
		t.Errorf("Position.X = %v, want 110 (dead tanks do not block)", tank.Position.X)
	}
}

func TestTank_UpdateRejectsMoveStillOverlapping(t *testing.T) {
	m := NewMap(10, 10, 40)
	tank := newTestTank(100, 100, 180)
	tank.Speed = 10
	tank.Moving = true
	other := NewTank("tank-2", KindPlayer, "p2", DefaultPlayerStats(), domain.Position2D{X: 120, Y: 100}, 0)

	tank.Update(1.0, m, []*Tank{tank, other})

	if tank.Position.X != 100 {
		t.Errorf("Position.X = %v, want 100 (candidate box still overlaps tank-2)", tank.Position.X)
	}
}

func TestTank_UpdateLeavesTouchingTank(t *testing.T) {
	m := NewMap(10, 10, 40)
	tank := newTestTank(100, 100, 180)
	tank.Speed = 10
	tank.Moving = true
	other := NewTank("tank-2", KindPlayer, "p2", DefaultPlayerStats(), domain.Position2D{X: 100 + tank.Width, Y: 100}, 0)

	tank.Update(1.0, m, []*Tank{tank, other})

	if math.Abs(tank.Position.X-90) > 1e-9 {
		t.Errorf("Position.X = %v, want 90", tank.Position.X)
	}
}

func TestTank_UpdateDeadIsNoop(t *testing.T) {
	m := NewMap(10, 10, 40)
	tank := newTestTank(100, 100, 0)
	tank.TakeDamage(tank.MaxHealth)
	tank.Moving = true
	tank.Turning = 1

	tank.Update(1.0, m, nil)

	if tank.Position != (domain.Position2D{X: 100, Y: 100}) || tank.Direction != 0 {
		t.Errorf("dead tank moved to %+v dir %v", tank.Position, tank.Direction)
	}
}

func TestTank_Fire(t *testing.T) {
	tank := newTestTank(100, 100, 0)
	var got []*Bullet
	spawn := func(b *Bullet) { got = append(got, b) }

	if !tank.Fire(spawn) {
		t.Fatal("first Fire() = false, want true")
	}
	if tank.Fire(spawn) {
		t.Error("Fire() during cooldown = true, want false")
	}
	if len(got) != 1 {
		t.Fatalf("bullets = %d, want 1", len(got))
	}
	if tank.FireCooldown != 1 {
		t.Errorf("FireCooldown = %v, want 1", tank.FireCooldown)
	}
	b := got[0]
	if b.Position != (domain.Position2D{X: 135, Y: 100}) {
		t.Errorf("bullet position = %+v, want muzzle (135,100)", b.Position)
	}
	if b.Velocity.X != 300 {
		t.Errorf("bullet velocity = %+v, want (300,0)", b.Velocity)
	}
	if b.OwnerID != tank.ID || b.Damage != 25 {
		t.Errorf("bullet owner/damage = %s/%v, want %s/25", b.OwnerID, b.Damage, tank.ID)
	}

	tank.TakeDamage(tank.MaxHealth)
	tank.FireCooldown = 0
	if tank.Fire(spawn) {
		t.Error("Fire() when dead = true, want false")
	}
}

func TestTank_TakeDamageFourHitsKill(t *testing.T) {
	tank := newTestTank(100, 100, 0)

	for i := 1; i <= 4; i++ {
		killed := tank.TakeDamage(25)
		if want := i == 4; killed != want {
			t.Errorf("hit %d: killed = %v, want %v", i, killed, want)
		}
	}
	if tank.Alive || tank.Health != 0 {
		t.Fatalf("after 4 hits Alive=%v Health=%v, want false/0", tank.Alive, tank.Health)
	}
	if tank.TakeDamage(25) {
		t.Error("5th hit killed = true, want false")
	}
	if tank.Health != 0 {
		t.Errorf("Health = %v after 5th hit, want 0", tank.Health)
	}
}

func TestTank_HealthMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tank := newTestTank(100, 100, 0)
		hits := rapid.SliceOfN(rapid.Float64Range(-10, 60), 1, 20).Draw(t, "hits")
		kills := 0
		for _, h := range hits {
			before := tank.Health
			if tank.TakeDamage(h) {
				kills++
			}
			if tank.Health > before {
				t.Fatalf("Health rose from %v to %v", before, tank.Health)
			}
			if tank.Health < 0 || tank.Health > tank.MaxHealth {
				t.Fatalf("Health = %v outside [0,%v]", tank.Health, tank.MaxHealth)
			}
			if tank.Alive != (tank.Health > 0) {
				t.Fatalf("Alive = %v with Health %v", tank.Alive, tank.Health)
			}
		}
		if kills > 1 {
			t.Fatalf("killed reported %d times", kills)
		}
	})
}

func TestTank_ResetIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tank := newTestTank(100, 100, 0)
		tank.TakeDamage(rapid.Float64Range(0, 200).Draw(t, "damage"))
		tank.Moving = rapid.Bool().Draw(t, "moving")
		tank.Turning = rapid.IntRange(-1, 1).Draw(t, "turning")
		x := rapid.Float64Range(0, 800).Draw(t, "x")
		y := rapid.Float64Range(0, 600).Draw(t, "y")
		dir := rapid.Float64Range(-720, 720).Draw(t, "dir")

		tank.Reset(x, y, dir)
		once := *tank
		tank.Reset(x, y, dir)

		if *tank != once {
			t.Fatalf("second Reset changed tank: %+v -> %+v", once, *tank)
		}
		if !tank.Alive || tank.Health != tank.MaxHealth || tank.Moving || tank.Turning != 0 || tank.FireCooldown != 0 {
			t.Fatalf("Reset left tank in %+v", *tank)
		}
	})
}

func TestBullet_Update(t *testing.T) {
	b := NewBullet("b-1", domain.Position2D{X: 10, Y: 10}, 90, 100, 25, "tank-1")

	b.Update(0.5)
	if math.Abs(b.Position.X-10) > 1e-9 || math.Abs(b.Position.Y-60) > 1e-9 {
		t.Errorf("Position = %+v, want (10,60)", b.Position)
	}

	b.Active = false
	b.Update(0.5)
	if math.Abs(b.Position.Y-60) > 1e-9 {
		t.Errorf("inactive bullet moved to %+v", b.Position)
	}

	if got := b.Bounds(); got.W != 6 || got.H != 6 {
		t.Errorf("Bounds() = %+v, want 6x6", got)
	}
}
