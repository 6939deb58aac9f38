package domain

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func rectGen() *rapid.Generator[Rect] {
	return rapid.Custom(func(t *rapid.T) Rect {
		return Rect{
			X: rapid.Float64Range(-500, 500).Draw(t, "x"),
			Y: rapid.Float64Range(-500, 500).Draw(t, "y"),
			W: rapid.Float64Range(0, 200).Draw(t, "w"),
			H: rapid.Float64Range(0, 200).Draw(t, "h"),
		}
	})
}

func TestRectsOverlap_Symmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rectGen().Draw(t, "a")
		b := rectGen().Draw(t, "b")
		if RectsOverlap(a, b) != RectsOverlap(b, a) {
			t.Fatalf("RectsOverlap(%+v, %+v) is not symmetric", a, b)
		}
	})
}

func TestRectsOverlap_Cases(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"separated on x", Rect{X: 0, Y: 0, W: 10, H: 10}, Rect{X: 20, Y: 0, W: 10, H: 10}, false},
		{"separated on y", Rect{X: 0, Y: 0, W: 10, H: 10}, Rect{X: 0, Y: 11, W: 10, H: 10}, false},
		{"touching edge", Rect{X: 0, Y: 0, W: 10, H: 10}, Rect{X: 10, Y: 0, W: 10, H: 10}, true},
		{"touching corner", Rect{X: 0, Y: 0, W: 10, H: 10}, Rect{X: 10, Y: 10, W: 5, H: 5}, true},
		{"contained", Rect{X: 0, Y: 0, W: 100, H: 100}, Rect{X: 10, Y: 10, W: 5, H: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RectsOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("RectsOverlap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPointInRect_Inclusive(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 10}
	for _, p := range r.Corners() {
		if !PointInRect(p, r) {
			t.Errorf("corner %+v should be inside", p)
		}
	}
	if PointInRect(Position2D{X: 10.001, Y: 5}, r) {
		t.Error("point just outside should not be inside")
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(Position2D{X: 0, Y: 0}, Position2D{X: 3, Y: 4}); got != 5 {
		t.Errorf("Distance = %f, want 5", got)
	}
}

// 重なり X=4, Y=10 の2台の戦車はX方向に4だけ押し出される
func TestMinimumOverlapPush_SmallerAxisWins(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 30, H: 40}
	b := Rect{X: 26, Y: 30, W: 30, H: 40}

	push := MinimumOverlapPush(a, b)
	if push.Y != 0 {
		t.Errorf("push.Y = %f, want 0", push.Y)
	}
	if math.Abs(push.X) != 4 {
		t.Errorf("|push.X| = %f, want 4", math.Abs(push.X))
	}
	if push.X >= 0 {
		t.Errorf("push.X = %f, want negative (a is left of b)", push.X)
	}

	// 逆向きは符号が反転する
	back := MinimumOverlapPush(b, a)
	if back.X != 4 || back.Y != 0 {
		t.Errorf("reverse push = %+v, want {4 0}", back)
	}
}

func TestMinimumOverlapPush_TieResolvesOnX(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 5, W: 10, H: 10}

	push := MinimumOverlapPush(a, b)
	if push.X != -5 || push.Y != 0 {
		t.Errorf("push = %+v, want {-5 0}", push)
	}
}

func TestMinimumOverlapPush_Separates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rectGen().Draw(t, "a")
		b := rectGen().Draw(t, "b")
		if !RectsOverlap(a, b) {
			t.Skip("not overlapping")
		}
		push := MinimumOverlapPush(a, b)
		moved := Rect{X: a.X + push.X, Y: a.Y + push.Y, W: a.W, H: a.H}
		// 押し出し後は高々辺が接する程度まで離れる
		overlapX := min(moved.X+moved.W-b.X, b.X+b.W-moved.X)
		overlapY := min(moved.Y+moved.H-b.Y, b.Y+b.H-moved.Y)
		if overlapX > 1e-6 && overlapY > 1e-6 {
			t.Fatalf("still penetrating after push %+v: overlapX=%f overlapY=%f", push, overlapX, overlapY)
		}
	})
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
		{359.5, 359.5},
	}
	for _, tt := range tests {
		if got := NormalizeDegrees(tt.in); got != tt.want {
			t.Errorf("NormalizeDegrees(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
