package domain

import (
	"math"
)

// Position2D はワールド座標上の点、または変位ベクトルを表します。
type Position2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add は2つのベクトルの和を返します。
func (p Position2D) Add(o Position2D) Position2D {
	return Position2D{X: p.X + o.X, Y: p.Y + o.Y}
}

// Scale はベクトルをk倍したものを返します。
func (p Position2D) Scale(k float64) Position2D {
	return Position2D{X: p.X * k, Y: p.Y * k}
}

// Length はベクトルの長さを返します。
func (p Position2D) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// IsFinite はNaN/Infを含まない場合にtrueを返します。
func (p Position2D) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// FromAngle は角度(度)と長さからベクトルを作ります。0度は+X方向、90度は+Y方向です。
func FromAngle(degrees, length float64) Position2D {
	rad := degrees * math.Pi / 180
	return Position2D{X: math.Cos(rad) * length, Y: math.Sin(rad) * length}
}

// Distance は2点間のユークリッド距離を返します。
func Distance(p1, p2 Position2D) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// NormalizeDegrees は角度を [0,360) に正規化します。
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
