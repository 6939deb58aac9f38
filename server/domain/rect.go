package domain

// Rect は軸平行な矩形(AABB)です。X,Yは左上の座標です。
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectAround は中心座標とサイズから矩形を作ります。
func RectAround(center Position2D, w, h float64) Rect {
	return Rect{X: center.X - w/2, Y: center.Y - h/2, W: w, H: h}
}

// Center は矩形の中心を返します。
func (r Rect) Center() Position2D {
	return Position2D{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Corners は左上、右上、左下、右下の順に四隅を返します。
func (r Rect) Corners() [4]Position2D {
	return [4]Position2D{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X, Y: r.Y + r.H},
		{X: r.X + r.W, Y: r.Y + r.H},
	}
}

// RectsOverlap はどちらかの軸で分離している場合のみfalseを返します。
// 辺が接しているだけの場合も重なりとして扱います。
func RectsOverlap(a, b Rect) bool {
	return !(a.X > b.X+b.W ||
		a.X+a.W < b.X ||
		a.Y > b.Y+b.H ||
		a.Y+a.H < b.Y)
}

// PointInRect は境界を含めて点が矩形内にあるかを返します。
func PointInRect(p Position2D, r Rect) bool {
	return p.X >= r.X && p.X <= r.X+r.W &&
		p.Y >= r.Y && p.Y <= r.Y+r.H
}

// MinimumOverlapPush はaをbから引き離すための最小変位を返します。
// 侵入量の小さい軸に沿って押し出し、両軸の侵入量が等しい場合はX軸を選びます。
// 重なっていない矩形に対する戻り値は意味を持ちません。
func MinimumOverlapPush(a, b Rect) Position2D {
	overlapX := min(a.X+a.W-b.X, b.X+b.W-a.X)
	overlapY := min(a.Y+a.H-b.Y, b.Y+b.H-a.Y)

	if overlapX <= overlapY {
		if a.X < b.X {
			return Position2D{X: -overlapX}
		}
		return Position2D{X: overlapX}
	}
	if a.Y < b.Y {
		return Position2D{Y: -overlapY}
	}
	return Position2D{Y: overlapY}
}
