package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"tankarena/server/domain"
)

// TileKind はタイルの種類です。0と1以外の値は空きタイルとして扱います。
type TileKind int

const (
	TileEmpty TileKind = 0
	TileWall  TileKind = 1
)

var ErrInvalidMapData = errors.New("invalid map data")

// Map はタイルのグリッドと、壁タイルから導出した障害物の一覧を持ちます。
// 外周は常に壁です。
type Map struct {
	Width    int
	Height   int
	TileSize int

	tiles     [][]TileKind
	obstacles []domain.Rect
}

// MapData はマップファイルの形式です。
type MapData struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	TileSize int     `json:"tileSize"`
	Tiles    [][]int `json:"tiles"`
}

// NewMap は外周だけが壁の空のマップを作成します。
func NewMap(width, height, tileSize int) *Map {
	m := &Map{
		Width:    width,
		Height:   height,
		TileSize: tileSize,
		tiles:    make([][]TileKind, height),
	}
	for y := range m.tiles {
		m.tiles[y] = make([]TileKind, width)
	}
	m.addBoundaryWalls()
	m.generateObstacles()
	return m
}

// ParseMapData はJSONのマップデータからMapを作成します。
func ParseMapData(data []byte) (*Map, error) {
	var md MapData
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapData, err)
	}
	if md.Width <= 0 || md.Height <= 0 || md.TileSize <= 0 {
		return nil, fmt.Errorf("%w: non-positive size %dx%d tile %d", ErrInvalidMapData, md.Width, md.Height, md.TileSize)
	}
	m := NewMap(md.Width, md.Height, md.TileSize)
	if err := m.Load(md.Tiles); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadMapFile はファイルからマップを読み込みます。
func LoadMapFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map file: %w", err)
	}
	return ParseMapData(data)
}

// Load はタイルを差し替えます。寸法が合わない場合は何も変更せずにErrInvalidMapDataを返します。
func (m *Map) Load(tiles [][]int) error {
	if len(tiles) != m.Height {
		return fmt.Errorf("%w: got %d rows, want %d", ErrInvalidMapData, len(tiles), m.Height)
	}
	for y, row := range tiles {
		if len(row) != m.Width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMapData, y, len(row), m.Width)
		}
	}

	next := make([][]TileKind, m.Height)
	for y, row := range tiles {
		next[y] = make([]TileKind, m.Width)
		for x, v := range row {
			next[y][x] = TileKind(v)
		}
	}
	m.tiles = next
	m.addBoundaryWalls()
	m.generateObstacles()
	return nil
}

// Clone はタイルを共有しないコピーを返します。
func (m *Map) Clone() *Map {
	c := &Map{
		Width:    m.Width,
		Height:   m.Height,
		TileSize: m.TileSize,
		tiles:    make([][]TileKind, m.Height),
	}
	for y, row := range m.tiles {
		c.tiles[y] = append([]TileKind(nil), row...)
	}
	c.generateObstacles()
	return c
}

// RandomizeWalls は内側のランダムなタイルにn個の壁を置きます。
func (m *Map) RandomizeWalls(rng *rand.Rand, n int) {
	if m.Width <= 2 || m.Height <= 2 {
		return
	}
	for range n {
		x := rng.IntN(m.Width-2) + 1
		y := rng.IntN(m.Height-2) + 1
		m.tiles[y][x] = TileWall
	}
	m.generateObstacles()
}

func (m *Map) addBoundaryWalls() {
	for x := 0; x < m.Width; x++ {
		m.tiles[0][x] = TileWall
		m.tiles[m.Height-1][x] = TileWall
	}
	for y := 0; y < m.Height; y++ {
		m.tiles[y][0] = TileWall
		m.tiles[y][m.Width-1] = TileWall
	}
}

func (m *Map) generateObstacles() {
	// 以前Obstaclesで返したスライスは書き換えない
	m.obstacles = make([]domain.Rect, 0, len(m.obstacles))
	ts := float64(m.TileSize)
	for y, row := range m.tiles {
		for x, t := range row {
			if t == TileWall {
				m.obstacles = append(m.obstacles, domain.Rect{X: float64(x) * ts, Y: float64(y) * ts, W: ts, H: ts})
			}
		}
	}
}

// Tile は(tx, ty)のタイルを返します。範囲外は壁です。
func (m *Map) Tile(tx, ty int) TileKind {
	if tx < 0 || ty < 0 || tx >= m.Width || ty >= m.Height {
		return TileWall
	}
	return m.tiles[ty][tx]
}

// IsWall はワールド座標が壁タイル上にあるかを返します。マップ外も壁として扱います。
func (m *Map) IsWall(p domain.Position2D) bool {
	ts := float64(m.TileSize)
	tx := math.Floor(p.X / ts)
	ty := math.Floor(p.Y / ts)
	if math.IsNaN(tx) || math.IsNaN(ty) {
		return true
	}
	return m.Tile(int(tx), int(ty)) == TileWall
}

// Obstacles は壁タイルごとの矩形を返します。呼び出し側で変更してはいけません。
func (m *Map) Obstacles() []domain.Rect {
	return m.obstacles
}

func (m *Map) WorldWidth() float64 {
	return float64(m.Width * m.TileSize)
}

func (m *Map) WorldHeight() float64 {
	return float64(m.Height * m.TileSize)
}

// InBounds はワールド座標がマップの範囲内かを返します。
func (m *Map) InBounds(p domain.Position2D) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= m.WorldWidth() && p.Y <= m.WorldHeight()
}

// BoxClear は矩形の四隅がいずれも壁タイルに無いかを返します。
func (m *Map) BoxClear(r domain.Rect) bool {
	for _, c := range r.Corners() {
		if m.IsWall(c) {
			return false
		}
	}
	return true
}

const spawnAttempts = 100

// FindSpawn は壁にもblockedにも重ならない、w×hの戦車を置けるタイル中心を探します。
// ランダムに試した後、見つからなければ全タイルを走査します。
func (m *Map) FindSpawn(rng *rand.Rand, w, h float64, blocked []domain.Rect) (domain.Position2D, bool) {
	ts := float64(m.TileSize)
	fits := func(tx, ty int) (domain.Position2D, bool) {
		if m.Tile(tx, ty) == TileWall {
			return domain.Position2D{}, false
		}
		center := domain.Position2D{X: (float64(tx) + 0.5) * ts, Y: (float64(ty) + 0.5) * ts}
		box := domain.RectAround(center, w, h)
		if !m.BoxClear(box) {
			return domain.Position2D{}, false
		}
		for _, b := range blocked {
			if domain.RectsOverlap(box, b) {
				return domain.Position2D{}, false
			}
		}
		return center, true
	}

	if m.Width > 2 && m.Height > 2 {
		for range spawnAttempts {
			if p, ok := fits(rng.IntN(m.Width-2)+1, rng.IntN(m.Height-2)+1); ok {
				return p, true
			}
		}
	}
	for ty := 1; ty < m.Height-1; ty++ {
		for tx := 1; tx < m.Width-1; tx++ {
			if p, ok := fits(tx, ty); ok {
				return p, true
			}
		}
	}
	return domain.Position2D{}, false
}

// State はクライアントに送るマップ表現を返します。
func (m *Map) State() *domain.MapState {
	tiles := make([][]int, m.Height)
	for y, row := range m.tiles {
		tiles[y] = make([]int, m.Width)
		for x, t := range row {
			tiles[y][x] = int(t)
		}
	}
	return &domain.MapState{Width: m.Width, Height: m.Height, TileSize: m.TileSize, Tiles: tiles}
}
