package world

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Versifine/platformer/internal/physics"
)

var ErrNoSpawn = errors.New("level has no player spawn")

// maxCells bounds the total block count of a level file.
const maxCells = 1 << 20

type Cell struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// BlockRange fills every cell from Min to Max inclusive with one layer.
type BlockRange struct {
	Layer string `yaml:"layer"`
	Min   Cell   `yaml:"min"`
	Max   Cell   `yaml:"max"`
}

type CoinSpawn struct {
	Position physics.Vec3 `yaml:"position"`
	Points   int          `yaml:"points"`
	Radius   float64      `yaml:"radius"`
}

type Definition struct {
	Name        string        `yaml:"name"`
	Spawn       *physics.Vec3 `yaml:"spawn"`
	SpawnFacing physics.Vec3  `yaml:"spawn_facing"`
	Blocks      []BlockRange  `yaml:"blocks"`
	Coins       []CoinSpawn   `yaml:"coins"`
}

// Column is the top-most block of an (x, z) column.
type Column struct {
	X, Z  int
	Top   int
	Layer physics.Layer
}

// Level is voxel geometry plus spawn points. It is safe for concurrent use.
type Level struct {
	mu          sync.RWMutex
	name        string
	cells       map[Cell]physics.Layer
	spawn       physics.Vec3
	spawnFacing physics.Vec3
	coins       []CoinSpawn
}

func Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", path, err)
	}
	return lvl, nil
}

func Parse(data []byte) (*Level, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	return New(def)
}

func New(def Definition) (*Level, error) {
	if def.Spawn == nil {
		return nil, ErrNoSpawn
	}

	lvl := &Level{
		name:        def.Name,
		cells:       make(map[Cell]physics.Layer),
		spawn:       *def.Spawn,
		spawnFacing: def.SpawnFacing.Flatten().Normalize(),
	}
	if lvl.spawnFacing == (physics.Vec3{}) {
		lvl.spawnFacing = physics.Forward
	}

	for i, r := range def.Blocks {
		layer, ok := physics.ParseLayer(r.Layer)
		if !ok {
			return nil, fmt.Errorf("block range %d: unknown layer %q", i, r.Layer)
		}
		lo, hi := orderCells(r.Min, r.Max)
		n := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1) * (hi.Z - lo.Z + 1)
		if n <= 0 || len(lvl.cells)+n > maxCells {
			return nil, fmt.Errorf("block range %d: too many cells (%d)", i, n)
		}
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for z := lo.Z; z <= hi.Z; z++ {
					lvl.set(Cell{X: x, Y: y, Z: z}, layer)
				}
			}
		}
	}

	for i, c := range def.Coins {
		if c.Points <= 0 {
			c.Points = 1
		}
		if c.Radius < 0 {
			return nil, fmt.Errorf("coin %d: negative radius %g", i, c.Radius)
		}
		lvl.coins = append(lvl.coins, c)
	}
	return lvl, nil
}

func (l *Level) Name() string {
	return l.name
}

func (l *Level) Spawn() physics.Vec3 {
	return l.spawn
}

func (l *Level) SpawnFacing() physics.Vec3 {
	return l.spawnFacing
}

// Coins returns a copy of the coin spawns in file order.
func (l *Level) Coins() []CoinSpawn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]CoinSpawn, len(l.coins))
	copy(out, l.coins)
	return out
}

func (l *Level) LayerAt(x, y, z int) physics.Layer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cells[Cell{X: x, Y: y, Z: z}]
}

// SetLayer places or clears (LayerNone) a block.
func (l *Level) SetLayer(x, y, z int, layer physics.Layer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(Cell{X: x, Y: y, Z: z}, layer)
}

func (l *Level) set(c Cell, layer physics.Layer) {
	if layer == physics.LayerNone {
		delete(l.cells, c)
		return
	}
	l.cells[c] = layer
}

func (l *Level) BlockCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cells)
}

// Bounds returns the inclusive cell range holding every block. ok is false
// for an empty level.
func (l *Level) Bounds() (lo, hi Cell, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for c := range l.cells {
		if !ok {
			lo, hi, ok = c, c, true
			continue
		}
		lo = Cell{X: min(lo.X, c.X), Y: min(lo.Y, c.Y), Z: min(lo.Z, c.Z)}
		hi = Cell{X: max(hi.X, c.X), Y: max(hi.Y, c.Y), Z: max(hi.Z, c.Z)}
	}
	return lo, hi, ok
}

// Surface returns the top block of every occupied column, sorted by Z then X.
func (l *Level) Surface() []Column {
	l.mu.RLock()
	tops := make(map[[2]int]Column)
	for c, layer := range l.cells {
		key := [2]int{c.X, c.Z}
		if col, ok := tops[key]; ok && col.Top >= c.Y {
			continue
		}
		tops[key] = Column{X: c.X, Z: c.Z, Top: c.Y, Layer: layer}
	}
	l.mu.RUnlock()

	out := make([]Column, 0, len(tops))
	for _, col := range tops {
		out = append(out, col)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].X < out[j].X
	})
	return out
}

func orderCells(a, b Cell) (Cell, Cell) {
	return Cell{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Cell{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}
