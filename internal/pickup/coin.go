package pickup

import (
	"math"
	"sync"

	"github.com/Versifine/platformer/internal/physics"
)

const (
	DefaultRadius    = 0.5
	DefaultSpinSpeed = 100 // degrees per second
)

// ScoreSink receives points for collected coins.
type ScoreSink interface {
	AddScore(points int)
}

type Coin struct {
	ID       int
	Position physics.Vec3
	Radius   float64
	Points   int

	SpinAxis  physics.Vec3
	SpinSpeed float64
	// Angle is the current spin around SpinAxis in degrees, in [0, 360).
	Angle float64
}

// CollectFunc is notified after a coin has been scored and removed.
type CollectFunc func(c Coin)

// Field holds the coins still present in a level.
type Field struct {
	mu        sync.Mutex
	coins     []Coin
	sink      ScoreSink
	onCollect CollectFunc
	total     int
}

func NewField(coins []Coin, sink ScoreSink, onCollect CollectFunc) *Field {
	f := &Field{sink: sink, onCollect: onCollect}
	for i, c := range coins {
		if c.Radius <= 0 {
			c.Radius = DefaultRadius
		}
		if c.Points <= 0 {
			c.Points = 1
		}
		if c.SpinAxis == (physics.Vec3{}) {
			c.SpinAxis = physics.Up
		}
		if c.SpinSpeed == 0 {
			c.SpinSpeed = DefaultSpinSpeed
		}
		if c.ID == 0 {
			c.ID = i + 1
		}
		f.coins = append(f.coins, c)
		f.total += c.Points
	}
	return f
}

// Update spins every coin.
func (f *Field) Update(dt float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.coins {
		a := math.Mod(f.coins[i].Angle+f.coins[i].SpinSpeed*dt, 360)
		if a < 0 {
			a += 360
		}
		f.coins[i].Angle = a
	}
}

// Collect removes every coin whose trigger sphere touches box and credits
// its points. It returns the collected coins.
func (f *Field) Collect(box physics.AABB) []Coin {
	f.mu.Lock()
	var taken []Coin
	kept := f.coins[:0]
	for _, c := range f.coins {
		if box.IntersectsSphere(c.Position, c.Radius) {
			taken = append(taken, c)
			continue
		}
		kept = append(kept, c)
	}
	f.coins = kept
	f.mu.Unlock()

	for _, c := range taken {
		if f.sink != nil {
			f.sink.AddScore(c.Points)
		}
		if f.onCollect != nil {
			f.onCollect(c)
		}
	}
	return taken
}

// Remaining returns a copy of the coins not yet collected.
func (f *Field) Remaining() []Coin {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Coin, len(f.coins))
	copy(out, f.coins)
	return out
}

// TotalPoints is the sum of points of every coin the field started with.
func (f *Field) TotalPoints() int {
	return f.total
}
