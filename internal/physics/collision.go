package physics

import "math"

// Layer tags a solid block. LayerNone is empty space.
type Layer uint8

const (
	LayerNone Layer = iota
	LayerGround
	LayerWall
	LayerHazard
)

var layerNames = map[string]Layer{
	"none":   LayerNone,
	"ground": LayerGround,
	"wall":   LayerWall,
	"hazard": LayerHazard,
}

func ParseLayer(name string) (Layer, bool) {
	l, ok := layerNames[name]
	return l, ok
}

func (l Layer) String() string {
	for name, v := range layerNames {
		if v == l {
			return name
		}
	}
	return "unknown"
}

type LayerMask uint32

const MaskAll LayerMask = ^LayerMask(1 << LayerNone)

func MaskOf(layers ...Layer) LayerMask {
	var m LayerMask
	for _, l := range layers {
		if l == LayerNone {
			continue
		}
		m |= 1 << l
	}
	return m
}

func (m LayerMask) Has(l Layer) bool {
	return l != LayerNone && m&(1<<l) != 0
}

type BlockStore interface {
	LayerAt(x, y, z int) Layer
}

type AABB struct {
	Min Vec3
	Max Vec3
}

func BoxAround(center, halfExtents Vec3) AABB {
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

func (b AABB) Translate(d Vec3) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X < o.Max.X && b.Max.X > o.Min.X &&
		b.Min.Y < o.Max.Y && b.Max.Y > o.Min.Y &&
		b.Min.Z < o.Max.Z && b.Max.Z > o.Min.Z
}

// IntersectsSphere uses the closest point of the box to the sphere center.
func (b AABB) IntersectsSphere(center Vec3, radius float64) bool {
	closest := Vec3{
		X: math.Max(b.Min.X, math.Min(center.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(center.Y, b.Max.Y)),
		Z: math.Max(b.Min.Z, math.Min(center.Z, b.Max.Z)),
	}
	d := closest.Sub(center)
	return d.Dot(d) <= radius*radius
}

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (v Vec3) component(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

func (v *Vec3) setComponent(a Axis, val float64) {
	switch a {
	case AxisX:
		v.X = val
	case AxisY:
		v.Y = val
	default:
		v.Z = val
	}
}

// Blocked reports which axes were stopped by a solid block.
type Blocked [3]bool

func (b Blocked) Any() bool {
	return b[AxisX] || b[AxisY] || b[AxisZ]
}

func CollidesWithBlock(box AABB, store BlockStore, mask LayerMask) bool {
	if store == nil {
		return false
	}
	for y := floorForMin(box.Min.Y); y <= floorForMax(box.Max.Y); y++ {
		for x := floorForMin(box.Min.X); x <= floorForMax(box.Max.X); x++ {
			for z := floorForMin(box.Min.Z); z <= floorForMax(box.Max.Z); z++ {
				if !mask.Has(store.LayerAt(x, y, z)) {
					continue
				}
				if box.Intersects(blockBox(x, y, z)) {
					return true
				}
			}
		}
	}
	return false
}

// ResolveMovement moves box by delta one axis at a time (Y, then X, then Z)
// and returns the displacement actually allowed by the solid blocks.
func ResolveMovement(box AABB, delta Vec3, store BlockStore, mask LayerMask) (Vec3, Blocked) {
	var moved Vec3
	var blocked Blocked
	for _, a := range [...]Axis{AxisY, AxisX, AxisZ} {
		want := delta.component(a)
		got := sweepAxis(box, a, want, store, mask)
		if !nearlyEqual(got, want) {
			blocked[a] = true
		}
		moved.setComponent(a, got)
		var step Vec3
		step.setComponent(a, got)
		box = box.Translate(step)
	}
	return moved, blocked
}

func sweepAxis(box AABB, a Axis, delta float64, store BlockStore, mask LayerMask) float64 {
	if store == nil || nearlyZero(delta) {
		return delta
	}
	u, w := crossAxes(a)
	uMin, uMax := floorForMin(box.Min.component(u)), floorForMax(box.Max.component(u))
	wMin, wMax := floorForMin(box.Min.component(w)), floorForMax(box.Max.component(w))

	solidSlab := func(i int) bool {
		var cell [3]int
		cell[a] = i
		for j := uMin; j <= uMax; j++ {
			for k := wMin; k <= wMax; k++ {
				cell[u] = j
				cell[w] = k
				if mask.Has(store.LayerAt(cell[AxisX], cell[AxisY], cell[AxisZ])) {
					return true
				}
			}
		}
		return false
	}

	if delta > 0 {
		edge := box.Max.component(a)
		first := floorForMax(edge) + 1
		last := int(math.Floor(edge + delta))
		for i := first; i <= last; i++ {
			if solidSlab(i) {
				return math.Max(0, float64(i)-edge)
			}
		}
		return delta
	}

	edge := box.Min.component(a)
	first := floorForMin(edge) - 1
	last := int(math.Floor(edge + delta))
	for i := first; i >= last; i-- {
		if solidSlab(i) {
			return math.Min(0, float64(i+1)-edge)
		}
	}
	return delta
}

func crossAxes(a Axis) (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

func blockBox(x, y, z int) AABB {
	return AABB{
		Min: Vec3{X: float64(x), Y: float64(y), Z: float64(z)},
		Max: Vec3{X: float64(x + 1), Y: float64(y + 1), Z: float64(z + 1)},
	}
}

func floorForMin(v float64) int {
	return int(math.Floor(v + CollisionAxisTolerance))
}

func floorForMax(v float64) int {
	return int(math.Floor(v - CollisionAxisTolerance))
}

func nearlyZero(v float64) bool {
	return math.Abs(v) <= CollisionAxisTolerance
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= CollisionAxisTolerance
}
