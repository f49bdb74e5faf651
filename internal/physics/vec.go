package physics

import "math"

type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

var (
	Up      = Vec3{Y: 1}
	Forward = Vec3{Z: 1}
	Right   = Vec3{X: 1}
)

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector, or the zero vector when v is too short
// to carry a direction.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < normalizeEpsilon {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Flatten drops the vertical component.
func (v Vec3) Flatten() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// Lerp moves v toward o by t, with t clamped to [0, 1].
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	t = Clamp01(t)
	return v.Add(o.Sub(v).Scale(t))
}

func (v Vec3) NearlyEqual(o Vec3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol &&
		math.Abs(v.Y-o.Y) <= tol &&
		math.Abs(v.Z-o.Z) <= tol
}

func Clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
