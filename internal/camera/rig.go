package camera

import (
	"math"

	"github.com/Versifine/platformer/internal/physics"
)

type Config struct {
	LookSpeed             float64 `yaml:"look_speed"`
	HorizontalSensitivity float64 `yaml:"horizontal_sensitivity"`
	VerticalSensitivity   float64 `yaml:"vertical_sensitivity"`
	InvertY               bool    `yaml:"invert_y"`

	// Tilt limits in degrees. Positive tilt looks down.
	MinTilt float64 `yaml:"min_tilt"`
	MaxTilt float64 `yaml:"max_tilt"`

	InitialPan  float64 `yaml:"initial_pan"`
	InitialTilt float64 `yaml:"initial_tilt"`

	FollowDistance float64      `yaml:"follow_distance"`
	LookAtOffset   physics.Vec3 `yaml:"look_at_offset"`
}

func DefaultConfig() Config {
	return Config{
		LookSpeed:             1,
		HorizontalSensitivity: 1,
		VerticalSensitivity:   1,
		MinTilt:               -70,
		MaxTilt:               70,
		InitialTilt:           20,
		FollowDistance:        8,
		LookAtOffset:          physics.Vec3{Y: 1},
	}
}

// Rig is an orbit camera with pan/tilt axes that follows a target.
// Pan wraps around, tilt is clamped.
type Rig struct {
	cfg    Config
	pan    float64
	tilt   float64
	target physics.Vec3
}

func NewRig(cfg Config) *Rig {
	r := &Rig{cfg: cfg}
	r.SetPanTilt(cfg.InitialPan, cfg.InitialTilt)
	return r
}

func (r *Rig) Config() Config {
	return r.cfg
}

// SetConfig swaps tuning and re-clamps the current tilt.
func (r *Rig) SetConfig(cfg Config) {
	r.cfg = cfg
	r.SetPanTilt(r.pan, r.tilt)
}

// Look applies one frame of pointer motion. Nothing happens unless the look
// button is held.
func (r *Rig) Look(dx, dy float64, held bool) {
	if !held {
		return
	}
	dy *= r.cfg.VerticalSensitivity
	if r.cfg.InvertY {
		dy = -dy
	}
	dx *= r.cfg.HorizontalSensitivity
	r.SetPanTilt(r.pan+dx*r.cfg.LookSpeed, r.tilt+dy*r.cfg.LookSpeed)
}

func (r *Rig) SetPanTilt(pan, tilt float64) {
	r.pan = wrapDegrees(pan)
	r.tilt = clamp(tilt, r.cfg.MinTilt, r.cfg.MaxTilt)
}

func (r *Rig) Pan() float64 {
	return r.pan
}

func (r *Rig) Tilt() float64 {
	return r.tilt
}

func (r *Rig) Follow(target physics.Vec3) {
	r.target = target
}

func (r *Rig) LookAt() physics.Vec3 {
	return r.target.Add(r.cfg.LookAtOffset)
}

// Position is where the camera sits, FollowDistance behind the look-at point.
func (r *Rig) Position() physics.Vec3 {
	return r.LookAt().Sub(r.Forward().Scale(r.cfg.FollowDistance))
}

// Forward is the unit view direction. Pan 0 and tilt 0 looks down +Z.
func (r *Rig) Forward() physics.Vec3 {
	p := r.pan * math.Pi / 180
	t := r.tilt * math.Pi / 180
	return physics.Vec3{
		X: math.Sin(p) * math.Cos(t),
		Y: -math.Sin(t),
		Z: math.Cos(p) * math.Cos(t),
	}
}

// Right is always horizontal.
func (r *Rig) Right() physics.Vec3 {
	p := r.pan * math.Pi / 180
	return physics.Vec3{X: math.Cos(p), Z: -math.Sin(p)}
}

// wrapDegrees maps a to (-180, 180].
func wrapDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}
