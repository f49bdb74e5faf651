package physics

import "math"

type BodyConfig struct {
	Mass        float64
	Drag        float64
	HalfExtents Vec3
	Mask        LayerMask
}

func DefaultBodyConfig() BodyConfig {
	return BodyConfig{
		Mass: DefaultBodyMass,
		HalfExtents: Vec3{
			X: DefaultBodyHalfWidth,
			Y: DefaultBodyHalfHeight,
			Z: DefaultBodyHalfDepth,
		},
		Mask: MaskAll,
	}
}

// RigidBody is a box-shaped dynamic body with rotation frozen. Position is
// the box center.
type RigidBody struct {
	position    Vec3
	velocity    Vec3
	mass        float64
	drag        float64
	useGravity  bool
	facing      Vec3
	halfExtents Vec3
	mask        LayerMask
	lastBlocked Blocked
}

func NewRigidBody(position Vec3, cfg BodyConfig) *RigidBody {
	if cfg.Mass <= 0 {
		cfg.Mass = DefaultBodyMass
	}
	if cfg.HalfExtents == (Vec3{}) {
		cfg.HalfExtents = DefaultBodyConfig().HalfExtents
	}
	if cfg.Mask == 0 {
		cfg.Mask = MaskAll
	}
	return &RigidBody{
		position:    position,
		mass:        cfg.Mass,
		drag:        math.Max(0, cfg.Drag),
		useGravity:  true,
		facing:      Forward,
		halfExtents: cfg.HalfExtents,
		mask:        cfg.Mask,
	}
}

func (b *RigidBody) Position() Vec3 { return b.position }
func (b *RigidBody) SetPosition(p Vec3) { b.position = p }
func (b *RigidBody) Velocity() Vec3 { return b.velocity }
func (b *RigidBody) SetVelocity(v Vec3) { b.velocity = v }
func (b *RigidBody) Mass() float64 { return b.mass }
func (b *RigidBody) Drag() float64 { return b.drag }
func (b *RigidBody) SetDrag(d float64) { b.drag = math.Max(0, d) }
func (b *RigidBody) UseGravity() bool { return b.useGravity }
func (b *RigidBody) SetUseGravity(use bool) { b.useGravity = use }
func (b *RigidBody) HalfExtents() Vec3 { return b.halfExtents }
func (b *RigidBody) LastBlocked() Blocked { return b.lastBlocked }
func (b *RigidBody) Bounds() AABB { return BoxAround(b.position, b.halfExtents) }

// Forward is the facing direction on the horizontal plane.
func (b *RigidBody) Forward() Vec3 { return b.facing }

func (b *RigidBody) SetForward(dir Vec3) {
	flat := dir.Flatten().Normalize()
	if flat == (Vec3{}) {
		return
	}
	b.facing = flat
}

// AddImpulse applies an instantaneous change of momentum.
func (b *RigidBody) AddImpulse(impulse Vec3) {
	b.velocity = b.velocity.Add(impulse.Scale(1 / b.mass))
}

func (b *RigidBody) integrate(dt float64, gravity Vec3, store BlockStore) {
	if b.useGravity {
		b.velocity = b.velocity.Add(gravity.Scale(dt))
	}
	if b.drag > 0 {
		b.velocity = b.velocity.Scale(Clamp01(1 - b.drag*dt))
	}

	moved, blocked := ResolveMovement(b.Bounds(), b.velocity.Scale(dt), store, b.mask)
	b.position = b.position.Add(moved)
	b.lastBlocked = blocked
	if blocked[AxisX] {
		b.velocity.X = 0
	}
	if blocked[AxisY] {
		b.velocity.Y = 0
	}
	if blocked[AxisZ] {
		b.velocity.Z = 0
	}
	zeroResidualVelocity(&b.velocity)
}

func zeroResidualVelocity(v *Vec3) {
	if math.Abs(v.X) < MinimumResidualSpeed {
		v.X = 0
	}
	if math.Abs(v.Y) < MinimumResidualSpeed {
		v.Y = 0
	}
	if math.Abs(v.Z) < MinimumResidualSpeed {
		v.Z = 0
	}
}
