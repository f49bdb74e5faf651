package locomotion

import (
	"errors"
	"log/slog"
	"math"

	"github.com/Versifine/platformer/internal/physics"
)

// Body is the rigid body the controller drives. The physics engine owns it;
// the controller reads and overwrites its velocity once per step.
type Body interface {
	Position() physics.Vec3
	Velocity() physics.Vec3
	SetVelocity(v physics.Vec3)
	AddImpulse(impulse physics.Vec3)
	Drag() float64
	SetDrag(d float64)
	UseGravity() bool
	SetUseGravity(use bool)
	Forward() physics.Vec3
}

// Environment answers the ground check and exposes world gravity.
type Environment interface {
	CheckSphere(center physics.Vec3, radius float64, mask physics.LayerMask) bool
	Gravity() physics.Vec3
}

type CameraBasis interface {
	Forward() physics.Vec3
	Right() physics.Vec3
}

type Option func(*Controller)

func WithCamera(camera CameraBasis) Option {
	return func(c *Controller) { c.camera = camera }
}

func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}

func WithGroundMask(mask physics.LayerMask) Option {
	return func(c *Controller) { c.groundMask = mask }
}

type Controller struct {
	cfg          Config
	groundOffset physics.Vec3
	groundMask   physics.LayerMask

	body     Body
	env      Environment
	camera   CameraBasis
	listener Listener

	state        State
	savedDrag    float64
	savedGravity bool
}

func NewController(cfg Config, body Body, env Environment, opts ...Option) (*Controller, error) {
	if body == nil {
		return nil, errors.New("locomotion: body is nil")
	}
	if env == nil {
		return nil, errors.New("locomotion: environment is nil")
	}
	c := &Controller{
		body:       body,
		env:        env,
		groundMask: physics.MaskOf(physics.LayerGround),
		state:      newState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetConfig(cfg)
	return c, nil
}

// SetConfig swaps the tuning. A missing ground-check anchor is synthesized
// at the feet of a one-unit-tall body.
func (c *Controller) SetConfig(cfg Config) {
	if cfg.GroundCheckOffset == nil {
		slog.Warn("Ground check anchor not configured, using default", "offset", DefaultGroundCheckOffset)
		c.groundOffset = DefaultGroundCheckOffset
	} else {
		c.groundOffset = *cfg.GroundCheckOffset
	}
	c.cfg = cfg
}

func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) GroundCheckCenter() physics.Vec3 {
	return c.body.Position().Add(c.groundOffset)
}

// Reset returns to the spawn state, undoing any dash overrides on the body.
func (c *Controller) Reset() {
	if c.state.Dashing {
		c.body.SetUseGravity(c.savedGravity)
		c.body.SetDrag(c.savedDrag)
	}
	c.state = newState()
}

// StepVariableRate runs once per rendered frame.
func (c *Controller) StepVariableRate(dt float64, in InputSample) {
	if dt < 0 {
		dt = 0
	}
	c.state.Time += dt

	c.checkGrounded()
	c.state.MoveDirection = c.moveDirection(in)
	c.handleJump(in)

	if in.DashPressed && c.cfg.EnableDash && c.state.DashReady && !c.state.Dashing {
		c.startDash()
	}

	c.shapeFall(dt)
	c.advanceDash()

	c.emit(Signal{
		Kind:     SignalAnimation,
		Speed:    c.body.Velocity().Flatten().Length(),
		Grounded: c.state.Grounded,
	})
}

// StepFixedRate runs once per physics step, before the body is integrated.
func (c *Controller) StepFixedRate(dt float64) {
	if c.state.Dashing {
		return
	}
	c.applyMovement(dt)
}

func (c *Controller) checkGrounded() {
	was := c.state.Grounded
	c.state.Grounded = c.env.CheckSphere(c.GroundCheckCenter(), c.cfg.GroundCheckRadius, c.groundMask)

	switch {
	case c.state.Grounded && !was:
		c.state.DoubleJumpUsed = false
		c.state.Jumping = false
		c.emit(Signal{Kind: SignalLanded, Grounded: true})
	case !c.state.Grounded && was:
		c.emit(Signal{Kind: SignalLeftGround})
	}

	if c.state.Grounded {
		c.state.LastGroundedTime = c.state.Time
	}
}

func (c *Controller) moveDirection(in InputSample) physics.Vec3 {
	if math.Hypot(in.Horizontal, in.Vertical) < c.cfg.InputDeadzone {
		return physics.Vec3{}
	}
	if c.camera == nil {
		return physics.Vec3{X: in.Horizontal, Z: in.Vertical}.Normalize()
	}

	right := c.camera.Right().Flatten().Normalize()
	forward := c.camera.Forward().Flatten().Normalize()
	if forward == (physics.Vec3{}) {
		// camera looking straight down: rebuild forward from right
		forward = physics.Vec3{X: -right.Z, Z: right.X}
	}
	return forward.Scale(in.Vertical).Add(right.Scale(in.Horizontal)).Normalize()
}

func (c *Controller) handleJump(in InputSample) {
	now := c.state.Time
	if in.JumpPressed {
		c.state.LastJumpRequestTime = now
	}

	if in.JumpReleased && c.state.Jumping {
		if v := c.body.Velocity(); v.Y > 0 {
			v.Y *= c.cfg.JumpCutMultiplier
			c.body.SetVelocity(v)
		}
	}

	buffered := in.JumpPressed || now-c.state.LastJumpRequestTime < c.cfg.JumpBufferTime
	canJump := c.state.Grounded || now-c.state.LastGroundedTime < c.cfg.CoyoteTime

	switch {
	case buffered && canJump:
		c.jump(c.cfg.JumpForce)
		c.state.LastJumpRequestTime = math.Inf(-1)
		c.emit(Signal{Kind: SignalJump})
	case in.JumpPressed && !c.state.Grounded && !c.state.DoubleJumpUsed && c.cfg.EnableDoubleJump:
		c.jump(c.cfg.DoubleJumpForce)
		c.state.DoubleJumpUsed = true
		c.emit(Signal{Kind: SignalDoubleJump})
	}
}

// jump zeroes vertical velocity so every jump reaches the same height.
func (c *Controller) jump(force float64) {
	c.state.Jumping = true
	v := c.body.Velocity()
	v.Y = 0
	c.body.SetVelocity(v)
	c.body.AddImpulse(physics.Up.Scale(force))
}

func (c *Controller) shapeFall(dt float64) {
	v := c.body.Velocity()
	if v.Y >= 0 {
		return
	}
	v.Y += c.env.Gravity().Y * (c.cfg.FallMultiplier - 1) * dt
	if v.Y < -c.cfg.MaxFallSpeed {
		v.Y = -c.cfg.MaxFallSpeed
	}
	c.body.SetVelocity(v)
}

func (c *Controller) applyMovement(dt float64) {
	v := c.body.Velocity()
	dir := c.state.MoveDirection
	target := dir.Scale(c.cfg.MoveSpeed)

	accel := c.cfg.Acceleration
	if !c.state.Grounded {
		accel *= c.cfg.AirControl
	}
	if dir.Length() < c.cfg.InputDeadzone {
		accel = c.cfg.Deceleration
		target = physics.Vec3{}
	}

	horizontal := v.Flatten().Lerp(target, accel*dt)
	c.body.SetVelocity(physics.Vec3{X: horizontal.X, Y: v.Y, Z: horizontal.Z})
}

func (c *Controller) startDash() {
	c.state.DashReady = false
	c.state.Dashing = true
	c.state.DashPhase = DashActive
	c.state.DashPhaseStart = c.state.Time

	c.savedDrag = c.body.Drag()
	c.body.SetDrag(0)

	dir := c.state.MoveDirection
	if dir.Length() <= c.cfg.InputDeadzone {
		dir = c.body.Forward()
	}
	c.body.SetVelocity(dir.Scale(c.cfg.DashSpeed))

	c.savedGravity = c.body.UseGravity()
	c.body.SetUseGravity(false)

	c.emit(Signal{Kind: SignalDashStarted, Direction: dir})
}

func (c *Controller) advanceDash() {
	elapsed := c.state.Time - c.state.DashPhaseStart
	switch c.state.DashPhase {
	case DashActive:
		if elapsed >= c.cfg.DashDuration {
			c.endDash()
		}
	case DashCooldown:
		if elapsed >= c.cfg.DashCooldown-c.cfg.DashDuration {
			c.state.DashPhase = DashReady
			c.state.DashReady = true
			c.emit(Signal{Kind: SignalDashReady})
		}
	}
}

// endDash keeps dash momentum from turning into extra height unless the
// character is mid-jump.
func (c *Controller) endDash() {
	c.body.SetUseGravity(c.savedGravity)

	v := c.body.Velocity()
	v.X *= c.cfg.DashDamping
	v.Z *= c.cfg.DashDamping
	if v.Y > 0 && !c.state.Jumping {
		v.Y = 0
	}
	c.body.SetVelocity(v)

	c.body.SetDrag(c.savedDrag)
	c.state.Dashing = false
	c.state.DashPhase = DashCooldown
	c.state.DashPhaseStart = c.state.Time

	c.emit(Signal{Kind: SignalDashEnded})
}

func (c *Controller) emit(sig Signal) {
	if c.listener == nil {
		return
	}
	sig.Time = c.state.Time
	sig.Position = c.body.Position()
	c.listener(sig)
}
