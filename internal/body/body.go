package body

import (
	"fmt"
	"sync"

	"github.com/Versifine/platformer/internal/locomotion"
	"github.com/Versifine/platformer/internal/physics"
)

type InputState = locomotion.InputSample

type PositionObserver interface {
	UpdatePosition(pos physics.Vec3)
}

type PositionObserverFunc func(pos physics.Vec3)

func (f PositionObserverFunc) UpdatePosition(pos physics.Vec3) { f(pos) }

type Config struct {
	Physics    physics.BodyConfig
	Movement   locomotion.Config
	GroundMask physics.LayerMask
}

// State is a point-in-time copy of the character.
type State struct {
	Position   physics.Vec3
	Velocity   physics.Vec3
	Forward    physics.Vec3
	Bounds     physics.AABB
	UseGravity bool
	Drag       float64
	// Blocked reports the axes stopped by a block on the last fixed step.
	Blocked    physics.Blocked
	Locomotion locomotion.State
}

// Body is the player character: a rigid body in a physics space driven by a
// locomotion controller.
type Body struct {
	mu       sync.Mutex
	rigid    *physics.RigidBody
	ctrl     *locomotion.Controller
	space    *physics.Space
	observer PositionObserver
}

func New(
	spawn physics.Vec3,
	facing physics.Vec3,
	space *physics.Space,
	cfg Config,
	observer PositionObserver,
	opts ...locomotion.Option,
) (*Body, error) {
	if space == nil {
		return nil, fmt.Errorf("space is nil")
	}

	rigid := physics.NewRigidBody(spawn, cfg.Physics)
	if facing != (physics.Vec3{}) {
		rigid.SetForward(facing)
	}
	if cfg.GroundMask != 0 {
		opts = append(opts, locomotion.WithGroundMask(cfg.GroundMask))
	}
	ctrl, err := locomotion.NewController(cfg.Movement, rigid, space, opts...)
	if err != nil {
		return nil, fmt.Errorf("create controller: %w", err)
	}
	space.Attach(rigid)

	b := &Body{
		rigid:    rigid,
		ctrl:     ctrl,
		space:    space,
		observer: observer,
	}
	b.notify(spawn)
	return b, nil
}

// Frame runs the per-frame half of the controller.
func (b *Body) Frame(dt float64, input InputState) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.ctrl.StepVariableRate(dt, input)
	b.mu.Unlock()
}

// FixedStep applies horizontal movement and then advances the physics
// space by dt.
func (b *Body) FixedStep(dt float64) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.ctrl.StepFixedRate(dt)
	b.space.Step(dt)
	pos := b.rigid.Position()
	b.mu.Unlock()

	b.notify(pos)
}

func (b *Body) PhysicsState() State {
	if b == nil {
		return State{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Position:   b.rigid.Position(),
		Velocity:   b.rigid.Velocity(),
		Forward:    b.rigid.Forward(),
		Bounds:     b.rigid.Bounds(),
		UseGravity: b.rigid.UseGravity(),
		Drag:       b.rigid.Drag(),
		Blocked:    b.rigid.LastBlocked(),
		Locomotion: b.ctrl.State(),
	}
}

func (b *Body) Bounds() physics.AABB {
	if b == nil {
		return physics.AABB{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rigid.Bounds()
}

// SetLocalPosition teleports the body without touching its velocity.
func (b *Body) SetLocalPosition(pos physics.Vec3) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.rigid.SetPosition(pos)
	b.mu.Unlock()
	b.notify(pos)
}

// Respawn teleports the body, stops it and resets the controller state.
func (b *Body) Respawn(pos physics.Vec3) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.ctrl.Reset()
	b.rigid.SetPosition(pos)
	b.rigid.SetVelocity(physics.Vec3{})
	b.mu.Unlock()
	b.notify(pos)
}

func (b *Body) SetMovementConfig(cfg locomotion.Config) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctrl.SetConfig(cfg)
}

func (b *Body) MovementConfig() locomotion.Config {
	if b == nil {
		return locomotion.Config{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl.Config()
}

func (b *Body) notify(pos physics.Vec3) {
	if b.observer != nil {
		b.observer.UpdatePosition(pos)
	}
}
