package locomotion

import (
	"errors"
	"math"
	"testing"

	"github.com/Versifine/platformer/internal/physics"
)

const frameDt = 1.0 / 64

type fakeBody struct {
	pos     physics.Vec3
	vel     physics.Vec3
	forward physics.Vec3
	mass    float64
	drag    float64
	gravity bool
}

func newFakeBody() *fakeBody {
	return &fakeBody{forward: physics.Forward, mass: 1, drag: 0.5, gravity: true}
}

func (b *fakeBody) Position() physics.Vec3 { return b.pos }
func (b *fakeBody) Velocity() physics.Vec3 { return b.vel }
func (b *fakeBody) SetVelocity(v physics.Vec3) { b.vel = v }
func (b *fakeBody) Drag() float64 { return b.drag }
func (b *fakeBody) SetDrag(d float64) { b.drag = d }
func (b *fakeBody) UseGravity() bool { return b.gravity }
func (b *fakeBody) SetUseGravity(use bool) { b.gravity = use }
func (b *fakeBody) Forward() physics.Vec3 { return b.forward }
func (b *fakeBody) AddImpulse(j physics.Vec3) { b.vel = b.vel.Add(j.Scale(1 / b.mass)) }

type fakeEnv struct {
	grounded   bool
	gravity    physics.Vec3
	lastCenter physics.Vec3
	lastRadius float64
	lastMask   physics.LayerMask
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{grounded: true, gravity: physics.Vec3{Y: physics.DefaultGravity}}
}

func (e *fakeEnv) CheckSphere(center physics.Vec3, radius float64, mask physics.LayerMask) bool {
	e.lastCenter = center
	e.lastRadius = radius
	e.lastMask = mask
	return e.grounded
}

func (e *fakeEnv) Gravity() physics.Vec3 { return e.gravity }

type fakeCamera struct {
	forward physics.Vec3
	right   physics.Vec3
}

func (c fakeCamera) Forward() physics.Vec3 { return c.forward }
func (c fakeCamera) Right() physics.Vec3 { return c.right }

type signalRecorder struct {
	signals []Signal
}

func (r *signalRecorder) listen(s Signal) {
	if s.Kind == SignalAnimation {
		return
	}
	r.signals = append(r.signals, s)
}

func (r *signalRecorder) count(kind SignalKind) int {
	n := 0
	for _, s := range r.signals {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	offset := DefaultGroundCheckOffset
	cfg.GroundCheckOffset = &offset
	cfg.DashDuration = 0.125
	cfg.DashCooldown = 0.5
	return cfg
}

func newTestController(t *testing.T, cfg Config, body *fakeBody, env *fakeEnv, opts ...Option) *Controller {
	t.Helper()
	c, err := NewController(cfg, body, env, opts...)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

func approxEqual(t *testing.T, got, want, tol float64, field string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.8f, want %.8f (tol=%.8f)", field, got, want, tol)
	}
}

func frame(c *Controller, in InputSample) {
	c.StepVariableRate(frameDt, in)
	c.StepFixedRate(frameDt)
}

func TestNewController_RejectsNilCollaborators(t *testing.T) {
	if _, err := NewController(testConfig(), nil, newFakeEnv()); err == nil {
		t.Fatal("expected error for nil body")
	}
	if _, err := NewController(testConfig(), newFakeBody(), nil); err == nil {
		t.Fatal("expected error for nil environment")
	}
}

func TestNewController_InitialState(t *testing.T) {
	c := newTestController(t, testConfig(), newFakeBody(), newFakeEnv())
	st := c.State()
	if !st.Grounded || !st.DashReady || st.Dashing || st.Jumping || st.DoubleJumpUsed {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if st.DashPhase != DashReady {
		t.Fatalf("DashPhase = %v, want ready", st.DashPhase)
	}
}

func TestGroundCheck_MissingAnchorIsSynthesized(t *testing.T) {
	cfg := testConfig()
	cfg.GroundCheckOffset = nil
	body := newFakeBody()
	body.pos = physics.Vec3{X: 2, Y: 3, Z: 4}
	env := newFakeEnv()
	c := newTestController(t, cfg, body, env)

	c.StepVariableRate(frameDt, InputSample{})

	want := physics.Vec3{X: 2, Y: 2.5, Z: 4}
	if env.lastCenter != want {
		t.Fatalf("ground check center = %+v, want %+v", env.lastCenter, want)
	}
	approxEqual(t, env.lastRadius, cfg.GroundCheckRadius, 1e-12, "ground check radius")
	if !env.lastMask.Has(physics.LayerGround) {
		t.Fatalf("default mask should include the ground layer")
	}
}

func TestHorizontal_DecelerationConvergesMonotonically(t *testing.T) {
	cfg := testConfig()
	body := newFakeBody()
	body.vel = physics.Vec3{X: 8, Y: 0, Z: -6}
	c := newTestController(t, cfg, body, newFakeEnv())

	prev := body.vel.Flatten().Length()
	for i := 0; i < 200; i++ {
		frame(c, InputSample{Horizontal: 0.05})
		speed := body.vel.Flatten().Length()
		if speed > prev {
			t.Fatalf("step %d: speed increased %.6f -> %.6f", i, prev, speed)
		}
		if prev > 0 {
			approxEqual(t, speed/prev, 1-cfg.Deceleration*frameDt, 1e-9, "decay ratio")
		}
		prev = speed
		if speed < 1e-9 {
			break
		}
	}
	if prev > 1e-6 {
		t.Fatalf("speed = %.8f, want converged to zero", prev)
	}
}

func TestHorizontal_AccelerationUsesAirControl(t *testing.T) {
	cfg := testConfig()
	cfg.Acceleration = 16
	cfg.AirControl = 0.5

	tests := []struct {
		name     string
		grounded bool
		wantX    float64
	}{
		{"grounded", true, cfg.MoveSpeed * 16 * frameDt},
		{"airborne", false, cfg.MoveSpeed * 8 * frameDt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := newFakeBody()
			env := newFakeEnv()
			env.grounded = tt.grounded
			c := newTestController(t, cfg, body, env)
			body.vel.Y = 1.5

			c.StepVariableRate(frameDt, InputSample{Horizontal: 1})
			c.StepFixedRate(frameDt)

			approxEqual(t, body.vel.X, tt.wantX, 1e-9, "velocity.x")
			approxEqual(t, body.vel.Y, 1.5, 1e-12, "velocity.y untouched")
		})
	}
}

func TestJump_ZeroesPriorVerticalVelocity(t *testing.T) {
	for _, vy := range []float64{-12, 0, 7} {
		body := newFakeBody()
		body.mass = 2
		body.vel = physics.Vec3{X: 1, Y: vy}
		c := newTestController(t, testConfig(), body, newFakeEnv())

		c.StepVariableRate(frameDt, InputSample{JumpPressed: true})

		approxEqual(t, body.vel.Y, testConfig().JumpForce/2, 1e-9, "velocity.y")
		approxEqual(t, body.vel.X, 1, 1e-12, "velocity.x")
	}
}

func TestJump_GroundedScenario(t *testing.T) {
	rec := &signalRecorder{}
	body := newFakeBody()
	c := newTestController(t, testConfig(), body, newFakeEnv(), WithListener(rec.listen))

	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})

	st := c.State()
	approxEqual(t, body.vel.Y, testConfig().JumpForce, 1e-9, "velocity.y")
	if !st.Jumping {
		t.Fatal("Jumping = false, want true")
	}
	if st.DoubleJumpUsed {
		t.Fatal("DoubleJumpUsed = true, double jump should still be available")
	}
	if rec.count(SignalJump) != 1 {
		t.Fatalf("jump signals = %d, want 1", rec.count(SignalJump))
	}
}

func TestDoubleJump_OncePerAirbornePeriod(t *testing.T) {
	cfg := testConfig()
	rec := &signalRecorder{}
	body := newFakeBody()
	env := newFakeEnv()
	c := newTestController(t, cfg, body, env, WithListener(rec.listen))

	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})
	env.grounded = false
	for i := 0; i < 8; i++ {
		c.StepVariableRate(frameDt, InputSample{})
	}

	body.vel.Y = -2
	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})
	approxEqual(t, body.vel.Y, cfg.DoubleJumpForce, 1e-9, "velocity.y after double jump")
	if !c.State().DoubleJumpUsed {
		t.Fatal("DoubleJumpUsed = false after double jump")
	}

	body.vel.Y = -3
	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})
	if body.vel.Y > 0 {
		t.Fatalf("third jump in the air applied an impulse: vy=%.3f", body.vel.Y)
	}
	if rec.count(SignalDoubleJump) != 1 {
		t.Fatalf("double jump signals = %d, want 1", rec.count(SignalDoubleJump))
	}

	env.grounded = true
	body.vel.Y = 0
	c.StepVariableRate(frameDt, InputSample{})
	st := c.State()
	if st.DoubleJumpUsed || st.Jumping {
		t.Fatalf("landing should clear jump flags: %+v", st)
	}
	if rec.count(SignalLanded) != 1 {
		t.Fatalf("landed signals = %d, want 1", rec.count(SignalLanded))
	}
}

func TestDoubleJump_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDoubleJump = false
	body := newFakeBody()
	env := newFakeEnv()
	env.grounded = false
	c := newTestController(t, cfg, body, env)
	for i := 0; i < 8; i++ {
		c.StepVariableRate(frameDt, InputSample{})
	}

	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})

	approxEqual(t, body.vel.Y, 0, 1e-12, "velocity.y")
}

func TestJump_CoyoteTime(t *testing.T) {
	cfg := testConfig()
	body := newFakeBody()
	env := newFakeEnv()
	c := newTestController(t, cfg, body, env)
	c.StepVariableRate(frameDt, InputSample{})

	env.grounded = false
	c.StepVariableRate(frameDt, InputSample{})
	c.StepVariableRate(frameDt, InputSample{})
	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})

	approxEqual(t, body.vel.Y, cfg.JumpForce, 1e-9, "velocity.y")
	if c.State().DoubleJumpUsed {
		t.Fatal("a coyote jump must not consume the double jump")
	}
}

func TestJump_BufferedUntilLanding(t *testing.T) {
	tests := []struct {
		name       string
		waitFrames int
		wantJump   bool
	}{
		{"lands inside buffer", 1, true},
		{"lands after buffer expired", 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.EnableDoubleJump = false
			body := newFakeBody()
			env := newFakeEnv()
			env.grounded = false
			c := newTestController(t, cfg, body, env)
			for i := 0; i < 8; i++ {
				c.StepVariableRate(frameDt, InputSample{})
			}

			c.StepVariableRate(frameDt, InputSample{JumpPressed: true})
			for i := 1; i < tt.waitFrames; i++ {
				c.StepVariableRate(frameDt, InputSample{})
			}
			approxEqual(t, body.vel.Y, 0, 1e-12, "velocity.y before landing")

			env.grounded = true
			c.StepVariableRate(frameDt, InputSample{})

			jumped := body.vel.Y > 0
			if jumped != tt.wantJump {
				t.Fatalf("jumped = %t, want %t", jumped, tt.wantJump)
			}
		})
	}
}

func TestJump_ReleaseCutsAscent(t *testing.T) {
	cfg := testConfig()
	body := newFakeBody()
	env := newFakeEnv()
	c := newTestController(t, cfg, body, env)

	c.StepVariableRate(frameDt, InputSample{JumpPressed: true})
	env.grounded = false
	body.vel.Y = 10
	c.StepVariableRate(frameDt, InputSample{JumpReleased: true})
	approxEqual(t, body.vel.Y, 10*cfg.JumpCutMultiplier, 1e-9, "velocity.y after release")

	body.vel.Y = -4
	c.StepVariableRate(frameDt, InputSample{JumpReleased: true})
	if body.vel.Y > -4 {
		t.Fatalf("release while falling changed vy to %.4f", body.vel.Y)
	}
}

func TestJump_ReleaseWithoutJumpDoesNothing(t *testing.T) {
	body := newFakeBody()
	body.vel.Y = 6
	c := newTestController(t, testConfig(), body, newFakeEnv())

	c.StepVariableRate(frameDt, InputSample{JumpReleased: true})

	approxEqual(t, body.vel.Y, 6, 1e-12, "velocity.y")
}

func TestFallShaping(t *testing.T) {
	cfg := testConfig()
	cfg.FallMultiplier = 3
	cfg.MaxFallSpeed = 30

	tests := []struct {
		name string
		vy   float64
		want float64
	}{
		{"extra gravity while falling", -5, -5 + physics.DefaultGravity*2*frameDt},
		{"clamped at max fall speed", -29.9, -30},
		{"rising is untouched", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := newFakeBody()
			body.vel.Y = tt.vy
			env := newFakeEnv()
			env.grounded = false
			c := newTestController(t, cfg, body, env)

			c.StepVariableRate(frameDt, InputSample{})

			approxEqual(t, body.vel.Y, tt.want, 1e-9, "velocity.y")
		})
	}
}

func TestDash_ZeroInputUsesFacing(t *testing.T) {
	cfg := testConfig()
	rec := &signalRecorder{}
	body := newFakeBody()
	c := newTestController(t, cfg, body, newFakeEnv(), WithListener(rec.listen))

	frame(c, InputSample{DashPressed: true})

	want := physics.Vec3{Z: cfg.DashSpeed}
	if body.vel != want {
		t.Fatalf("velocity = %+v, want %+v", body.vel, want)
	}
	if body.gravity || body.drag != 0 {
		t.Fatalf("dash should suspend gravity and drag: gravity=%t drag=%.2f", body.gravity, body.drag)
	}

	for i := 2; i <= 8; i++ {
		frame(c, InputSample{Horizontal: 1})
		if !c.State().Dashing {
			t.Fatalf("frame %d: dash ended early", i)
		}
		if body.vel != want {
			t.Fatalf("frame %d: velocity = %+v, want %+v", i, body.vel, want)
		}
	}

	c.StepVariableRate(frameDt, InputSample{})
	st := c.State()
	if st.Dashing || st.DashPhase != DashCooldown {
		t.Fatalf("dash should have ended: %+v", st)
	}
	approxEqual(t, body.vel.Z, cfg.DashSpeed*cfg.DashDamping, 1e-9, "velocity.z after dash")
	approxEqual(t, body.vel.X, 0, 1e-12, "velocity.x after dash")
	if !body.gravity || body.drag != 0.5 {
		t.Fatalf("gravity/drag not restored: gravity=%t drag=%.2f", body.gravity, body.drag)
	}
	if rec.count(SignalDashStarted) != 1 || rec.count(SignalDashEnded) != 1 {
		t.Fatalf("dash signals start=%d end=%d", rec.count(SignalDashStarted), rec.count(SignalDashEnded))
	}
}

func TestDash_UsesMoveDirection(t *testing.T) {
	cfg := testConfig()
	body := newFakeBody()
	c := newTestController(t, cfg, body, newFakeEnv())

	c.StepVariableRate(frameDt, InputSample{Horizontal: -1, DashPressed: true})

	want := physics.Vec3{X: -cfg.DashSpeed}
	if !body.vel.NearlyEqual(want, 1e-9) {
		t.Fatalf("velocity = %+v, want %+v", body.vel, want)
	}
}

func TestDash_RetriggerOnlyAfterCooldown(t *testing.T) {
	cfg := testConfig()
	rec := &signalRecorder{}
	body := newFakeBody()
	c := newTestController(t, cfg, body, newFakeEnv(), WithListener(rec.listen))

	var starts []float64
	for i := 1; i <= 40; i++ {
		before := rec.count(SignalDashStarted)
		frame(c, InputSample{DashPressed: true})
		if rec.count(SignalDashStarted) > before {
			starts = append(starts, c.State().Time)
		}
	}

	if len(starts) != 2 {
		t.Fatalf("dash starts = %v, want 2", starts)
	}
	approxEqual(t, starts[0], frameDt, 1e-12, "first dash time")
	approxEqual(t, starts[1], 34*frameDt, 1e-12, "second dash time")
	if starts[1]-starts[0] < cfg.DashCooldown {
		t.Fatalf("re-triggered after %.4fs, cooldown is %.4fs", starts[1]-starts[0], cfg.DashCooldown)
	}
	if rec.count(SignalDashReady) != 1 {
		t.Fatalf("dash ready signals = %d, want 1", rec.count(SignalDashReady))
	}
}

func TestDash_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableDash = false
	body := newFakeBody()
	c := newTestController(t, cfg, body, newFakeEnv())

	c.StepVariableRate(frameDt, InputSample{DashPressed: true})

	if c.State().Dashing || body.vel != (physics.Vec3{}) {
		t.Fatalf("disabled dash triggered: %+v vel=%+v", c.State(), body.vel)
	}
}

func TestDash_EndZeroesUpwardVelocityUnlessJumping(t *testing.T) {
	tests := []struct {
		name    string
		jump    bool
		wantPos bool
	}{
		{"not jumping", false, false},
		{"mid jump", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			body := newFakeBody()
			env := newFakeEnv()
			c := newTestController(t, cfg, body, env)

			frame(c, InputSample{DashPressed: true})
			env.grounded = false
			if tt.jump {
				// coyote window still open: counts as a ground jump
				c.StepVariableRate(frameDt, InputSample{JumpPressed: true})
			} else {
				c.StepVariableRate(frameDt, InputSample{})
				body.vel.Y = 3
			}
			for c.State().Dashing {
				c.StepVariableRate(frameDt, InputSample{})
			}

			if (body.vel.Y > 0) != tt.wantPos {
				t.Fatalf("velocity.y = %.4f after dash, want positive=%t", body.vel.Y, tt.wantPos)
			}
		})
	}
}

func TestMoveDirection_CameraRelative(t *testing.T) {
	tests := []struct {
		name   string
		camera CameraBasis
		in     InputSample
		want   physics.Vec3
	}{
		{
			name: "no camera uses world axes",
			in:   InputSample{Horizontal: 1, Vertical: 1},
			want: physics.Vec3{X: math.Sqrt2 / 2, Z: math.Sqrt2 / 2},
		},
		{
			name:   "camera yawed 90 degrees",
			camera: fakeCamera{forward: physics.Vec3{X: 1}, right: physics.Vec3{Z: -1}},
			in:     InputSample{Vertical: 1},
			want:   physics.Vec3{X: 1},
		},
		{
			name:   "pitched camera is flattened",
			camera: fakeCamera{forward: physics.Vec3{X: 0.6, Y: -0.8}, right: physics.Vec3{Z: -1}},
			in:     InputSample{Vertical: 1},
			want:   physics.Vec3{X: 1},
		},
		{
			name:   "camera looking straight down",
			camera: fakeCamera{forward: physics.Vec3{Y: -1}, right: physics.Vec3{X: 1}},
			in:     InputSample{Vertical: 1},
			want:   physics.Vec3{Z: 1},
		},
		{
			name: "below deadzone",
			in:   InputSample{Horizontal: 0.05, Vertical: 0.05},
			want: physics.Vec3{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.camera != nil {
				opts = append(opts, WithCamera(tt.camera))
			}
			c := newTestController(t, testConfig(), newFakeBody(), newFakeEnv(), opts...)
			c.StepVariableRate(frameDt, tt.in)
			if got := c.State().MoveDirection; !got.NearlyEqual(tt.want, 1e-9) {
				t.Fatalf("MoveDirection = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReset_RestoresBodyAfterDash(t *testing.T) {
	body := newFakeBody()
	c := newTestController(t, testConfig(), body, newFakeEnv())
	frame(c, InputSample{DashPressed: true})

	c.Reset()

	if !body.gravity || body.drag != 0.5 {
		t.Fatalf("reset did not restore body: gravity=%t drag=%.2f", body.gravity, body.drag)
	}
	if st := c.State(); st.Dashing || !st.DashReady {
		t.Fatalf("reset state = %+v", st)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative speed", func(c *Config) { c.MoveSpeed = -1 }, true},
		{"air control above one", func(c *Config) { c.AirControl = 1.5 }, true},
		{"fall multiplier below one", func(c *Config) { c.FallMultiplier = 0.5 }, true},
		{"cooldown shorter than dash", func(c *Config) { c.DashCooldown = 0.1 }, true},
		{"damping out of range", func(c *Config) { c.DashDamping = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("error %v should wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestDashElapsed_TracksCurrentPhase(t *testing.T) {
	c := newTestController(t, testConfig(), newFakeBody(), newFakeEnv())
	if got := c.State().DashElapsed(); got != 0 {
		t.Fatalf("ready dash elapsed = %v, want 0", got)
	}

	frame(c, InputSample{DashPressed: true})
	for i := 0; i < 3; i++ {
		frame(c, InputSample{})
	}
	approxEqual(t, c.State().DashElapsed(), 3*frameDt, 1e-12, "elapsed while dashing")

	// cooldown restarts the timer when the dash ends
	for c.State().Dashing {
		frame(c, InputSample{})
	}
	approxEqual(t, c.State().DashElapsed(), 0, 1e-12, "elapsed at cooldown start")
}
