package locomotion

import (
	"errors"
	"fmt"

	"github.com/Versifine/platformer/internal/physics"
)

var ErrInvalidConfig = errors.New("invalid movement config")

// Config holds the movement tuning. It is read-only once handed to a
// Controller; reloading swaps in a new value.
type Config struct {
	MoveSpeed    float64 `yaml:"move_speed"`
	Acceleration float64 `yaml:"acceleration"`
	Deceleration float64 `yaml:"deceleration"`
	AirControl   float64 `yaml:"air_control"`

	JumpForce         float64 `yaml:"jump_force"`
	JumpCutMultiplier float64 `yaml:"jump_cut_multiplier"`
	FallMultiplier    float64 `yaml:"fall_multiplier"`
	MaxFallSpeed      float64 `yaml:"max_fall_speed"`
	JumpBufferTime    float64 `yaml:"jump_buffer_time"`
	CoyoteTime        float64 `yaml:"coyote_time"`

	GroundCheckRadius float64 `yaml:"ground_check_radius"`
	// GroundCheckOffset is the ground check anchor relative to the body center.
	// Nil means no anchor was configured.
	GroundCheckOffset *physics.Vec3 `yaml:"ground_check_offset"`

	EnableDoubleJump bool    `yaml:"enable_double_jump"`
	DoubleJumpForce  float64 `yaml:"double_jump_force"`

	EnableDash   bool    `yaml:"enable_dash"`
	DashSpeed    float64 `yaml:"dash_speed"`
	DashDuration float64 `yaml:"dash_duration"`
	DashCooldown float64 `yaml:"dash_cooldown"`
	DashDamping  float64 `yaml:"dash_damping"`

	InputDeadzone float64 `yaml:"input_deadzone"`
}

var DefaultGroundCheckOffset = physics.Vec3{Y: -0.5}

func DefaultConfig() Config {
	return Config{
		MoveSpeed:    10,
		Acceleration: 80,
		Deceleration: 20,
		AirControl:   0.7,

		JumpForce:         20,
		JumpCutMultiplier: 0.5,
		FallMultiplier:    3,
		MaxFallSpeed:      30,
		JumpBufferTime:    0.08,
		CoyoteTime:        0.1,

		GroundCheckRadius: 0.1,

		EnableDoubleJump: true,
		DoubleJumpForce:  18,

		EnableDash:   true,
		DashSpeed:    25,
		DashDuration: 0.15,
		DashCooldown: 1.2,
		DashDamping:  0.9,

		InputDeadzone: 0.1,
	}
}

func (c Config) Validate() error {
	var errs []error
	nonNegative := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %g", name, v))
		}
	}
	nonNegative("move_speed", c.MoveSpeed)
	nonNegative("acceleration", c.Acceleration)
	nonNegative("deceleration", c.Deceleration)
	nonNegative("jump_force", c.JumpForce)
	nonNegative("double_jump_force", c.DoubleJumpForce)
	nonNegative("max_fall_speed", c.MaxFallSpeed)
	nonNegative("jump_buffer_time", c.JumpBufferTime)
	nonNegative("coyote_time", c.CoyoteTime)
	nonNegative("ground_check_radius", c.GroundCheckRadius)
	nonNegative("dash_speed", c.DashSpeed)
	nonNegative("dash_duration", c.DashDuration)
	nonNegative("input_deadzone", c.InputDeadzone)

	if c.AirControl < 0 || c.AirControl > 1 {
		errs = append(errs, fmt.Errorf("air_control must be in [0,1], got %g", c.AirControl))
	}
	if c.JumpCutMultiplier < 0 || c.JumpCutMultiplier > 1 {
		errs = append(errs, fmt.Errorf("jump_cut_multiplier must be in [0,1], got %g", c.JumpCutMultiplier))
	}
	if c.FallMultiplier < 1 {
		errs = append(errs, fmt.Errorf("fall_multiplier must be >= 1, got %g", c.FallMultiplier))
	}
	if c.DashDamping < 0 || c.DashDamping > 1 {
		errs = append(errs, fmt.Errorf("dash_damping must be in [0,1], got %g", c.DashDamping))
	}
	if c.DashCooldown < c.DashDuration {
		errs = append(errs, fmt.Errorf("dash_cooldown (%g) must be >= dash_duration (%g)", c.DashCooldown, c.DashDuration))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
