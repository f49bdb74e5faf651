package locomotion

import (
	"math"

	"github.com/Versifine/platformer/internal/physics"
)

// InputSample is read once per frame and not modified afterwards.
type InputSample struct {
	Horizontal   float64
	Vertical     float64
	JumpPressed  bool
	JumpReleased bool
	DashPressed  bool
}

type DashPhase int

const (
	DashReady DashPhase = iota
	DashActive
	DashCooldown
)

func (p DashPhase) String() string {
	switch p {
	case DashReady:
		return "ready"
	case DashActive:
		return "dashing"
	case DashCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// State is the per-character locomotion state. Times are on the
// controller clock, in seconds since spawn.
type State struct {
	Grounded       bool
	Jumping        bool
	DoubleJumpUsed bool
	Dashing        bool
	DashReady      bool

	LastJumpRequestTime float64
	LastGroundedTime    float64

	DashPhase      DashPhase
	DashPhaseStart float64

	Time          float64
	MoveDirection physics.Vec3
}

func newState() State {
	return State{
		Grounded:            true,
		DashReady:           true,
		DashPhase:           DashReady,
		LastJumpRequestTime: math.Inf(-1),
		LastGroundedTime:    0,
	}
}

func (s State) DashElapsed() float64 {
	if s.DashPhase == DashReady {
		return 0
	}
	return s.Time - s.DashPhaseStart
}
