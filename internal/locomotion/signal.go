package locomotion

import "github.com/Versifine/platformer/internal/physics"

type SignalKind int

const (
	SignalJump SignalKind = iota + 1
	SignalDoubleJump
	SignalDashStarted
	SignalDashEnded
	SignalDashReady
	SignalLanded
	SignalLeftGround
	// SignalAnimation is sent every frame with the blend parameters.
	SignalAnimation
)

func (k SignalKind) String() string {
	switch k {
	case SignalJump:
		return "jump"
	case SignalDoubleJump:
		return "double_jump"
	case SignalDashStarted:
		return "dash_started"
	case SignalDashEnded:
		return "dash_ended"
	case SignalDashReady:
		return "dash_ready"
	case SignalLanded:
		return "landed"
	case SignalLeftGround:
		return "left_ground"
	case SignalAnimation:
		return "animation"
	default:
		return "unknown"
	}
}

// Signal is a fire-and-forget notification for animation and effects
// collaborators.
type Signal struct {
	Kind      SignalKind
	Time      float64
	Position  physics.Vec3
	Direction physics.Vec3
	Speed     float64
	Grounded  bool
}

type Listener func(Signal)
