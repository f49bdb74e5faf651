package event

import "github.com/Versifine/platformer/internal/physics"

const (
	EventJump        = "player.jump"
	EventDoubleJump  = "player.double_jump"
	EventDashStarted = "player.dash_started"
	EventDashEnded   = "player.dash_ended"
	EventDashReady   = "player.dash_ready"
	EventLanded      = "player.landed"
	EventLeftGround  = "player.left_ground"
	EventAnimation   = "player.animation"
	EventRespawned   = "player.respawned"

	EventCoinCollected = "coin.collected"
	EventScoreChanged  = "score.changed"
	EventLevelComplete = "level.complete"
)

// MovementEvent carries a locomotion signal to effect and animation sinks.
type MovementEvent struct {
	Time      float64
	Position  physics.Vec3
	Direction physics.Vec3
	Speed     float64
	Grounded  bool
}

type CoinEvent struct {
	ID       int
	Position physics.Vec3
	Points   int
}

type ScoreEvent struct {
	Score   int
	Total   int
	Display string
}
