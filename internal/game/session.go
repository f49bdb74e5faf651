package game

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Versifine/platformer/internal/body"
	"github.com/Versifine/platformer/internal/camera"
	"github.com/Versifine/platformer/internal/config"
	"github.com/Versifine/platformer/internal/event"
	"github.com/Versifine/platformer/internal/locomotion"
	"github.com/Versifine/platformer/internal/physics"
	"github.com/Versifine/platformer/internal/pickup"
	"github.com/Versifine/platformer/internal/score"
	"github.com/Versifine/platformer/internal/world"
)

// Look is one frame of camera input.
type Look struct {
	DX, DY float64
	Held   bool
}

type CameraState struct {
	Pan      float64
	Tilt     float64
	Position physics.Vec3
	LookAt   physics.Vec3
	Forward  physics.Vec3
}

type Snapshot struct {
	Frame     uint64
	Time      float64
	LevelName string
	Player    body.State
	Camera    CameraState
	Coins     []pickup.Coin
	Score     int
	Total     int
	ScoreText string
	Complete  bool
	Respawns  int

	// Alpha is how far the clock is into the next fixed step, for
	// interpolating rendered positions.
	Alpha float64
}

// Session runs one level: the player, camera, coins and score, stepped with
// a variable frame rate and a fixed physics rate. It is safe for concurrent
// use.
type Session struct {
	mu sync.Mutex

	clock     fixedClock
	killPlane float64

	level  *world.Level
	space  *physics.Space
	player *body.Body
	camera *camera.Rig
	coins  *pickup.Field
	score  *score.Keeper
	bus    *event.Bus

	frame    uint64
	time     float64
	respawns int
}

func NewSession(cfg *config.Config, level *world.Level, bus *event.Bus) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if level == nil {
		return nil, fmt.Errorf("level is nil")
	}
	if bus == nil {
		bus = event.NewBus()
	}

	s := &Session{
		clock:     fixedClock{step: cfg.Simulation.FixedTimestep, maxSteps: cfg.Simulation.MaxSubsteps},
		killPlane: cfg.Level.KillPlane,
		level:     level,
		space:     physics.NewSpace(level, cfg.Physics.Gravity),
		camera:    camera.NewRig(cfg.Camera),
		bus:       bus,
	}

	coins := make([]pickup.Coin, 0, len(level.Coins()))
	for _, c := range level.Coins() {
		coins = append(coins, pickup.Coin{Position: c.Position, Radius: c.Radius, Points: c.Points})
	}
	s.score = score.NewKeeper(0, bus)
	s.coins = pickup.NewField(coins, s.score, s.onCoinCollected)
	s.score.Reset(s.coins.TotalPoints())

	player, err := body.New(
		level.Spawn(),
		level.SpawnFacing(),
		s.space,
		body.Config{
			Physics: physics.BodyConfig{
				Mass:        cfg.Physics.Mass,
				Drag:        cfg.Physics.Drag,
				HalfExtents: cfg.Physics.HalfExtents,
				Mask:        cfg.Physics.SolidMask(),
			},
			Movement:   cfg.Movement,
			GroundMask: cfg.Physics.GroundMask(),
		},
		body.PositionObserverFunc(s.camera.Follow),
		locomotion.WithCamera(s.camera),
		locomotion.WithListener(s.onSignal),
	)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	s.player = player

	slog.Info("Level loaded",
		"name", level.Name(),
		"blocks", level.BlockCount(),
		"coins", len(coins),
		"spawn", level.Spawn(),
	)
	return s, nil
}

// Advance runs one rendered frame: camera look, the controller's per-frame
// step, as many fixed physics steps as the accumulated time allows, then
// coins and respawn checks.
func (s *Session) Advance(frameDt float64, input body.InputState, look Look) {
	if frameDt <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.camera.Look(look.DX, look.DY, look.Held)
	s.player.Frame(frameDt, input)

	steps, dropped := s.clock.advance(frameDt)
	for i := 0; i < steps; i++ {
		s.player.FixedStep(s.clock.step)
	}
	if dropped > 0 {
		slog.Debug("Simulation falling behind, dropping time", "dropped", dropped, "frame", s.frame)
	}

	s.coins.Update(frameDt)
	s.coins.Collect(s.player.Bounds())
	s.checkOutOfBounds()

	s.frame++
	s.time += frameDt
}

func (s *Session) checkOutOfBounds() {
	st := s.player.PhysicsState()
	switch {
	case st.Position.Y < s.killPlane:
		s.respawnLocked("fell")
	case physics.CollidesWithBlock(st.Bounds, s.level, physics.MaskOf(physics.LayerHazard)):
		s.respawnLocked("hazard")
	}
}

func (s *Session) Respawn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respawnLocked("manual")
}

func (s *Session) respawnLocked(reason string) {
	spawn := s.level.Spawn()
	s.player.Respawn(spawn)
	s.respawns++
	slog.Info("Player respawned", "reason", reason, "spawn", spawn, "count", s.respawns)
	s.bus.Publish(event.EventRespawned, &event.MovementEvent{Time: s.time, Position: spawn, Grounded: true})
}

// Teleport moves the player without resetting its state.
func (s *Session) Teleport(pos physics.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.SetLocalPosition(pos)
}

// ApplyConfig swaps the tunable parts of a reloaded config between frames.
// Level, physics and simulation settings need a new session. An invalid
// movement section leaves both movement and camera untouched.
func (s *Session) ApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := s.ApplyMovementConfig(cfg.Movement); err != nil {
		return err
	}
	s.mu.Lock()
	s.camera.SetConfig(cfg.Camera)
	s.mu.Unlock()
	slog.Info("Movement config applied", "move_speed", cfg.Movement.MoveSpeed, "jump_force", cfg.Movement.JumpForce)
	return nil
}

func (s *Session) ApplyMovementConfig(cfg locomotion.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.SetMovementConfig(cfg)
	return nil
}

func (s *Session) MovementConfig() locomotion.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.MovementConfig()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Frame:     s.frame,
		Time:      s.time,
		Alpha:     s.clock.alpha(),
		LevelName: s.level.Name(),
		Player:    s.player.PhysicsState(),
		Camera: CameraState{
			Pan:      s.camera.Pan(),
			Tilt:     s.camera.Tilt(),
			Position: s.camera.Position(),
			LookAt:   s.camera.LookAt(),
			Forward:  s.camera.Forward(),
		},
		Coins:     s.coins.Remaining(),
		Score:     s.score.Score(),
		Total:     s.score.Total(),
		ScoreText: s.score.Display(),
		Complete:  s.score.Complete(),
		Respawns:  s.respawns,
	}
}

func (s *Session) onCoinCollected(c pickup.Coin) {
	slog.Debug("Coin collected", "id", c.ID, "points", c.Points)
	s.bus.Publish(event.EventCoinCollected, &event.CoinEvent{ID: c.ID, Position: c.Position, Points: c.Points})
}

func (s *Session) onSignal(sig locomotion.Signal) {
	name, ok := signalEvents[sig.Kind]
	if !ok {
		return
	}
	if sig.Kind != locomotion.SignalAnimation {
		slog.Debug("Locomotion signal", "kind", sig.Kind, "t", sig.Time)
	}
	s.bus.Publish(name, &event.MovementEvent{
		Time:      sig.Time,
		Position:  sig.Position,
		Direction: sig.Direction,
		Speed:     sig.Speed,
		Grounded:  sig.Grounded,
	})
}

var signalEvents = map[locomotion.SignalKind]string{
	locomotion.SignalJump:        event.EventJump,
	locomotion.SignalDoubleJump:  event.EventDoubleJump,
	locomotion.SignalDashStarted: event.EventDashStarted,
	locomotion.SignalDashEnded:   event.EventDashEnded,
	locomotion.SignalDashReady:   event.EventDashReady,
	locomotion.SignalLanded:      event.EventLanded,
	locomotion.SignalLeftGround:  event.EventLeftGround,
	locomotion.SignalAnimation:   event.EventAnimation,
}
