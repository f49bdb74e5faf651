package viewer

import (
	"fmt"
	"image/color"
	"math"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"github.com/Versifine/platformer/internal/body"
	"github.com/Versifine/platformer/internal/event"
	"github.com/Versifine/platformer/internal/game"
	"github.com/Versifine/platformer/internal/physics"
	"github.com/Versifine/platformer/internal/world"
)

const (
	DefaultWidth  = 960
	DefaultHeight = 640
	DefaultScale  = 24.0 // pixels per world unit

	// mouseLookScale turns cursor pixels into look axis units.
	mouseLookScale = 0.1

	trailLength   = 12
	burstDuration = 0.3
	shadowSlant   = 4.0 // pixels per unit of height
	maxShadow     = 40.0
)

type Simulation interface {
	Advance(frameDt float64, input body.InputState, look game.Look)
	Snapshot() game.Snapshot
	Respawn()
}

// Viewer draws the level top-down, centred on the player: X grows to the
// right and Z grows up the screen. It implements ebiten.Game.
type Viewer struct {
	sim     Simulation
	surface []world.Column
	tops    map[[2]int]int
	width   int
	height  int
	scale   float64

	looking bool
	cursorX int
	cursorY int

	snap    game.Snapshot
	trail   []physics.Vec3
	burst   float64
	burstAt physics.Vec3

	quit atomic.Bool
}

func New(sim Simulation, level *world.Level) *Viewer {
	v := &Viewer{
		sim:    sim,
		width:  DefaultWidth,
		height: DefaultHeight,
		scale:  DefaultScale,
		tops:   make(map[[2]int]int),
	}
	if level != nil {
		v.surface = level.Surface()
		for _, col := range v.surface {
			v.tops[[2]int{col.X, col.Z}] = col.Top
		}
	}
	v.snap = sim.Snapshot()
	return v
}

func (v *Viewer) Run(title string) error {
	ebiten.SetWindowSize(v.width, v.height)
	ebiten.SetWindowTitle(title)
	if err := ebiten.RunGame(v); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}

// Stop ends the game loop on the next update.
func (v *Viewer) Stop() {
	v.quit.Store(true)
}

func (v *Viewer) Update() error {
	if v.quit.Load() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.sim.Respawn()
	}

	frameDt := 1.0 / float64(ebiten.TPS())
	v.sim.Advance(frameDt, readInput(), v.readLook())
	v.track(v.sim.Snapshot(), frameDt)
	return nil
}

// Subscribe starts a burst ring wherever a double jump fires. The session
// publishes from Advance, which only Update calls, so the handler shares the
// game goroutine with Draw.
func (v *Viewer) Subscribe(bus *event.Bus) {
	bus.Subscribe(event.EventDoubleJump, func(raw any) {
		evt, ok := raw.(*event.MovementEvent)
		if !ok {
			return
		}
		v.burst = burstDuration
		v.burstAt = evt.Position
	})
}

// track records the dash trail from consecutive snapshots and fades the
// double-jump burst.
func (v *Viewer) track(snap game.Snapshot, dt float64) {
	loco := snap.Player.Locomotion
	switch {
	case loco.Dashing:
		v.trail = append(v.trail, snap.Player.Position)
		if len(v.trail) > trailLength {
			v.trail = v.trail[len(v.trail)-trailLength:]
		}
	case len(v.trail) > 0:
		v.trail = v.trail[1:]
	}

	if v.burst > 0 {
		v.burst = math.Max(0, v.burst-dt)
	}
	v.snap = snap
}

// shadowOffset is how far the player's shadow is pushed down-right, growing
// with height above the highest block under the player.
func (v *Viewer) shadowOffset(ps body.State) (float32, bool) {
	x := int(math.Floor(ps.Position.X))
	z := int(math.Floor(ps.Position.Z))
	top, ok := v.tops[[2]int{x, z}]
	if !ok {
		return 0, false
	}
	h := ps.Bounds.Min.Y - float64(top+1)
	if h < 0 {
		h = 0
	}
	return float32(math.Min(maxShadow, h*shadowSlant)), true
}

func readInput() body.InputState {
	var in body.InputState
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyUp) {
		in.Vertical++
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyDown) {
		in.Vertical--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyRight) {
		in.Horizontal++
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyLeft) {
		in.Horizontal--
	}
	in.JumpPressed = inpututil.IsKeyJustPressed(ebiten.KeySpace)
	in.JumpReleased = inpututil.IsKeyJustReleased(ebiten.KeySpace)
	in.DashPressed = inpututil.IsKeyJustPressed(ebiten.KeyShiftLeft) || inpututil.IsKeyJustPressed(ebiten.KeyShiftRight)
	return in
}

// readLook turns right-mouse drags into camera look input.
func (v *Viewer) readLook() game.Look {
	x, y := ebiten.CursorPosition()
	held := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if !held {
		v.looking = false
		return game.Look{}
	}
	if !v.looking {
		v.looking = true
		v.cursorX, v.cursorY = x, y
		return game.Look{Held: true}
	}
	dx, dy := x-v.cursorX, y-v.cursorY
	v.cursorX, v.cursorY = x, y
	return game.Look{
		DX:   float64(dx) * mouseLookScale,
		DY:   float64(dy) * mouseLookScale,
		Held: true,
	}
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Midnightblue)

	snap := v.snap
	center := snap.Player.Position
	tile := float32(v.scale)

	for _, col := range v.surface {
		x, y := v.project(center, physics.Vec3{X: float64(col.X), Z: float64(col.Z + 1)})
		if x+tile < 0 || y+tile < 0 || x > float32(v.width) || y > float32(v.height) {
			continue
		}
		clr := shade(layerColor(col.Layer), float64(col.Top)-center.Y)
		vector.FillRect(screen, x, y, tile, tile, clr, false)
		vector.StrokeRect(screen, x, y, tile, tile, 1, colornames.Black, false)
	}

	for _, c := range snap.Coins {
		cx, cy := v.project(center, c.Position)
		r := float32(c.Radius * v.scale)
		// spin shows as a squashed outline
		squash := float32(math.Abs(math.Cos(c.Angle * math.Pi / 180)))
		vector.StrokeCircle(screen, cx, cy, r, 1+2*squash, colornames.Gold, true)
	}

	v.drawPlayer(screen, snap)
	v.drawHUD(screen, snap)
}

func (v *Viewer) drawPlayer(screen *ebiten.Image, snap game.Snapshot) {
	ps := snap.Player
	center := ps.Position
	tile := float32(v.scale)

	minX, minY := v.project(center, physics.Vec3{X: ps.Bounds.Min.X, Z: ps.Bounds.Max.Z})
	maxX, maxY := v.project(center, physics.Vec3{X: ps.Bounds.Max.X, Z: ps.Bounds.Min.Z})
	clr := color.Color(colornames.Crimson)
	if ps.Locomotion.Dashing {
		clr = colornames.Cyan
	} else if !ps.Locomotion.Grounded {
		clr = colornames.Orange
	}
	if off, ok := v.shadowOffset(ps); ok {
		vector.FillRect(screen, minX+off, minY+off, maxX-minX, maxY-minY, color.RGBA{A: 110}, false)
	}
	for i, p := range v.trail {
		tx, ty := v.project(center, p)
		alpha := uint8(40 + 160*(i+1)/len(v.trail))
		vector.FillRect(screen, tx-3, ty-3, 6, 6, color.RGBA{R: 0, G: alpha, B: alpha, A: alpha}, false)
	}
	if v.burst > 0 {
		bx, by := v.project(center, v.burstAt)
		grow := float32(1 - v.burst/burstDuration)
		vector.StrokeCircle(screen, bx, by, tile*(0.5+grow), 2, colornames.White, true)
	}
	vector.FillRect(screen, minX, minY, maxX-minX, maxY-minY, clr, false)

	px, py := v.project(center, center)
	fx, fy := v.project(center, center.Add(ps.Forward.Flatten().Normalize()))
	vector.StrokeLine(screen, px, py, fx, fy, 2, colornames.White, true)

	look := snap.Camera.Forward.Flatten().Normalize()
	lx, ly := v.project(center, center.Add(look.Scale(2)))
	vector.StrokeLine(screen, px, py, lx, ly, 1, colornames.Lightskyblue, true)
}

func (v *Viewer) drawHUD(screen *ebiten.Image, snap game.Snapshot) {
	ps := snap.Player
	ebitenutil.DebugPrintAt(screen, snap.ScoreText, 12, 10)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf(
		"%s  pos %.1f %.1f %.1f  speed %.1f  dash %s  respawns %d",
		snap.LevelName,
		ps.Position.X, ps.Position.Y, ps.Position.Z,
		ps.Velocity.Flatten().Length(),
		ps.Locomotion.DashPhase,
		snap.Respawns,
	), 12, 28)
	ebitenutil.DebugPrintAt(screen, "Move: WASD  Jump: Space  Dash: Shift  Look: right mouse  Respawn: R  Quit: Esc", 12, v.height-22)
	if snap.Complete {
		ebitenutil.DebugPrintAt(screen, "All coins collected!", v.width/2-60, v.height/2-60)
	}
}

func (v *Viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}

// project maps a world point to screen pixels relative to center.
func (v *Viewer) project(center, p physics.Vec3) (float32, float32) {
	x := float64(v.width)/2 + (p.X-center.X)*v.scale
	y := float64(v.height)/2 - (p.Z-center.Z)*v.scale
	return float32(x), float32(y)
}

func layerColor(l physics.Layer) color.RGBA {
	switch l {
	case physics.LayerGround:
		return colornames.Forestgreen
	case physics.LayerWall:
		return colornames.Slategray
	case physics.LayerHazard:
		return colornames.Orangered
	default:
		return colornames.Dimgray
	}
}

// shade darkens blocks below the player and brightens blocks above, one
// step per unit of height difference.
func shade(c color.RGBA, dy float64) color.RGBA {
	const step = 0.08
	f := 1 + dy*step
	f = math.Max(0.3, math.Min(1.6, f))
	scale := func(v uint8) uint8 {
		return uint8(math.Min(255, float64(v)*f))
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}
