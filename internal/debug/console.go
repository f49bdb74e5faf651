package debug

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/Versifine/platformer/internal/body"
	"github.com/Versifine/platformer/internal/game"
	"github.com/Versifine/platformer/internal/locomotion"
	"github.com/Versifine/platformer/internal/physics"
)

const (
	defaultTickInterval = time.Second / 60
	defaultMovePulse    = 180 * time.Millisecond
	panStep             = 5.0
	tiltStep            = 5.0
)

type Simulation interface {
	Advance(frameDt float64, input body.InputState, look game.Look)
	Snapshot() game.Snapshot
	Teleport(pos physics.Vec3)
	Respawn()
	MovementConfig() locomotion.Config
}

// Console drives a session from a raw-mode terminal. Keys are pulses: a
// movement key holds its axis for movePulse, Space presses jump and releases
// it after the same pulse.
type Console struct {
	sim          Simulation
	out          io.Writer
	tickInterval time.Duration
	movePulse    time.Duration

	mu            sync.Mutex
	forwardUntil  time.Time
	backwardUntil time.Time
	leftUntil     time.Time
	rightUntil    time.Time
	jumpPending   bool
	jumpHeld      bool
	jumpUntil     time.Time
	dashPending   bool
	lookDX        float64
	lookDY        float64
	commandMode   bool
	commandBuf    []rune
	statusWidth   int
}

func NewConsole(sim Simulation) *Console {
	return &Console{
		sim:          sim,
		out:          os.Stdout,
		tickInterval: defaultTickInterval,
		movePulse:    defaultMovePulse,
	}
}

func (c *Console) Start(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if c.sim == nil {
		return fmt.Errorf("console simulation is nil")
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		c.printf("\r\n")
	}()

	c.printf("[debug] console started (W/A/S/D pulse, Space jump, F dash, arrows look, X, :)\r\n")
	c.renderStatusLine()

	go c.tickLoop(ctx)

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		b, err := reader.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		}
		if b == 3 { // Ctrl+C is not delivered as a signal in raw mode
			return nil
		}
		c.handleKey(reader, b)
	}
}

func (c *Console) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			input, look := c.takeInput(now)
			c.sim.Advance(now.Sub(last).Seconds(), input, look)
			last = now
			c.renderStatusLine()
		}
	}
}

func (c *Console) handleKey(reader *bufio.Reader, b byte) {
	if c.isCommandMode() {
		c.handleCommandByte(b)
		return
	}

	switch b {
	case ':':
		c.enterCommandMode()
		return
	case 'w', 'W':
		c.pulse(&c.forwardUntil, &c.backwardUntil)
	case 's', 'S':
		c.pulse(&c.backwardUntil, &c.forwardUntil)
	case 'a', 'A':
		c.pulse(&c.leftUntil, &c.rightUntil)
	case 'd', 'D':
		c.pulse(&c.rightUntil, &c.leftUntil)
	case ' ':
		c.pressJump()
	case 'f', 'F':
		c.mu.Lock()
		c.dashPending = true
		c.mu.Unlock()
	case 'x', 'X':
		c.clearInput()
	case 27: // ESC + arrow sequence
		next, err := reader.ReadByte()
		if err != nil || next != '[' {
			return
		}
		arrow, err := reader.ReadByte()
		if err != nil {
			return
		}
		c.mu.Lock()
		switch arrow {
		case 'D': // left
			c.lookDX -= panStep
		case 'C': // right
			c.lookDX += panStep
		case 'A': // up
			c.lookDY -= tiltStep
		case 'B': // down
			c.lookDY += tiltStep
		}
		c.mu.Unlock()
	}
	c.renderStatusLine()
}

func (c *Console) pulse(on, opposite *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*on = time.Now().Add(c.movePulse)
	*opposite = time.Time{}
}

func (c *Console) pressJump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpPending = true
	c.jumpUntil = time.Now().Add(c.movePulse)
}

// takeInput builds the sample for one frame and consumes the one-shot
// edges (jump press, jump release, dash, look).
func (c *Console) takeInput(now time.Time) (body.InputState, game.Look) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := c.axesLocked(now)
	switch {
	case c.jumpPending:
		in.JumpPressed = true
		c.jumpPending = false
		c.jumpHeld = true
	case c.jumpHeld && !now.Before(c.jumpUntil):
		in.JumpReleased = true
		c.jumpHeld = false
	}

	in.DashPressed = c.dashPending
	c.dashPending = false

	look := game.Look{DX: c.lookDX, DY: c.lookDY, Held: c.lookDX != 0 || c.lookDY != 0}
	c.lookDX, c.lookDY = 0, 0
	return in, look
}

func (c *Console) enterCommandMode() {
	c.mu.Lock()
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	c.mu.Unlock()
	c.printf("\r\n:")
}

func (c *Console) handleCommandByte(b byte) {
	switch b {
	case 13, 10: // Enter
		c.mu.Lock()
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()

		c.printf("\r\n")
		if cmd != "" {
			c.executeCommand(cmd)
		}
		c.renderStatusLine()
		return
	case 27: // ESC cancel command mode
		c.mu.Lock()
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		c.mu.Unlock()
		c.printf("\r\n[debug] command cancelled\r\n")
		c.renderStatusLine()
		return
	case 8, 127: // Backspace
		c.mu.Lock()
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		buf := string(c.commandBuf)
		c.mu.Unlock()
		c.printf("\r:%s ", buf)
		c.printf("\r:%s", buf)
		return
	default:
		if b < 32 || b > 126 {
			return
		}
		c.mu.Lock()
		c.commandBuf = append(c.commandBuf, rune(b))
		buf := string(c.commandBuf)
		c.mu.Unlock()
		c.printf("\r:%s", buf)
	}
}

func (c *Console) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		snap := c.sim.Snapshot()
		ps := snap.Player
		loco := ps.Locomotion
		c.printf("[debug] pos=(%.3f,%.3f,%.3f) vel=(%.3f,%.3f,%.3f) ground=%t\r\n",
			ps.Position.X, ps.Position.Y, ps.Position.Z,
			ps.Velocity.X, ps.Velocity.Y, ps.Velocity.Z,
			loco.Grounded,
		)
		c.printf("[debug] jumping=%t double_jump_used=%t dash=%s(%.2fs) gravity=%t drag=%.2f t=%.3f\r\n",
			loco.Jumping, loco.DoubleJumpUsed, loco.DashPhase, loco.DashElapsed(), ps.UseGravity, ps.Drag, loco.Time,
		)
		c.printf("[debug] blocked x=%t y=%t z=%t\r\n",
			ps.Blocked[physics.AxisX], ps.Blocked[physics.AxisY], ps.Blocked[physics.AxisZ],
		)
	case "score":
		snap := c.sim.Snapshot()
		c.printf("[debug] %s of %d, %d coins left, complete=%t\r\n",
			snap.ScoreText, snap.Total, len(snap.Coins), snap.Complete)
	case "config":
		mc := c.sim.MovementConfig()
		c.printf("[debug] move=%.1f accel=%.1f decel=%.1f air=%.2f jump=%.1f double=%t/%.1f\r\n",
			mc.MoveSpeed, mc.Acceleration, mc.Deceleration, mc.AirControl, mc.JumpForce, mc.EnableDoubleJump, mc.DoubleJumpForce,
		)
		c.printf("[debug] dash=%t speed=%.1f duration=%.2f cooldown=%.2f coyote=%.2f buffer=%.2f\r\n",
			mc.EnableDash, mc.DashSpeed, mc.DashDuration, mc.DashCooldown, mc.CoyoteTime, mc.JumpBufferTime,
		)
	case "tp":
		if len(parts) != 4 {
			c.printf("[debug] usage: :tp <x> <y> <z>\r\n")
			return
		}
		x, err1 := strconv.ParseFloat(parts[1], 64)
		y, err2 := strconv.ParseFloat(parts[2], 64)
		z, err3 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			c.printf("[debug] invalid tp args\r\n")
			return
		}
		c.sim.Teleport(physics.Vec3{X: x, Y: y, Z: z})
		c.printf("[debug] tp set to (%.3f, %.3f, %.3f)\r\n", x, y, z)
	case "respawn":
		c.sim.Respawn()
		c.printf("[debug] respawned\r\n")
	default:
		c.printf("[debug] unknown command: %s\r\n", parts[0])
	}
}

func (c *Console) printHelp() {
	c.printf("[debug] keys:\r\n")
	c.printf("  W/S/A/D: pulse movement (~180ms)\r\n")
	c.printf("  Space: jump (released after the pulse)\r\n")
	c.printf("  F: dash\r\n")
	c.printf("  Arrow Left/Right: pan +/-5\r\n")
	c.printf("  Arrow Up/Down: tilt +/-5\r\n")
	c.printf("  X: clear all input\r\n")
	c.printf("  : enter command mode\r\n")
	c.printf("[debug] commands:\r\n")
	c.printf("  :tp <x> <y> <z>\r\n")
	c.printf("  :state\r\n")
	c.printf("  :score\r\n")
	c.printf("  :config\r\n")
	c.printf("  :respawn\r\n")
	c.printf("  :help\r\n")
}

func (c *Console) renderStatusLine() {
	c.mu.Lock()
	if c.commandMode {
		c.mu.Unlock()
		return
	}
	in := c.axesLocked(time.Now())
	held := c.jumpHeld || c.jumpPending
	width := c.statusWidth
	c.mu.Unlock()

	snap := c.sim.Snapshot()
	ps := snap.Player
	line := fmt.Sprintf(
		"[H:%+.0f V:%+.0f JMP:%s DASH:%s | PAN:%.1f TILT:%.1f | X:%.2f Y:%.2f Z:%.2f ground:%t | %s]",
		in.Horizontal,
		in.Vertical,
		boolLabel(held),
		ps.Locomotion.DashPhase,
		snap.Camera.Pan,
		snap.Camera.Tilt,
		ps.Position.X,
		ps.Position.Y,
		ps.Position.Z,
		ps.Locomotion.Grounded,
		snap.ScoreText,
	)

	padding := ""
	if width > len(line) {
		padding = strings.Repeat(" ", width-len(line))
	}
	c.printf("\r%s%s", line, padding)

	c.mu.Lock()
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
	c.mu.Unlock()
}

// axesLocked reports the held axes without consuming edges.
func (c *Console) axesLocked(now time.Time) body.InputState {
	var in body.InputState
	if now.Before(c.forwardUntil) {
		in.Vertical++
	}
	if now.Before(c.backwardUntil) {
		in.Vertical--
	}
	if now.Before(c.rightUntil) {
		in.Horizontal++
	}
	if now.Before(c.leftUntil) {
		in.Horizontal--
	}
	return in
}

func (c *Console) isCommandMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandMode
}

func (c *Console) clearInput() {
	c.mu.Lock()
	held := c.jumpHeld
	c.forwardUntil = time.Time{}
	c.backwardUntil = time.Time{}
	c.leftUntil = time.Time{}
	c.rightUntil = time.Time{}
	c.jumpPending = false
	c.jumpUntil = time.Time{}
	c.dashPending = false
	c.lookDX, c.lookDY = 0, 0
	c.mu.Unlock()
	slog.Debug("debug input cleared", "jump_held", held)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func boolLabel(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
