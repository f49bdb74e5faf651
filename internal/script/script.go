package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Versifine/platformer/internal/body"
	"github.com/Versifine/platformer/internal/game"
)

var ErrEmpty = errors.New("script has no segments")

const (
	JumpNone    = ""
	JumpPress   = "press"
	JumpRelease = "release"
	// JumpTap presses on the first frame of a segment and releases on its
	// last frame.
	JumpTap = "tap"
)

// Segment holds one input for Duration seconds.
type Segment struct {
	Label      string  `yaml:"label"`
	Duration   float64 `yaml:"duration"`
	Horizontal float64 `yaml:"horizontal"`
	Vertical   float64 `yaml:"vertical"`
	Jump       string  `yaml:"jump"`
	Dash       bool    `yaml:"dash"`
	LookDX     float64 `yaml:"look_dx"`
	LookDY     float64 `yaml:"look_dy"`
}

type Script struct {
	Name string `yaml:"name"`
	// FrameRate overrides the configured frame rate when > 0.
	FrameRate float64   `yaml:"frame_rate"`
	Segments  []Segment `yaml:"segments"`
}

func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return s, nil
}

func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) Validate() error {
	if len(s.Segments) == 0 {
		return ErrEmpty
	}
	if s.FrameRate < 0 {
		return fmt.Errorf("frame_rate must be >= 0, got %g", s.FrameRate)
	}
	for i, seg := range s.Segments {
		if seg.Duration < 0 {
			return fmt.Errorf("segment %d: negative duration %g", i, seg.Duration)
		}
		switch seg.Jump {
		case JumpNone, JumpPress, JumpRelease, JumpTap:
		default:
			return fmt.Errorf("segment %d: unknown jump action %q", i, seg.Jump)
		}
	}
	return nil
}

// Duration is the scripted time at the given frame rate.
func (s *Script) Duration(frameRate float64) float64 {
	n := 0
	for _, seg := range s.Segments {
		n += segmentFrames(seg, frameRate)
	}
	return float64(n) / frameRate
}

type Frame struct {
	Input   body.InputState
	Look    game.Look
	Segment int
}

// Player expands a script into per-frame input.
type Player struct {
	script    *Script
	frameRate float64
	seg       int
	frame     int
}

func NewPlayer(s *Script, frameRate float64) *Player {
	if s.FrameRate > 0 {
		frameRate = s.FrameRate
	}
	return &Player{script: s, frameRate: frameRate}
}

func (p *Player) FrameDt() float64 {
	return 1 / p.frameRate
}

func (p *Player) Next() (Frame, bool) {
	if p.seg >= len(p.script.Segments) {
		return Frame{}, false
	}
	seg := p.script.Segments[p.seg]
	n := segmentFrames(seg, p.frameRate)
	first := p.frame == 0
	last := p.frame == n-1

	f := Frame{
		Segment: p.seg,
		Input: body.InputState{
			Horizontal:  seg.Horizontal,
			Vertical:    seg.Vertical,
			DashPressed: seg.Dash && first,
		},
		Look: game.Look{
			DX:   seg.LookDX,
			DY:   seg.LookDY,
			Held: seg.LookDX != 0 || seg.LookDY != 0,
		},
	}
	switch seg.Jump {
	case JumpPress:
		f.Input.JumpPressed = first
	case JumpRelease:
		f.Input.JumpReleased = first
	case JumpTap:
		f.Input.JumpPressed = first
		f.Input.JumpReleased = last
	}

	p.frame++
	if p.frame >= n {
		p.seg++
		p.frame = 0
	}
	return f, true
}

func segmentFrames(seg Segment, frameRate float64) int {
	return max(1, int(math.Round(seg.Duration*frameRate)))
}

// Run plays the whole script into the session and returns the final
// snapshot. onSegment, when set, is called as each segment starts.
func Run(ctx context.Context, session *game.Session, s *Script, frameRate float64, onSegment func(i int, seg Segment)) (game.Snapshot, error) {
	if frameRate <= 0 {
		return game.Snapshot{}, fmt.Errorf("frame rate must be > 0, got %g", frameRate)
	}
	p := NewPlayer(s, frameRate)
	dt := p.FrameDt()
	current := -1
	for {
		if err := ctx.Err(); err != nil {
			return session.Snapshot(), err
		}
		f, ok := p.Next()
		if !ok {
			break
		}
		if f.Segment != current {
			current = f.Segment
			if onSegment != nil {
				onSegment(current, s.Segments[current])
			}
		}
		session.Advance(dt, f.Input, f.Look)
	}
	return session.Snapshot(), nil
}
