package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/Versifine/platformer/internal/config"
	"github.com/Versifine/platformer/internal/event"
)

const (
	bufferDuration = 100 * time.Millisecond
	queueSize      = 16
)

// cueEvents maps bus events to the cue played for them.
var cueEvents = map[string]Cue{
	event.EventJump:          CueJump,
	event.EventDoubleJump:    CueDoubleJump,
	event.EventDashStarted:   CueDash,
	event.EventCoinCollected: CueCoin,
	event.EventLevelComplete: CueLevelComplete,
	event.EventRespawned:     CueRespawn,
}

// Player turns gameplay events into sound effects. Cues are queued and
// rendered on a worker goroutine so the caller never waits on the speaker.
// A disabled player, or one whose speaker could not be opened, accepts every
// call and plays nothing.
type Player struct {
	mu          sync.Mutex
	rate        beep.SampleRate
	volume      float64
	enabled     bool
	speakerOpen bool
	mixer       *beep.Mixer
	cues        chan Cue
	done        chan struct{}
	wg          sync.WaitGroup
}

func NewPlayer(cfg config.AudioConfig) *Player {
	return &Player{
		rate:    beep.SampleRate(cfg.SampleRate),
		volume:  cfg.Volume,
		enabled: cfg.Enabled,
		mixer:   &beep.Mixer{},
	}
}

// Init opens the speaker and starts the cue worker. On failure the player
// stays silent and the error is returned for logging only.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || p.cues != nil {
		return nil
	}
	if err := speaker.Init(p.rate, p.rate.N(bufferDuration)); err != nil {
		p.enabled = false
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.speakerOpen = true
	p.startLocked(func(s beep.Streamer) {
		speaker.Lock()
		p.mixer.Add(s)
		speaker.Unlock()
	})
	slog.Info("Audio initialized", "sample_rate", int(p.rate), "volume", p.volume)
	return nil
}

// startLocked launches the worker that hands each rendered cue to sink.
func (p *Player) startLocked(sink func(beep.Streamer)) {
	if !p.enabled || p.cues != nil {
		return
	}
	p.cues = make(chan Cue, queueSize)
	p.done = make(chan struct{})
	p.wg.Add(1)
	go p.run(p.cues, p.done, sink)
}

func (p *Player) run(cues <-chan Cue, done <-chan struct{}, sink func(beep.Streamer)) {
	defer p.wg.Done()
	for {
		select {
		case <-done:
			return
		case c := <-cues:
			p.mu.Lock()
			rate, vol := p.rate, p.volume
			p.mu.Unlock()

			s := c.Streamer(rate)
			if s == nil {
				slog.Debug("Unknown audio cue", "cue", int(c))
				continue
			}
			sink(withVolume(s, vol))
		}
	}
}

// Play queues c without blocking. When the queue is full the cue is dropped.
func (p *Player) Play(c Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || p.cues == nil {
		return
	}
	select {
	case p.cues <- c:
	default:
		slog.Debug("Audio queue full, dropping cue", "cue", c.String())
	}
}

func (p *Player) SetVolume(vol float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = vol
}

// Subscribe plays a cue for every mapped event published on bus.
func (p *Player) Subscribe(bus *event.Bus) {
	for name, cue := range cueEvents {
		bus.Subscribe(name, func(any) {
			p.Play(cue)
		})
	}
}

// Close stops the worker and silences anything still playing. Queued cues
// that were not rendered yet are discarded.
func (p *Player) Close() {
	p.mu.Lock()
	if p.cues == nil {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.cues = nil
	opened := p.speakerOpen
	p.speakerOpen = false
	p.mu.Unlock()

	p.wg.Wait()
	if opened {
		speaker.Lock()
		p.mixer.Clear()
		speaker.Unlock()
	}
}
