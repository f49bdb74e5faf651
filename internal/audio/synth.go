package audio

import (
	"math"
	"math/rand"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveNoise
)

type oscillator struct {
	freq     float64
	phase    float64
	length   int
	position int
	wave     Wave
	rate     beep.SampleRate
}

// newOscillator plays one wave at freq for d, fading out linearly over the
// last quarter so cues do not click.
func newOscillator(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) *oscillator {
	return &oscillator{
		freq:   freq,
		length: rate.N(d),
		wave:   wave,
		rate:   rate,
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.length {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1
			} else {
				val = -1
			}
		case WaveNoise:
			val = rand.Float64()*2 - 1
		}
		val *= o.fade()

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) fade() float64 {
	tail := o.length / 4
	remaining := o.length - o.position
	if tail == 0 || remaining >= tail {
		return 1
	}
	return float64(remaining) / float64(tail)
}

func (o *oscillator) Err() error { return nil }

// withVolume scales s by vol in [0,1]. Zero is silent since log2(0) is -Inf.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

type Cue int

const (
	CueJump Cue = iota + 1
	CueDoubleJump
	CueDash
	CueCoin
	CueLevelComplete
	CueRespawn
)

func (c Cue) String() string {
	switch c {
	case CueJump:
		return "jump"
	case CueDoubleJump:
		return "double_jump"
	case CueDash:
		return "dash"
	case CueCoin:
		return "coin"
	case CueLevelComplete:
		return "level_complete"
	case CueRespawn:
		return "respawn"
	default:
		return "unknown"
	}
}

// Streamer synthesizes a cue. It returns nil for an unknown cue.
func (c Cue) Streamer(rate beep.SampleRate) beep.Streamer {
	ms := time.Millisecond
	switch c {
	case CueJump:
		return newOscillator(520, 90*ms, WaveSquare, rate)
	case CueDoubleJump:
		return beep.Seq(
			newOscillator(660, 60*ms, WaveSquare, rate),
			newOscillator(880, 80*ms, WaveSquare, rate),
		)
	case CueDash:
		return withVolume(newOscillator(0, 140*ms, WaveNoise, rate), 0.6)
	case CueCoin:
		return beep.Seq(
			newOscillator(988, 70*ms, WaveSine, rate),
			newOscillator(1319, 180*ms, WaveSine, rate),
		)
	case CueLevelComplete:
		return beep.Seq(
			newOscillator(523, 120*ms, WaveSine, rate),
			newOscillator(659, 120*ms, WaveSine, rate),
			newOscillator(784, 120*ms, WaveSine, rate),
			newOscillator(1047, 300*ms, WaveSine, rate),
		)
	case CueRespawn:
		return beep.Seq(
			newOscillator(330, 100*ms, WaveSquare, rate),
			newOscillator(220, 160*ms, WaveSquare, rate),
		)
	default:
		return nil
	}
}
