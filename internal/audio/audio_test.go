package audio

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/Versifine/platformer/internal/config"
	"github.com/Versifine/platformer/internal/event"
)

const testRate = beep.SampleRate(44100)

func drain(s beep.Streamer) (total int, peak float64) {
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			peak = math.Max(peak, math.Abs(buf[i][0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
}

func TestOscillatorLengthAndRange(t *testing.T) {
	tests := []struct {
		name string
		wave Wave
	}{
		{"sine", WaveSine},
		{"square", WaveSquare},
		{"noise", WaveNoise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := newOscillator(440, 100*time.Millisecond, tt.wave, testRate)
			n, peak := drain(osc)
			if n != testRate.N(100*time.Millisecond) {
				t.Fatalf("streamed %d samples, want %d", n, testRate.N(100*time.Millisecond))
			}
			if peak > 1 {
				t.Fatalf("sample out of range: %f", peak)
			}
			if osc.Err() != nil {
				t.Fatalf("unexpected error: %v", osc.Err())
			}
		})
	}
}

func TestOscillatorFadesOut(t *testing.T) {
	osc := newOscillator(100, 40*time.Millisecond, WaveSquare, testRate)
	buf := make([][2]float64, osc.length)
	n, _ := osc.Stream(buf)

	if math.Abs(buf[0][0]) != 1 {
		t.Fatalf("first sample should be full scale, got %f", buf[0][0])
	}
	last := math.Abs(buf[n-1][0])
	if last > 0.01 {
		t.Fatalf("last sample should be near silent, got %f", last)
	}
}

func TestCueStreamers(t *testing.T) {
	tests := []struct {
		cue  Cue
		want time.Duration
	}{
		{CueJump, 90 * time.Millisecond},
		{CueDoubleJump, 140 * time.Millisecond},
		{CueDash, 140 * time.Millisecond},
		{CueCoin, 250 * time.Millisecond},
		{CueLevelComplete, 660 * time.Millisecond},
		{CueRespawn, 260 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.cue.String(), func(t *testing.T) {
			s := tt.cue.Streamer(testRate)
			if s == nil {
				t.Fatal("expected a streamer")
			}
			n, _ := drain(s)
			want := testRate.N(tt.want)
			// each segment rounds to whole samples
			if diff := n - want; diff < -4 || diff > 4 {
				t.Fatalf("cue length %d samples, want about %d", n, want)
			}
		})
	}

	if Cue(99).Streamer(testRate) != nil {
		t.Fatal("unknown cue should have no streamer")
	}
}

func TestSilentVolume(t *testing.T) {
	s := withVolume(newOscillator(440, 10*time.Millisecond, WaveSquare, testRate), 0)
	_, peak := drain(s)
	if peak != 0 {
		t.Fatalf("zero volume should be silent, peak %f", peak)
	}
}

func newRecordingPlayer(t *testing.T, enabled bool) (*Player, chan beep.Streamer) {
	t.Helper()
	p := NewPlayer(config.AudioConfig{Enabled: enabled, Volume: 0.5, SampleRate: int(testRate)})
	played := make(chan beep.Streamer, 64)
	p.mu.Lock()
	p.startLocked(func(s beep.Streamer) { played <- s })
	p.mu.Unlock()
	t.Cleanup(p.Close)
	return p, played
}

func waitCue(t *testing.T, played <-chan beep.Streamer) beep.Streamer {
	t.Helper()
	select {
	case s := <-played:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a cue")
		return nil
	}
}

func TestSubscribePlaysCues(t *testing.T) {
	p, played := newRecordingPlayer(t, true)
	bus := event.NewBus()
	p.Subscribe(bus)

	bus.Publish(event.EventJump, &event.MovementEvent{})
	bus.Publish(event.EventCoinCollected, &event.CoinEvent{ID: 1, Points: 1})
	bus.Publish(event.EventLanded, &event.MovementEvent{})

	waitCue(t, played)
	waitCue(t, played)
	p.Close()

	if n := len(played); n != 0 {
		t.Fatalf("expected 2 cues, got %d extra", n)
	}
}

func TestPlayDoesNotWaitOnSink(t *testing.T) {
	p := NewPlayer(config.AudioConfig{Enabled: true, Volume: 1, SampleRate: int(testRate)})
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var delivered atomic.Int32
	p.mu.Lock()
	p.startLocked(func(beep.Streamer) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		delivered.Add(1)
	})
	p.mu.Unlock()

	bus := event.NewBus()
	p.Subscribe(bus)

	published := make(chan struct{})
	go func() {
		defer close(published)
		bus.Publish(event.EventDashStarted, &event.MovementEvent{})
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			return
		}
		// the worker is now stuck in the sink; fill and overflow the queue
		for i := 0; i < queueSize+8; i++ {
			bus.Publish(event.EventJump, &event.MovementEvent{})
		}
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on the audio sink")
	}

	close(release)
	p.Close()

	if got := delivered.Load(); got < 1 || got > queueSize+1 {
		t.Fatalf("delivered %d cues, want between 1 and %d", got, queueSize+1)
	}
}

func TestDisabledPlayerIsSilent(t *testing.T) {
	p, played := newRecordingPlayer(t, false)
	p.Play(CueJump)

	if err := p.Init(); err != nil {
		t.Fatalf("init of a disabled player should be a no-op: %v", err)
	}
	p.Close()
	if len(played) != 0 {
		t.Fatalf("disabled player played %d cues", len(played))
	}
}

func TestPlayUnknownCue(t *testing.T) {
	p, played := newRecordingPlayer(t, true)
	p.Play(Cue(42))
	p.Play(CueJump)

	waitCue(t, played)
	p.Close()
	if len(played) != 0 {
		t.Fatal("unknown cue should not reach the speaker")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, _ := newRecordingPlayer(t, true)
	p.Close()
	p.Close()
	p.Play(CueCoin)
}
