// Package mixer provides a software output sink built on beep.
//
// The source is routed through effects.Volume and beep.Ctrl, so pausing and
// volume changes act on the rendered samples. Run renders in real time into a
// null device and keeps an RMS meter of what was produced.
package mixer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	zlog "github.com/rs/zerolog/log"
)

// Config holds mixer configuration.
type Config struct {
	SampleRate    int     // Samples per second
	ToneHz        float64 // Frequency of the built-in test tone
	InitialVolume int     // 0-100
	StartPaused   bool
}

// renderPeriod is the size of one real-time render step.
const renderPeriod = 20 * time.Millisecond

// Mixer is a software output with pause and volume control.
type Mixer struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	ctrl   *beep.Ctrl
	volume *effects.Volume
	level  int
	rms    float64
}

// New creates a mixer playing a sine tone.
func New(cfg Config) *Mixer {
	rate := beep.SampleRate(cfg.SampleRate)
	return NewWithSource(cfg, Tone(rate, cfg.ToneHz))
}

// NewWithSource creates a mixer around an arbitrary streamer.
func NewWithSource(cfg Config, source beep.Streamer) *Mixer {
	vol := &effects.Volume{Streamer: source, Base: 2}
	m := &Mixer{
		rate:   beep.SampleRate(cfg.SampleRate),
		volume: vol,
		ctrl:   &beep.Ctrl{Streamer: vol, Paused: cfg.StartPaused},
	}
	m.applyLevel(cfg.InitialVolume)
	return m
}

// Name returns the sink name.
func (m *Mixer) Name() string {
	return "mixer"
}

// Play resumes rendering of the source.
func (m *Mixer) Play(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctrl.Paused = false
	return nil
}

// Pause renders silence until Play is called.
func (m *Mixer) Pause(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctrl.Paused = true
	return nil
}

// Paused reports whether the mixer is paused.
func (m *Mixer) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctrl.Paused
}

// Volume returns the current level (0-100).
func (m *Mixer) Volume(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, nil
}

// SetVolume sets the level (0-100). Out of range values are clamped.
func (m *Mixer) SetVolume(ctx context.Context, level int) error {
	m.applyLevel(level)
	return nil
}

func (m *Mixer) applyLevel(level int) {
	level = clamp(level)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
	m.volume.Silent = level == 0
	if level > 0 {
		m.volume.Volume = math.Log2(float64(level) / 100)
	}
}

// Stream implements beep.Streamer.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.ctrl.Stream(samples)
	var sum float64
	for _, s := range samples[:n] {
		sum += s[0]*s[0] + s[1]*s[1]
	}
	if n > 0 {
		m.rms = math.Sqrt(sum / float64(2*n))
	}
	return n, ok
}

// Err implements beep.Streamer.
func (m *Mixer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctrl.Err()
}

// RMS returns the level of the last rendered block.
func (m *Mixer) RMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rms
}

// Run renders in real time until ctx is cancelled or the source ends.
func (m *Mixer) Run(ctx context.Context) error {
	buf := make([][2]float64, m.rate.N(renderPeriod))
	ticker := time.NewTicker(renderPeriod)
	defer ticker.Stop()

	zlog.Debug().Msgf("mixer: rendering at %d Hz, %d samples per block", int(m.rate), len(buf))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, ok := m.Stream(buf); !ok {
				return m.Err()
			}
		}
	}
}

// Tone returns an endless sine streamer at half amplitude.
func Tone(rate beep.SampleRate, hz float64) beep.Streamer {
	var phase float64
	step := hz / float64(rate)
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := 0.5 * math.Sin(2*math.Pi*phase)
			samples[i] = [2]float64{v, v}
			phase += step
			if phase >= 1 {
				phase--
			}
		}
		return len(samples), true
	})
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
