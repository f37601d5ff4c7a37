// Package audio plays short synthesized tones on an output device.
package audio

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Tone is one sine segment. A zero Frequency is silence.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Volume    float64 // 0..1
}

// Chime is the notification sound: two rising notes.
var Chime = []Tone{
	{Frequency: 880, Duration: 90 * time.Millisecond, Volume: 0.35},
	{Duration: 30 * time.Millisecond},
	{Frequency: 1320, Duration: 140 * time.Millisecond, Volume: 0.35},
}

// fade length at each tone edge; avoids clicks
const fadeDuration = 5 * time.Millisecond

// Synthesize renders one tone as mono float32 samples.
func Synthesize(t Tone, sampleRate int) []float32 {
	n := int(t.Duration.Seconds() * float64(sampleRate))
	out := make([]float32, n)
	if t.Frequency <= 0 || t.Volume <= 0 || n == 0 {
		return out
	}
	vol := math.Min(t.Volume, 1)
	fade := int(fadeDuration.Seconds() * float64(sampleRate))
	if fade*2 > n {
		fade = n / 2
	}
	step := 2 * math.Pi * t.Frequency / float64(sampleRate)
	for i := range out {
		env := 1.0
		if fade > 0 {
			switch {
			case i < fade:
				env = float64(i) / float64(fade)
			case i >= n-fade:
				env = float64(n-1-i) / float64(fade)
			}
		}
		out[i] = float32(vol * env * math.Sin(step*float64(i)))
	}
	return out
}

// Render concatenates tones.
func Render(tones []Tone, sampleRate int) []float32 {
	var out []float32
	for _, t := range tones {
		out = append(out, Synthesize(t, sampleRate)...)
	}
	return out
}

// Player writes samples to one output device with a blocking stream.
type Player struct {
	sampleRate   int
	framesPerBuf int
	deviceHint   string

	mu     sync.Mutex
	closed bool
}

// NewPlayer initializes portaudio. deviceHint selects the first output device
// whose name contains it; empty means the system default.
func NewPlayer(sampleRate int, deviceHint string) (*Player, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &Player{sampleRate: sampleRate, framesPerBuf: 512, deviceHint: deviceHint}, nil
}

// Play blocks until tones have been written or ctx ends. Calls are serialized.
func (p *Player) Play(ctx context.Context, tones ...Tone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("audio player closed")
	}

	dev, err := p.outputDevice()
	if err != nil {
		return err
	}
	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = 1
	params.SampleRate = float64(p.sampleRate)
	params.FramesPerBuffer = p.framesPerBuf

	buf := make([]float32, p.framesPerBuf)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return err
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return err
	}
	defer func() { _ = stream.Stop() }()

	samples := Render(tones, p.sampleRate)
	for off := 0; off < len(samples); off += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buf, samples[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			slog.Debug("audio write error", "device", dev.Name, "error", err)
			return err
		}
	}
	return nil
}

func (p *Player) outputDevice() (*portaudio.DeviceInfo, error) {
	if p.deviceHint != "" {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, err
		}
		if dev := pickOutput(devices, p.deviceHint); dev != nil {
			return dev, nil
		}
		slog.Warn("audio device not found, using default", "hint", p.deviceHint)
	}
	return portaudio.DefaultOutputDevice()
}

func pickOutput(devices []*portaudio.DeviceInfo, hint string) *portaudio.DeviceInfo {
	for _, dev := range devices {
		if dev.MaxOutputChannels > 0 && containsIgnoreCase(dev.Name, hint) {
			return dev
		}
	}
	return nil
}

// Close releases portaudio.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

func containsIgnoreCase(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || containsIgnoreCaseImpl(s, substr))
}

const asciiCaseOffset = 'a' - 'A'

func containsIgnoreCaseImpl(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			c1, c2 := s[i+j], substr[j]
			if c1 >= 'A' && c1 <= 'Z' {
				c1 += asciiCaseOffset
			}
			if c2 >= 'A' && c2 <= 'Z' {
				c2 += asciiCaseOffset
			}
			if c1 != c2 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
