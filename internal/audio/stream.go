// Package audio emits tones on the default sound device.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// DefaultSampleRate is used when no sample rate is configured.
const DefaultSampleRate = 48000

// amplitude keeps the square wave well below full scale.
const amplitude = 0.2

// ToneSource renders a square wave at a frequency that can be switched at any
// time from another goroutine. A frequency of 0 renders silence.
type ToneSource struct {
	sampleRate float64
	freq       atomic.Uint32
	phase      float64 // owned by the audio thread
}

func NewToneSource(sampleRate int) *ToneSource {
	return &ToneSource{sampleRate: float64(sampleRate)}
}

func (s *ToneSource) SetFrequency(freq uint16) { s.freq.Store(uint32(freq)) }

func (s *ToneSource) Frequency() uint16 { return uint16(s.freq.Load()) }

// Process fills dst with interleaved stereo samples.
func (s *ToneSource) Process(dst []float32) {
	freq := float64(s.freq.Load())
	if freq == 0 {
		s.phase = 0
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	step := freq / s.sampleRate
	for i := 0; i+1 < len(dst); i += 2 {
		v := float32(amplitude)
		if s.phase >= 0.5 {
			v = -amplitude
		}
		dst[i], dst[i+1] = v, v
		s.phase += step
		if s.phase >= 1 {
			s.phase -= math.Floor(s.phase)
		}
	}
}

// Stream renders mono samples into both channels of samples. With Err it
// makes ToneSource usable as a beep.Streamer for offline rendering.
func (s *ToneSource) Stream(samples [][2]float64) (int, bool) {
	var buf [512]float32
	for off := 0; off < len(samples); {
		n := min(len(samples)-off, len(buf)/2)
		s.Process(buf[:n*2])
		for i := 0; i < n; i++ {
			samples[off+i][0] = float64(buf[i*2])
			samples[off+i][1] = float64(buf[i*2+1])
		}
		off += n
	}
	return len(samples), true
}

func (s *ToneSource) Err() error { return nil }

// StreamReader adapts a ToneSource to the float32 little-endian stereo stream
// ebiten's audio player reads from.
type StreamReader struct {
	mu     sync.Mutex
	source *ToneSource
	buf    []float32
}

func NewStreamReader(source *ToneSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return frames * 8, nil
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Speaker is a tone emitter backed by the sound device. The device stream
// runs for the lifetime of the Speaker; EmitTone only switches the frequency.
type Speaker struct {
	source *ToneSource
	player *ebitaudio.Player
}

func NewSpeaker(sampleRate int) (*Speaker, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	source := NewToneSource(sampleRate)
	pl, err := ctx.NewPlayerF32(NewStreamReader(source))
	if err != nil {
		return nil, fmt.Errorf("open audio stream: %w", err)
	}
	pl.Play()
	return &Speaker{source: source, player: pl}, nil
}

func (s *Speaker) EmitTone(freq uint16) error {
	s.source.SetFrequency(freq)
	return nil
}

func (s *Speaker) Close() error {
	s.source.SetFrequency(0)
	s.player.Pause()
	return s.player.Close()
}
