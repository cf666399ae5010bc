package zing

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/zing-audio/zing/internal/audio"
	"github.com/zing-audio/zing/internal/protocol"
)

// DefaultSampleRate matches the daemon's default output rate.
const DefaultSampleRate = audio.DefaultSampleRate

var ErrInvalidSampleRate = errors.New("sample rate must be positive")

// Schedule returns the melody as one beep stream. Each note of a chord
// sounds for an equal share of the chord duration and the last note is held
// for the chord's extended duration. Unlike the daemon, every chord is
// rendered, including the last.
func Schedule(data PlayData, sampleRate int) (beep.Streamer, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if len(data.Chords) == 0 {
		return nil, protocol.ErrNoChordsProvided
	}
	sr := beep.SampleRate(sampleRate)

	var parts []beep.Streamer
	tone := func(freq uint16, d time.Duration) {
		n := sr.N(d)
		if n <= 0 {
			return
		}
		if freq == 0 {
			parts = append(parts, beep.Silence(n))
			return
		}
		src := audio.NewToneSource(sampleRate)
		src.SetFrequency(freq)
		parts = append(parts, beep.Take(n, src))
	}
	for _, chord := range data.Chords {
		if len(chord.Notes) == 0 {
			tone(0, data.ChordDuration)
			continue
		}
		slice := data.ChordDuration / time.Duration(len(chord.Notes))
		for _, note := range chord.Notes {
			tone(note, slice)
		}
		tone(chord.Notes[len(chord.Notes)-1], chord.ExtendedDuration)
	}
	return beep.Seq(parts...), nil
}

// RenderWAV writes the melody as a 16-bit mono WAV file.
func RenderWAV(w io.WriteSeeker, data PlayData, sampleRate int) error {
	s, err := Schedule(data, sampleRate)
	if err != nil {
		return err
	}
	format := beep.Format{SampleRate: beep.SampleRate(sampleRate), NumChannels: 1, Precision: 2}
	if err := wav.Encode(w, s, format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}
