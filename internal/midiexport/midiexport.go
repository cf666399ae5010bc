// Package midiexport writes compiled melodies as Standard MIDI Files.
package midiexport

import (
	"fmt"
	"io"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/zing-audio/zing/internal/protocol"
)

const (
	resolution = 960 // ticks per quarter note
	bpm        = 120.0
	velocity   = 100
)

var quarter = time.Duration(float64(time.Minute) / bpm)

// Key returns the MIDI key closest to freq, clamped to 0..127.
func Key(freq uint16) uint8 {
	if freq == 0 {
		return 0
	}
	k := math.Round(69 + 12*math.Log2(float64(freq)/440))
	return uint8(math.Max(0, math.Min(127, k)))
}

func ticks(d time.Duration) uint32 {
	return uint32(math.Round(float64(d) / float64(quarter) * resolution))
}

// Write encodes data as a single-track SMF. Notes follow the player's
// schedule: each note of a chord gets an equal share of the chord duration
// and the last note is held for the chord's extended duration.
func Write(w io.Writer, data protocol.PlayData) error {
	if len(data.Chords) == 0 {
		return protocol.ErrNoChordsProvided
	}

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	tr.Add(0, smf.MetaMeter(4, 4))

	var pending uint32
	for _, chord := range data.Chords {
		if len(chord.Notes) == 0 {
			pending += ticks(data.ChordDuration)
			continue
		}
		slice := data.ChordDuration / time.Duration(len(chord.Notes))
		for i, note := range chord.Notes {
			length := ticks(slice)
			if i == len(chord.Notes)-1 {
				length += ticks(chord.ExtendedDuration)
			}
			if note == 0 {
				pending += length
				continue
			}
			key := Key(note)
			tr.Add(pending, midi.NoteOn(0, key, velocity))
			tr.Add(length, midi.NoteOff(0, key))
			pending = 0
		}
	}
	tr.Close(pending)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(resolution)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}
