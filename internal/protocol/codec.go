package protocol

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnknownKind      = errors.New("unknown command kind")
	ErrMissingPlayData  = errors.New("play command without play data")
	ErrDurationOverflow = errors.New("duration out of range")
)

// wireDuration mirrors a seconds + nanoseconds duration so the encoding does
// not depend on time.Duration's int64 range.
type wireDuration struct {
	Secs  uint64
	Nanos uint32
}

type wireChord struct {
	ExtendedDuration wireDuration
	Notes            []uint16
}

type wirePlayData struct {
	ChordDuration wireDuration
	Chords        []wireChord
}

type wireCommand struct {
	Kind uint8
	Play *wirePlayData
}

func toWireDuration(d time.Duration) wireDuration {
	if d < 0 {
		d = 0
	}
	return wireDuration{
		Secs:  uint64(d / time.Second),
		Nanos: uint32(d % time.Second),
	}
}

const maxWireSecs = uint64(math.MaxInt64 / int64(time.Second))

func (d wireDuration) duration() (time.Duration, error) {
	if d.Nanos >= uint32(time.Second) || d.Secs > maxWireSecs {
		return 0, fmt.Errorf("%w: %ds %dns", ErrDurationOverflow, d.Secs, d.Nanos)
	}
	secs := time.Duration(d.Secs) * time.Second
	if time.Duration(d.Nanos) > math.MaxInt64-secs {
		return 0, fmt.Errorf("%w: %ds %dns", ErrDurationOverflow, d.Secs, d.Nanos)
	}
	return secs + time.Duration(d.Nanos), nil
}

// Encode serializes a command into its wire form.
func Encode(cmd Command) ([]byte, error) {
	if cmd.Kind > KindResume {
		return nil, fmt.Errorf("encode: %w: %d", ErrUnknownKind, cmd.Kind)
	}
	wc := wireCommand{Kind: uint8(cmd.Kind)}
	if cmd.Kind == KindPlay {
		if cmd.Play == nil {
			return nil, fmt.Errorf("encode: %w", ErrMissingPlayData)
		}
		wp := &wirePlayData{
			ChordDuration: toWireDuration(cmd.Play.ChordDuration),
			Chords:        make([]wireChord, len(cmd.Play.Chords)),
		}
		for i, c := range cmd.Play.Chords {
			wp.Chords[i] = wireChord{
				ExtendedDuration: toWireDuration(c.ExtendedDuration),
				Notes:            c.Notes,
			}
		}
		wc.Play = wp
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&wc); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a command from its wire form.
func Decode(b []byte) (Command, error) {
	var wc wireCommand
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&wc); err != nil {
		return Command{}, fmt.Errorf("decode: %w", err)
	}
	kind := Kind(wc.Kind)
	switch kind {
	case KindStop, KindPause, KindResume:
		return Command{Kind: kind}, nil
	case KindPlay:
	default:
		return Command{}, fmt.Errorf("decode: %w: %d", ErrUnknownKind, wc.Kind)
	}
	if wc.Play == nil {
		return Command{}, fmt.Errorf("decode: %w", ErrMissingPlayData)
	}

	chordDuration, err := wc.Play.ChordDuration.duration()
	if err != nil {
		return Command{}, fmt.Errorf("decode chord duration: %w", err)
	}
	if chordDuration <= 0 {
		return Command{}, fmt.Errorf("decode: %w", ErrInvalidChordDuration)
	}
	data := PlayData{
		ChordDuration: chordDuration,
		Chords:        make([]Chord, len(wc.Play.Chords)),
	}
	for i, c := range wc.Play.Chords {
		ext, err := c.ExtendedDuration.duration()
		if err != nil {
			return Command{}, fmt.Errorf("decode chord %d: %w", i, err)
		}
		data.Chords[i] = Chord{ExtendedDuration: ext, Notes: c.Notes}
	}
	return Play(data), nil
}
