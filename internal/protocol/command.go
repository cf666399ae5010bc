package protocol

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoChordsProvided is returned when a melody is built without chords.
	ErrNoChordsProvided     = errors.New("no chords provided")
	ErrInvalidChordDuration = errors.New("chord duration must be positive")
)

// Chord is a group of notes that share one time slot. Notes are frequencies
// in Hz; 0 means silence.
type Chord struct {
	ExtendedDuration time.Duration
	Notes            []uint16
}

type PlayData struct {
	ChordDuration time.Duration
	Chords        []Chord
}

// NewPlayData validates the chord list and wraps it with its time base.
func NewPlayData(chordDuration time.Duration, chords []Chord) (PlayData, error) {
	if len(chords) == 0 {
		return PlayData{}, ErrNoChordsProvided
	}
	if chordDuration <= 0 {
		return PlayData{}, fmt.Errorf("%w, got %s", ErrInvalidChordDuration, chordDuration)
	}
	return PlayData{ChordDuration: chordDuration, Chords: chords}, nil
}

type Kind uint8

const (
	KindPlay Kind = iota
	KindStop
	KindPause
	KindResume
)

func (k Kind) String() string {
	switch k {
	case KindPlay:
		return "play"
	case KindStop:
		return "stop"
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is both the wire message and the dispatch message. Play is set
// only when Kind is KindPlay.
type Command struct {
	Kind Kind
	Play *PlayData
}

func Play(data PlayData) Command { return Command{Kind: KindPlay, Play: &data} }
func Stop() Command             { return Command{Kind: KindStop} }
func Pause() Command            { return Command{Kind: KindPause} }
func Resume() Command           { return Command{Kind: KindResume} }
