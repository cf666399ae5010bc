package melody

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zing-audio/zing/internal/protocol"
)

// ErrNoChordsProvided is returned by New for play data without chords.
var ErrNoChordsProvided = protocol.ErrNoChordsProvided

// Melody is the playback cursor and transport state of one session. It is
// shared between the dispatcher and the session's scheduler goroutine.
type Melody struct {
	mu   sync.RWMutex
	wake *sync.Cond // signalled on the write side whenever playing or stopped change

	session       string
	chordDuration time.Duration
	chords        []protocol.Chord
	position      int
	playing       bool
	stopped       bool
	ended         bool // the scheduler reached the end on its own
}

// Status is a point-in-time view of a session.
type Status struct {
	Idle     bool   `json:"idle"`
	Session  string `json:"session,omitempty"`
	Position int    `json:"position"`
	Chords   int    `json:"chords"`
	Playing  bool   `json:"playing"`
	Stopped  bool   `json:"stopped"`
	Finished bool   `json:"finished"`
}

func New(data protocol.PlayData) (*Melody, error) {
	if len(data.Chords) == 0 {
		return nil, ErrNoChordsProvided
	}
	if data.ChordDuration <= 0 {
		return nil, fmt.Errorf("%w, got %s", protocol.ErrInvalidChordDuration, data.ChordDuration)
	}
	m := &Melody{
		session:       uuid.NewString(),
		chordDuration: data.ChordDuration,
		chords:        data.Chords,
	}
	m.wake = sync.NewCond(m.mu.RLocker())
	return m, nil
}

func (m *Melody) Session() string { return m.session }

func (m *Melody) Resume() {
	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
	m.wake.Broadcast()
}

func (m *Melody) Pause() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
}

// Stop ends the session for good: the stopped latch is never cleared.
func (m *Melody) Stop() {
	m.mu.Lock()
	m.playing = false
	m.stopped = true
	m.position = 0
	m.mu.Unlock()
	m.wake.Broadcast()
}

func (m *Melody) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing
}

func (m *Melody) WasStopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopped
}

func (m *Melody) Position() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// Advance moves the cursor to the next chord, wrapping around at the end, and
// reports whether it wrapped. A stopped melody keeps its cursor at 0.
func (m *Melody) Advance() (wrapped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.position = (m.position + 1) % len(m.chords)
	return m.position == 0
}

func (m *Melody) Snapshot() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Session:  m.session,
		Position: m.position,
		Chords:   len(m.chords),
		Playing:  m.playing && !m.ended,
		Stopped:  m.stopped,
		Finished: m.ended,
	}
}

// end marks the melody as played through. Later Resume calls do not make it
// report as playing again.
func (m *Melody) end() {
	m.mu.Lock()
	m.playing = false
	m.ended = true
	m.mu.Unlock()
}

// atLastChord reports whether the cursor sits on the final chord. The
// scheduler ends the session there, so the final chord is not played unless
// the player was built WithPlayFinalChord. Callers hold mu.
func (m *Melody) atLastChord() bool {
	return m.position >= len(m.chords)-1
}

// next blocks while the melody is paused and returns the chord under the
// cursor together with the chord duration. ok is false once the melody was
// stopped or is finished.
func (m *Melody) next(playFinal bool) (chord protocol.Chord, chordDuration time.Duration, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for {
		if m.stopped || (!playFinal && m.atLastChord()) {
			return protocol.Chord{}, 0, false
		}
		if m.playing {
			return m.chords[m.position], m.chordDuration, true
		}
		m.wake.Wait()
	}
}
