package melody

import (
	"errors"
	"fmt"
	"time"

	"github.com/zing-audio/zing/internal/protocol"
)

var (
	ErrEmptyChord        = errors.New("chord has no notes")
	ErrSchedulerPanicked = errors.New("scheduler panicked")
)

// ToneEmitter drives the output device. EmitTone switches the device to the
// given frequency in Hz and returns immediately; 0 silences it.
type ToneEmitter interface {
	EmitTone(freq uint16) error
}

// session is one running scheduler goroutine. done is closed when the
// goroutine exits, after err has been set.
type session struct {
	melody *Melody
	done   chan struct{}
	err    error
}

func (p *Player) startSession(m *Melody) *session {
	s := &session{melody: m, done: make(chan struct{})}
	go p.run(s)
	return s
}

func (p *Player) run(s *session) {
	log := p.logger.With("session", s.melody.Session())
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.err = fmt.Errorf("%w: %v", ErrSchedulerPanicked, r)
			log.Error("scheduler exited", "err", s.err)
		}
	}()

	for {
		chord, chordDuration, ok := s.melody.next(p.playFinalChord)
		if !ok {
			if s.melody.WasStopped() {
				log.Info("melody stopped")
			} else {
				s.melody.end()
				log.Info("melody finished")
			}
			return
		}

		if err := p.playChord(chord, chordDuration); err != nil {
			log.Warn("could not play chord", "err", err)
		}

		if wrapped := s.melody.Advance(); wrapped && p.playFinalChord {
			s.melody.end()
			log.Info("melody finished")
			return
		}
	}
}

// playChord plays the notes of a chord one after another, each for an equal
// share of chordDuration, holds the last note for the chord's extended
// duration and then silences the device. Failed emissions are collected and
// the remaining notes still play.
func (p *Player) playChord(chord protocol.Chord, chordDuration time.Duration) error {
	if len(chord.Notes) == 0 {
		return ErrEmptyChord
	}
	slice := chordDuration / time.Duration(len(chord.Notes))

	var errs []error
	for _, note := range chord.Notes {
		if err := p.emitter.EmitTone(note); err != nil {
			errs = append(errs, fmt.Errorf("emit %d Hz: %w", note, err))
		}
		p.sleep(slice)
	}

	last := chord.Notes[len(chord.Notes)-1]
	if err := p.emitter.EmitTone(last); err != nil {
		errs = append(errs, fmt.Errorf("emit %d Hz: %w", last, err))
	}
	p.sleep(chord.ExtendedDuration)

	if err := p.emitter.EmitTone(0); err != nil {
		errs = append(errs, fmt.Errorf("silence: %w", err))
	}
	return errors.Join(errs...)
}
