// Package melody plays compiled chord sequences on a tone emitter and
// implements the transport commands of the daemon.
package melody

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/zing-audio/zing/internal/protocol"
)

type PlayerOption func(*Player)

func WithLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPlayFinalChord makes sessions play the final chord of a melody before
// finishing. By default a session ends on reaching the final chord.
func WithPlayFinalChord(enabled bool) PlayerOption {
	return func(p *Player) {
		p.playFinalChord = enabled
	}
}

// WithSleep replaces time.Sleep for note timing.
func WithSleep(sleep func(time.Duration)) PlayerOption {
	return func(p *Player) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// Player owns the active melody and its scheduler goroutine. Commands are
// serialized; at most one scheduler runs at any time.
type Player struct {
	mu      sync.Mutex // serializes commands
	stateMu sync.Mutex // guards current for Status
	current *session

	emitter        ToneEmitter
	logger         *slog.Logger
	sleep          func(time.Duration)
	playFinalChord bool
}

func NewPlayer(emitter ToneEmitter, opts ...PlayerOption) *Player {
	p := &Player{
		emitter: emitter,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleCommand runs one command. Failures are logged and never returned.
func (p *Player) HandleCommand(cmd protocol.Command) {
	p.logger.Debug("processing command", "kind", cmd.Kind)

	var err error
	switch cmd.Kind {
	case protocol.KindPlay:
		if cmd.Play == nil {
			p.logger.Error("play command without play data")
			return
		}
		var m *Melody
		m, err = New(*cmd.Play)
		if err != nil {
			p.logger.Error("failed to create melody", "err", err)
			return
		}
		err = p.Play(m)
	case protocol.KindStop:
		err = p.Stop()
	case protocol.KindPause:
		err = p.Pause()
	case protocol.KindResume:
		err = p.Resume()
	default:
		p.logger.Error("unknown command", "kind", cmd.Kind)
		return
	}
	if err != nil {
		p.logger.Error("command failed", "kind", cmd.Kind, "err", err)
	}
}

// Play stops any running session and starts playing m. When Play returns the
// previous scheduler has exited and m's scheduler is the only one running.
func (p *Player) Play(m *Melody) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("playing melody", "session", m.Session())
	if err := p.stopLocked(); err != nil {
		// The previous session is gone either way; report and carry on.
		p.logger.Warn("previous session ended with error", "err", err)
	}

	m.Resume()
	s := p.startSession(m)
	p.setCurrent(s)
	p.logger.Info("started melody", "session", m.Session(), "chords", len(m.chords))
	return nil
}

// Stop ends the current session and waits for its scheduler to exit. It is a
// no-op when nothing is playing.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	p.logger.Debug("stopping melody")
	s := p.currentSession()
	if s == nil {
		p.logger.Info("no melody to stop")
		return nil
	}

	s.melody.Stop()
	p.silence()
	p.logger.Info("melody stopped", "session", s.melody.Session())

	<-s.done
	p.setCurrent(nil)
	p.logger.Debug("scheduler joined", "session", s.melody.Session())
	return s.err
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.currentSession()
	if s == nil {
		p.logger.Info("no melody to pause")
		return nil
	}
	s.melody.Pause()
	p.silence()
	p.logger.Info("melody paused", "session", s.melody.Session())
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.currentSession()
	if s == nil {
		p.logger.Info("no melody to resume")
		return nil
	}
	s.melody.Resume()
	p.logger.Info("melody resumed", "session", s.melody.Session())
	return nil
}

// wait blocks until the current session's scheduler exits on its own or is
// stopped. It returns immediately when nothing is playing.
func (p *Player) wait() {
	if s := p.currentSession(); s != nil {
		<-s.done
	}
}

// Status reports the current session, or Idle when there is none.
func (p *Player) Status() Status {
	s := p.currentSession()
	if s == nil {
		return Status{Idle: true}
	}
	return s.melody.Snapshot()
}

func (p *Player) silence() {
	if err := p.emitter.EmitTone(0); err != nil {
		p.logger.Warn("could not silence output", "err", err)
	}
}

func (p *Player) currentSession() *session {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.current
}

func (p *Player) setCurrent(s *session) {
	p.stateMu.Lock()
	p.current = s
	p.stateMu.Unlock()
}
