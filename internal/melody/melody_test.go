package melody

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zing-audio/zing/internal/protocol"
)

type recorder struct {
	mu      sync.Mutex
	tones   []uint16
	fail    map[uint16]error
	panicOn uint16
}

func (r *recorder) EmitTone(freq uint16) error {
	if r.panicOn != 0 && freq == r.panicOn {
		panic("device gone")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tones = append(r.tones, freq)
	return r.fail[freq]
}

func (r *recorder) Tones() []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint16(nil), r.tones...)
}

type sleepLog struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepLog) Sleep(d time.Duration) {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
}

func (s *sleepLog) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

// gate hands control of every sleep to the test.
type gate struct {
	calls   chan time.Duration
	release chan struct{}
}

func newGate() *gate {
	return &gate{calls: make(chan time.Duration), release: make(chan struct{})}
}

func (g *gate) Sleep(d time.Duration) {
	g.calls <- d
	<-g.release
}

func (g *gate) step(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-g.calls:
		g.release <- struct{}{}
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not sleep")
		return 0
	}
}

// drain releases every sleep until the returned func is called.
func (g *gate) drain() (stop func()) {
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-g.calls:
				g.release <- struct{}{}
			case <-quit:
				return
			}
		}
	}()
	return func() { close(quit) }
}

func chords(notes ...[]uint16) []protocol.Chord {
	out := make([]protocol.Chord, len(notes))
	for i, n := range notes {
		out[i] = protocol.Chord{Notes: n}
	}
	return out
}

func newMelody(t *testing.T, chordDuration time.Duration, cs []protocol.Chord) *Melody {
	t.Helper()
	m, err := New(protocol.PlayData{ChordDuration: chordDuration, Chords: cs})
	require.NoError(t, err)
	return m
}

func TestNewRejectsEmptyMelody(t *testing.T) {
	m, err := New(protocol.PlayData{ChordDuration: time.Second})
	require.ErrorIs(t, err, ErrNoChordsProvided)
	assert.Nil(t, m)
}

func TestNewRejectsNonPositiveChordDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Millisecond} {
		m, err := New(protocol.PlayData{ChordDuration: d, Chords: chords([]uint16{440})})
		require.ErrorIs(t, err, protocol.ErrInvalidChordDuration)
		assert.Nil(t, m)
	}
}

func TestStatusAfterMelodyFinishes(t *testing.T) {
	for _, playFinal := range []bool{false, true} {
		p := NewPlayer(&recorder{}, WithSleep(func(time.Duration) {}), WithPlayFinalChord(playFinal))
		require.NoError(t, p.Play(newMelody(t, time.Millisecond, chords([]uint16{440}, []uint16{493}))))
		p.wait()

		st := p.Status()
		assert.False(t, st.Idle)
		assert.True(t, st.Finished, "playFinal=%v", playFinal)
		assert.False(t, st.Playing, "playFinal=%v", playFinal)
		assert.False(t, st.Stopped)
		assert.Equal(t, 2, st.Chords)

		require.NoError(t, p.Resume())
		assert.False(t, p.Status().Playing, "a finished melody has no scheduler to resume")

		require.NoError(t, p.Stop())
		assert.Equal(t, Status{Idle: true}, p.Status())
	}
}

func TestMelodyTransitions(t *testing.T) {
	m := newMelody(t, time.Millisecond, chords([]uint16{1}, []uint16{2}, []uint16{3}))
	assert.False(t, m.IsPlaying())
	assert.False(t, m.WasStopped())
	assert.NotEmpty(t, m.Session())

	m.Resume()
	assert.True(t, m.IsPlaying())
	m.Advance()
	m.Pause()
	assert.False(t, m.IsPlaying())
	assert.Equal(t, 1, m.Position())
	m.Resume()
	assert.Equal(t, 1, m.Position())

	m.Advance()
	assert.True(t, m.atLastChord())

	m.Stop()
	assert.Equal(t, 0, m.Position())
	assert.True(t, m.WasStopped())
	assert.False(t, m.IsPlaying())

	m.Resume()
	assert.True(t, m.WasStopped(), "stop latch must survive resume")
	m.Advance()
	assert.Equal(t, 0, m.Position(), "stopped melody keeps its cursor at 0")
}

func TestMelodyAdvanceWraps(t *testing.T) {
	m := newMelody(t, time.Millisecond, chords([]uint16{1}, []uint16{2}))
	assert.False(t, m.Advance())
	assert.True(t, m.Advance())
	assert.Equal(t, 0, m.Position())
}

func TestPlaySkipsFinalChord(t *testing.T) {
	rec := &recorder{}
	sl := &sleepLog{}
	p := NewPlayer(rec, WithSleep(sl.Sleep))

	cs := chords([]uint16{440}, []uint16{493, 523}, []uint16{587})
	cs[1].ExtendedDuration = 5 * time.Millisecond
	m := newMelody(t, 100*time.Millisecond, cs)

	require.NoError(t, p.Play(m))
	p.wait()

	assert.Equal(t, []uint16{440, 440, 0, 493, 523, 523, 0}, rec.Tones())
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond, 0,
		50 * time.Millisecond, 50 * time.Millisecond, 5 * time.Millisecond,
	}, sl.Slept())
	assert.Equal(t, 2, m.Position())
	assert.False(t, m.WasStopped())
}

func TestPlayFinalChordOption(t *testing.T) {
	rec := &recorder{}
	sl := &sleepLog{}
	p := NewPlayer(rec, WithSleep(sl.Sleep), WithPlayFinalChord(true))

	m := newMelody(t, 10*time.Millisecond, chords([]uint16{440}, []uint16{493}))
	require.NoError(t, p.Play(m))
	p.wait()

	assert.Equal(t, []uint16{440, 440, 0, 493, 493, 0}, rec.Tones())
	assert.Equal(t, 0, m.Position())
}

func TestSingleChordMelodyFinishesImmediately(t *testing.T) {
	rec := &recorder{}
	p := NewPlayer(rec, WithSleep(func(time.Duration) {}))

	m := newMelody(t, 10*time.Millisecond, chords([]uint16{440}))
	require.NoError(t, p.Play(m))
	p.wait()

	assert.Empty(t, rec.Tones())
}

func TestStopWaitsForScheduler(t *testing.T) {
	rec := &recorder{}
	p := NewPlayer(rec)

	cs := make([]protocol.Chord, 50)
	for i := range cs {
		cs[i] = protocol.Chord{Notes: []uint16{440}}
	}
	m := newMelody(t, 20*time.Millisecond, cs)
	require.NoError(t, p.Play(m))
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	assert.True(t, m.WasStopped())
	assert.Equal(t, 0, m.Position())
	assert.True(t, p.Status().Idle)

	emitted := len(rec.Tones())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, emitted, len(rec.Tones()), "no tones after stop returned")

	require.NoError(t, p.Stop(), "stop is idempotent")
}

func TestPlayReplacesRunningSession(t *testing.T) {
	g := newGate()
	p := NewPlayer(&recorder{}, WithSleep(g.Sleep))

	first := newMelody(t, 10*time.Millisecond, chords([]uint16{1}, []uint16{2}, []uint16{3}))
	require.NoError(t, p.Play(first))
	firstSession := p.currentSession()
	g.step(t)

	stop := g.drain()
	second := newMelody(t, 10*time.Millisecond, chords([]uint16{4}, []uint16{5}, []uint16{6}))
	require.NoError(t, p.Play(second))

	select {
	case <-firstSession.done:
	default:
		t.Fatal("previous scheduler still running after Play returned")
	}
	assert.True(t, first.WasStopped())
	assert.Equal(t, second.Session(), p.Status().Session)

	require.NoError(t, p.Stop())
	stop()
}

func TestPauseHoldsPositionUntilResume(t *testing.T) {
	rec := &recorder{}
	g := newGate()
	p := NewPlayer(rec, WithSleep(g.Sleep))

	m := newMelody(t, 10*time.Millisecond, chords([]uint16{1}, []uint16{2}, []uint16{3}, []uint16{4}))
	require.NoError(t, p.Play(m))

	g.step(t) // note slice of chord 0
	require.NoError(t, p.Pause())
	g.step(t) // extended hold of chord 0

	require.Eventually(t, func() bool { return m.Position() == 1 }, time.Second, time.Millisecond)
	select {
	case <-g.calls:
		t.Fatal("paused scheduler kept playing")
	case <-time.After(50 * time.Millisecond):
	}
	status := p.Status()
	assert.Equal(t, 1, status.Position)
	assert.False(t, status.Playing)

	require.NoError(t, p.Resume())
	assert.Equal(t, 1, m.Position())
	g.step(t)

	stop := g.drain()
	require.NoError(t, p.Stop())
	stop()
	assert.Equal(t, 0, m.Position())
}

func TestStopWhilePausedWakesScheduler(t *testing.T) {
	g := newGate()
	p := NewPlayer(&recorder{}, WithSleep(g.Sleep))

	m := newMelody(t, 10*time.Millisecond, chords([]uint16{1}, []uint16{2}, []uint16{3}))
	require.NoError(t, p.Play(m))
	g.step(t)
	require.NoError(t, p.Pause())
	g.step(t)

	done := make(chan error, 1)
	go func() { done <- p.Stop() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not wake the paused scheduler")
	}
}

func TestHandleCommandNeverFails(t *testing.T) {
	rec := &recorder{}
	p := NewPlayer(rec, WithSleep(func(time.Duration) {}))

	p.HandleCommand(protocol.Command{Kind: protocol.KindPlay})
	p.HandleCommand(protocol.Play(protocol.PlayData{ChordDuration: time.Millisecond}))
	p.HandleCommand(protocol.Play(protocol.PlayData{Chords: chords([]uint16{440})}))
	p.HandleCommand(protocol.Command{Kind: protocol.Kind(42)})
	p.HandleCommand(protocol.Pause())
	p.HandleCommand(protocol.Resume())
	p.HandleCommand(protocol.Stop())
	assert.True(t, p.Status().Idle)
	assert.Empty(t, rec.Tones())

	p.HandleCommand(protocol.Play(protocol.PlayData{
		ChordDuration: time.Millisecond,
		Chords:        chords([]uint16{440}, []uint16{0}),
	}))
	p.wait()
	assert.Equal(t, []uint16{440, 440, 0}, rec.Tones())
	assert.False(t, p.Status().Idle)
}

func TestSchedulerPanicIsReported(t *testing.T) {
	rec := &recorder{panicOn: 440}
	p := NewPlayer(rec, WithSleep(func(time.Duration) {}))

	require.NoError(t, p.Play(newMelody(t, time.Millisecond, chords([]uint16{440}, []uint16{493}))))
	p.wait()

	err := p.Stop()
	require.ErrorIs(t, err, ErrSchedulerPanicked)
	assert.True(t, p.Status().Idle)

	require.NoError(t, p.Play(newMelody(t, time.Millisecond, chords([]uint16{493}, []uint16{493}))))
	p.wait()
	assert.Equal(t, []uint16{0, 493, 493, 0}, rec.Tones())
}

func TestPlayChordContinuesAfterEmitError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{fail: map[uint16]error{440: boom}}
	p := NewPlayer(rec, WithSleep(func(time.Duration) {}))

	err := p.playChord(protocol.Chord{Notes: []uint16{440, 493}}, time.Millisecond)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []uint16{440, 493, 493, 0}, rec.Tones())

	err = p.playChord(protocol.Chord{}, time.Millisecond)
	require.ErrorIs(t, err, ErrEmptyChord)
}
