package zing

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zing-audio/zing/internal/notemap"
	"github.com/zing-audio/zing/internal/protocol"
)

// listen accepts a single connection and reports the command it carried.
func listen(t *testing.T) (string, <-chan protocol.Command) {
	t.Helper()
	dir, err := os.MkdirTemp("", "zing")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "c.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan protocol.Command, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		cmd, err := protocol.ReadCommand(conn, 1<<16)
		if err == nil {
			got <- cmd
		}
	}()
	return path, got
}

func received(t *testing.T, got <-chan protocol.Command) protocol.Command {
	t.Helper()
	select {
	case cmd := <-got:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("nothing received")
		return protocol.Command{}
	}
}

func TestPlayerPlayNotemap(t *testing.T) {
	path, got := listen(t)
	p := NewPlayer(WithSocket(path), WithChordDuration(50*time.Millisecond))
	assert.Equal(t, path, p.SocketPath())

	require.NoError(t, p.PlayNotemap(context.Background(), "4|a-|\n5|-a|"))

	cmd := received(t, got)
	require.Equal(t, protocol.KindPlay, cmd.Kind)
	assert.Equal(t, 50*time.Millisecond, cmd.Play.ChordDuration)
	assert.Equal(t, []Chord{{Notes: []uint16{440}}, {Notes: []uint16{880}}}, cmd.Play.Chords)
}

func TestPlayerTransport(t *testing.T) {
	for kind, send := range map[protocol.Kind]func(*Player) error{
		protocol.KindStop:   func(p *Player) error { return p.Stop(context.Background()) },
		protocol.KindPause:  func(p *Player) error { return p.Pause(context.Background()) },
		protocol.KindResume: func(p *Player) error { return p.Resume(context.Background()) },
	} {
		t.Run(kind.String(), func(t *testing.T) {
			path, got := listen(t)
			require.NoError(t, send(NewPlayer(WithSocket(path))))
			assert.Equal(t, kind, received(t, got).Kind)
		})
	}
}

func TestPlayerCompileErrorSendsNothing(t *testing.T) {
	p := NewPlayer(WithSocket(filepath.Join(t.TempDir(), "missing.sock")))

	err := p.PlayNotemap(context.Background(), "4|x|")
	assert.ErrorIs(t, err, notemap.ErrNoteDoesNotExist)

	err = p.PlayNotemap(context.Background(), "")
	assert.ErrorIs(t, err, protocol.ErrNoChordsProvided)
}

func TestPlayerWithoutDaemon(t *testing.T) {
	p := NewPlayer(WithSocket(filepath.Join(t.TempDir(), "missing.sock")))
	assert.Error(t, p.Stop(context.Background()))
}

func TestDefaultPlayerUsesConfiguredSocket(t *testing.T) {
	t.Setenv("ZING_SOCKET", "/tmp/elsewhere.sock")
	assert.Equal(t, "/tmp/elsewhere.sock", NewPlayer().SocketPath())
}
