// Package zing compiles notemaps and drives a running zingd daemon.
//
// A notemap is a plain-text score made of staff lines such as
//
//	4|c-e-g---|
//	5|--------c|
//
// Lines in the same section play together; sections separated by blank
// lines play one after another. See internal/notemap for the full format.
package zing

import (
	"context"
	"io"
	"time"

	"github.com/zing-audio/zing/internal/midiexport"
	"github.com/zing-audio/zing/internal/notemap"
	"github.com/zing-audio/zing/internal/protocol"
)

// DefaultChordDuration is the time base used by the command line client.
const DefaultChordDuration = 100 * time.Millisecond

type (
	Chord    = protocol.Chord
	PlayData = protocol.PlayData
	Command  = protocol.Command
)

// Compile turns notemap text into play data ready to send to the daemon.
func Compile(text string, chordDuration time.Duration) (PlayData, error) {
	chords, err := notemap.Compile(text, chordDuration)
	if err != nil {
		return PlayData{}, err
	}
	return protocol.NewPlayData(chordDuration, chords)
}

// Send delivers a single command to the daemon listening on socketPath.
func Send(ctx context.Context, socketPath string, cmd Command) error {
	return protocol.Send(ctx, socketPath, cmd)
}

// ExportMIDI writes data as a Standard MIDI File.
func ExportMIDI(w io.Writer, data PlayData) error {
	return midiexport.Write(w, data)
}
