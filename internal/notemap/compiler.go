// Package notemap compiles notemap scores into chord sequences.
//
// A notemap is read in sections separated by blank lines. Each staff line of
// a section holds one octave:
//
//	RH: 5|--e----e--|
//	RH: 4|eg-ebag-ab|
//
// Columns that line up across the staff lines of a section sound together as
// one chord. Lowercase letters are natural notes, uppercase letters (A C D F
// G) are sharps and '-' is a rest. Lines starting with '#' are comments and
// anything up to the last ':' is a label.
package notemap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zing-audio/zing/internal/protocol"
)

var (
	ErrOctaveNotSpecified = errors.New("no octave specified")
	ErrInvalidOctave      = errors.New("invalid octave")
	ErrOctaveDoesNotExist = errors.New("octave does not exist")
	ErrNotesNotSpecified  = errors.New("no notes specified")
	ErrNoteDoesNotExist   = errors.New("note does not exist")
)

// Error locates a compile failure in the source text. Line and Column are
// 1-based; Column is 0 when the failure concerns the whole line.
type Error struct {
	Line   int
	Column int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d", e.Line)
	if e.Column > 0 {
		fmt.Fprintf(&b, " column %d", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

type line struct {
	number int
	text   string
}

// Compile parses a notemap and returns its compressed chord sequence. Rest
// columns are folded into the extended duration of the chord before them.
func Compile(text string, chordDuration time.Duration) ([]protocol.Chord, error) {
	var chords []protocol.Chord
	for _, section := range splitSections(text) {
		sectionChords, err := compileSection(section)
		if err != nil {
			return nil, err
		}
		chords = append(chords, sectionChords...)
	}
	return compress(chords, chordDuration), nil
}

// splitSections normalizes line endings and groups lines separated by blank
// lines.
func splitSections(text string) [][]line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var sections [][]line
	var current []line
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			if len(current) > 0 {
				sections = append(sections, current)
				current = nil
			}
			continue
		}
		current = append(current, line{number: i + 1, text: trimmed})
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func compileSection(lines []line) ([]protocol.Chord, error) {
	var chords []protocol.Chord
	for _, ln := range lines {
		if strings.HasPrefix(ln.text, "#") {
			continue
		}
		staff := ln.text
		if i := strings.LastIndexByte(staff, ':'); i >= 0 {
			staff = staff[i+1:]
		}
		staff = strings.TrimSpace(staff)
		if strings.Count(staff, "|") != 2 {
			continue
		}

		fields := strings.SplitN(staff, "|", 3)
		octaveText := strings.TrimSpace(fields[0])
		notes := strings.TrimSpace(fields[1])
		if octaveText == "" {
			return nil, &Error{Line: ln.number, Err: ErrOctaveNotSpecified}
		}
		parsed, err := strconv.ParseUint(octaveText, 10, 64)
		if err != nil {
			return nil, &Error{Line: ln.number, Err: ErrInvalidOctave, Detail: strconv.Quote(octaveText)}
		}
		if notes == "" {
			return nil, &Error{Line: ln.number, Err: ErrNotesNotSpecified}
		}
		octave := Octaves
		if parsed < Octaves {
			octave = int(parsed)
		}

		for len(chords) < len(notes) {
			chords = append(chords, protocol.Chord{})
		}
		for col := 0; col < len(notes); col++ {
			if notes[col] == '-' {
				continue
			}
			freq, err := Frequency(notes[col], octave)
			if err != nil {
				detail := octaveText
				if errors.Is(err, ErrNoteDoesNotExist) {
					detail = strconv.QuoteRune(rune(notes[col]))
				}
				return nil, &Error{Line: ln.number, Column: col + 1, Err: err, Detail: detail}
			}
			chords[col].Notes = append(chords[col].Notes, freq)
		}
	}
	return chords, nil
}

// compress folds every empty chord after the first into the extended
// duration of the last chord with notes before it, then drops the empty
// chords. A leading empty chord and any rests directly after it are dropped
// without being folded anywhere, as are trailing rests.
func compress(chords []protocol.Chord, chordDuration time.Duration) []protocol.Chord {
	lastValid := 0
	var carry time.Duration
	for i := range chords {
		if i > 0 && len(chords[i].Notes) == 0 {
			carry += chordDuration
			continue
		}
		chords[lastValid].ExtendedDuration += carry
		carry = 0
		lastValid = i
	}

	out := chords[:0]
	for _, c := range chords {
		if len(c.Notes) > 0 {
			out = append(out, c)
		}
	}
	return out
}
