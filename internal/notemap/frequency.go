package notemap

// Octaves is the number of octaves in the frequency table (0 through 8).
const Octaves = 9

// frequencies maps a notemap letter to its frequency per octave in Hz.
// Lowercase letters are naturals, uppercase letters the sharp above them.
var frequencies = map[byte][Octaves]uint16{
	'c': {16, 32, 65, 130, 261, 523, 1046, 2093, 4186},
	'C': {17, 34, 69, 138, 277, 554, 1108, 2217, 4434},
	'd': {18, 36, 73, 146, 293, 587, 1174, 2349, 4698},
	'D': {19, 38, 77, 155, 311, 622, 1244, 2489, 4978},
	'e': {20, 41, 82, 164, 329, 659, 1318, 2637, 5274},
	'f': {21, 43, 87, 174, 349, 698, 1396, 2793, 5587},
	'F': {23, 46, 92, 185, 369, 739, 1479, 2959, 5919},
	'g': {24, 49, 98, 196, 392, 783, 1567, 3135, 6271},
	'G': {25, 51, 103, 207, 415, 830, 1661, 3322, 6644},
	'a': {27, 55, 110, 220, 440, 880, 1760, 3520, 7040},
	'A': {29, 58, 116, 233, 466, 932, 1864, 3729, 7458},
	'b': {30, 61, 123, 246, 493, 987, 1975, 3951, 7902},
}

// Frequency returns the frequency of note in the given octave.
func Frequency(note byte, octave int) (uint16, error) {
	if octave < 0 || octave >= Octaves {
		return 0, ErrOctaveDoesNotExist
	}
	row, ok := frequencies[note]
	if !ok {
		return 0, ErrNoteDoesNotExist
	}
	return row[octave], nil
}
