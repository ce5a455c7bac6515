// Package library holds the chord, pattern and drum kit sources the
// engine looks things up in: builtin tables merged with user YAML files.
package library

import (
	"sort"

	"go-strum/engine"
)

// FretDefinition is a chord shape in diagram order: index 0 is the 6th
// string (low E), index 5 the 1st (high E). MutedString marks an
// unplayed string.
type FretDefinition [6]int

// MutedString marks a string that is not played in a shape.
const MutedString = -1

// standardTuning is E2 A2 D3 G3 B3 E4, low to high.
var standardTuning = [6]int{40, 45, 50, 55, 59, 64}

// Voicing maps a shape to concrete MIDI pitches under a capo and a
// semitone transposition. Voice index follows string order: voice 0 is
// the low E string, so the first sounding voice is the chord's bass.
func (fd FretDefinition) Voicing(transpose, capo int) engine.Voicing {
	v := make(engine.Voicing, len(fd))
	for i, fret := range fd {
		if fret < 0 {
			v[i] = engine.Muted
			continue
		}
		pitch := standardTuning[i] + fret + capo + transpose
		if pitch < 0 {
			pitch = 0
		}
		if pitch > 127 {
			pitch = 127
		}
		v[i] = pitch
	}
	return v
}

// builtinChords covers the usual open and barre shapes. User files merge
// over these by name.
var builtinChords = map[string]FretDefinition{
	"C":     {MutedString, 3, 2, 0, 1, 0},
	"D":     {MutedString, MutedString, 0, 2, 3, 2},
	"E":     {0, 2, 2, 1, 0, 0},
	"F":     {1, 3, 3, 2, 1, 1},
	"G":     {3, 2, 0, 0, 0, 3},
	"A":     {MutedString, 0, 2, 2, 2, 0},
	"B":     {MutedString, 2, 4, 4, 4, 2},
	"Am":    {MutedString, 0, 2, 2, 1, 0},
	"Bm":    {MutedString, 2, 4, 4, 3, 2},
	"Dm":    {MutedString, MutedString, 0, 2, 3, 1},
	"Em":    {0, 2, 2, 0, 0, 0},
	"Fm":    {1, 3, 3, 1, 1, 1},
	"C7":    {MutedString, 3, 2, 3, 1, 0},
	"D7":    {MutedString, MutedString, 0, 2, 1, 2},
	"E7":    {0, 2, 0, 1, 0, 0},
	"G7":    {3, 2, 0, 0, 0, 1},
	"A7":    {MutedString, 0, 2, 0, 2, 0},
	"B7":    {MutedString, 2, 1, 2, 0, 2},
	"Cmaj7": {MutedString, 3, 2, 0, 0, 0},
	"Fmaj7": {MutedString, MutedString, 3, 2, 1, 0},
	"Am7":   {MutedString, 0, 2, 0, 1, 0},
	"Em7":   {0, 2, 0, 0, 0, 0},
}

// Chords is the merged chord source handed to the engine.
type Chords struct {
	defs map[string]FretDefinition
}

// NewChords starts from the builtin shapes.
func NewChords() *Chords {
	defs := make(map[string]FretDefinition, len(builtinChords))
	for name, fd := range builtinChords {
		defs[name] = fd
	}
	return &Chords{defs: defs}
}

// Merge overlays user definitions; user entries win by name.
func (c *Chords) Merge(defs map[string]FretDefinition) {
	for name, fd := range defs {
		c.defs[name] = fd
	}
}

// Lookup returns the raw shape.
func (c *Chords) Lookup(name string) (FretDefinition, bool) {
	fd, ok := c.defs[name]
	return fd, ok
}

// Voicing implements engine.ChordSource.
func (c *Chords) Voicing(name string, transpose, capo int) (engine.Voicing, bool) {
	fd, ok := c.defs[name]
	if !ok {
		return nil, false
	}
	return fd.Voicing(transpose, capo), true
}

// Names lists the known chords, sorted, for UI key binding.
func (c *Chords) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
