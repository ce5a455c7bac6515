package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fraction is a tempo-relative delay, expressed as a fraction of a whole
// note ("1/8", "3/16"). Pattern events carry these instead of wall-clock
// times so a pattern plays correctly at any tempo.
type Fraction struct {
	Num int
	Den int
}

// ParseFraction parses "n/d". A bare integer is taken as n/1.
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fraction{}, fmt.Errorf("empty fraction")
	}
	num, den := s, "1"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, den = s[:i], s[i+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Fraction{}, fmt.Errorf("fraction %q: %w", s, err)
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return Fraction{}, fmt.Errorf("fraction %q: %w", s, err)
	}
	f := Fraction{Num: n, Den: d}
	if err := f.Validate(); err != nil {
		return Fraction{}, err
	}
	return f, nil
}

// MustFraction is for builtin pattern tables.
func MustFraction(s string) Fraction {
	f, err := ParseFraction(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Fraction) Validate() error {
	if f.Den <= 0 {
		return fmt.Errorf("fraction %d/%d: denominator must be positive", f.Num, f.Den)
	}
	if f.Num < 0 {
		return fmt.Errorf("fraction %d/%d: negative delay", f.Num, f.Den)
	}
	return nil
}

// WholeNotes is the fraction's value as a float count of whole notes.
func (f Fraction) WholeNotes() float64 {
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// VoiceRefKind tags the two ways a pattern event can name a voice.
type VoiceRefKind int

const (
	// VoiceDirect addresses a voice by its index.
	VoiceDirect VoiceRefKind = iota
	// VoiceRootRelative addresses the first sounding voice plus an offset.
	VoiceRootRelative
)

// VoiceRef names one voice within a pattern event. It is resolved to a
// concrete voice index against the current voicing, once, at trigger time.
type VoiceRef struct {
	Kind   VoiceRefKind
	Offset int
}

// Direct references voice i.
func Direct(i int) VoiceRef { return VoiceRef{Kind: VoiceDirect, Offset: i} }

// RootRelative references the first non-muted voice plus k.
func RootRelative(k int) VoiceRef { return VoiceRef{Kind: VoiceRootRelative, Offset: k} }

func (r VoiceRef) String() string {
	if r.Kind == VoiceRootRelative {
		if r.Offset == 0 {
			return "root"
		}
		return fmt.Sprintf("root+%d", r.Offset)
	}
	return strconv.Itoa(r.Offset)
}

// StrumDirection orders the voices of a strummed event by physical
// position: Down walks voice indices high to low, Up low to high.
type StrumDirection int

const (
	StrumDown StrumDirection = iota
	StrumUp
)

// Strum marks an event as strummed. Presence of a direction is the sole
// discriminator between a strum and a simultaneous hit.
type Strum struct {
	Direction StrumDirection
	Offset    time.Duration // gap between successive voices
}

// PatternEvent is one timed entry in a pattern: wait Delay after the
// previous event, then sound the referenced voices.
type PatternEvent struct {
	Delay  Fraction
	Voices []VoiceRef
	Strum  *Strum // nil = simultaneous
}

// Pattern is an ordered list of timed events covering one loop cycle.
// Its total duration is one measure of Sig at the triggering tempo; it is
// implied, never stored.
type Pattern struct {
	ID     string
	Name   string
	Sig    TimeSignature
	Events []PatternEvent
	Once   bool // play a single cycle, then stop (one-shot strums)
}

// Voicing maps voice index to MIDI pitch; Muted marks silent voices.
// For chords it is precomputed from a fret definition plus capo and
// transpose; for drums it is the kit's slot-to-note map.
type Voicing []int

// Muted marks a voice with no pitch assigned.
const Muted = -1

// Root returns the index of the first non-muted voice, or -1 if the
// voicing is entirely muted.
func (v Voicing) Root() int {
	for i, p := range v {
		if p != Muted {
			return i
		}
	}
	return -1
}

// Sounding reports whether voice i carries a pitch.
func (v Voicing) Sounding(i int) bool {
	return i >= 0 && i < len(v) && v[i] != Muted
}
