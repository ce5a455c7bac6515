package library

import (
	"sort"
	"time"

	"go-strum/engine"
)

// Patterns is a pattern source keyed by id; an id may carry one variant
// per time signature. Implements engine.PatternSource.
type Patterns struct {
	byID map[string][]*engine.Pattern
}

// NewPatterns builds a source from the given patterns.
func NewPatterns(pats ...*engine.Pattern) *Patterns {
	p := &Patterns{byID: make(map[string][]*engine.Pattern)}
	for _, pat := range pats {
		p.Add(pat)
	}
	return p
}

// Add registers a pattern; a later pattern with the same id and signature
// replaces the earlier one (user files override builtins).
func (p *Patterns) Add(pat *engine.Pattern) {
	variants := p.byID[pat.ID]
	for i, existing := range variants {
		if existing.Sig == pat.Sig {
			variants[i] = pat
			return
		}
	}
	p.byID[pat.ID] = append(variants, pat)
}

// Pattern returns the variant of id matching sig.
func (p *Patterns) Pattern(id string, sig engine.TimeSignature) (*engine.Pattern, bool) {
	for _, pat := range p.byID[id] {
		if pat.Sig == sig {
			return pat, true
		}
	}
	return nil, false
}

// IDs lists the ids that have a variant for sig, sorted.
func (p *Patterns) IDs(sig engine.TimeSignature) []string {
	var ids []string
	for id, variants := range p.byID {
		for _, pat := range variants {
			if pat.Sig == sig {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

var (
	fourFour   = engine.TimeSignature{Beats: 4, Unit: 4}
	threeFour  = engine.TimeSignature{Beats: 3, Unit: 4}
	allStrings = []engine.VoiceRef{
		engine.Direct(0), engine.Direct(1), engine.Direct(2),
		engine.Direct(3), engine.Direct(4), engine.Direct(5),
	}
)

func sweep(delay string, dir engine.StrumDirection) engine.PatternEvent {
	return engine.PatternEvent{
		Delay:  engine.MustFraction(delay),
		Voices: allStrings,
		Strum:  &engine.Strum{Direction: dir, Offset: 15 * time.Millisecond},
	}
}

func pick(delay string, refs ...engine.VoiceRef) engine.PatternEvent {
	return engine.PatternEvent{Delay: engine.MustFraction(delay), Voices: refs}
}

func hit(delay string, slots ...int) engine.PatternEvent {
	refs := make([]engine.VoiceRef, len(slots))
	for i, s := range slots {
		refs[i] = engine.Direct(s)
	}
	return engine.PatternEvent{Delay: engine.MustFraction(delay), Voices: refs}
}

// BuiltinStrums are the stock chord patterns.
func BuiltinStrums() *Patterns {
	return NewPatterns(
		&engine.Pattern{
			ID: "down", Name: "Down Strums", Sig: fourFour,
			Events: []engine.PatternEvent{
				sweep("0/4", engine.StrumDown),
				sweep("1/4", engine.StrumDown),
				sweep("1/4", engine.StrumDown),
				sweep("1/4", engine.StrumDown),
			},
		},
		// The D-D-U-U-D-U campfire strum on an eighth-note grid.
		&engine.Pattern{
			ID: "folk", Name: "Folk Strum", Sig: fourFour,
			Events: []engine.PatternEvent{
				sweep("0/8", engine.StrumDown),
				sweep("2/8", engine.StrumDown),
				sweep("1/8", engine.StrumUp),
				sweep("2/8", engine.StrumUp),
				sweep("1/8", engine.StrumDown),
				sweep("1/8", engine.StrumUp),
			},
		},
		// Picked arpeggio: bass root, then up and back across the treble
		// strings. Root-relative so it follows each chord's bass string.
		&engine.Pattern{
			ID: "arp", Name: "Arpeggio", Sig: fourFour,
			Events: []engine.PatternEvent{
				pick("0/8", engine.RootRelative(0)),
				pick("1/8", engine.RootRelative(2)),
				pick("1/8", engine.RootRelative(3)),
				pick("1/8", engine.RootRelative(4)),
				pick("1/8", engine.RootRelative(5)),
				pick("1/8", engine.RootRelative(4)),
				pick("1/8", engine.RootRelative(3)),
				pick("1/8", engine.RootRelative(2)),
			},
		},
		// Bass note on one, strums on two and three.
		&engine.Pattern{
			ID: "waltz", Name: "Waltz Strum", Sig: threeFour,
			Events: []engine.PatternEvent{
				pick("0/4", engine.RootRelative(0)),
				sweep("1/4", engine.StrumDown),
				sweep("1/4", engine.StrumDown),
			},
		},
	)
}

// BuiltinDrums are the stock accompaniment patterns over the shared slot
// layout.
func BuiltinDrums() *Patterns {
	return NewPatterns(
		// Straight rock: eighth hats, kick on 1 and 3, snare on 2 and 4.
		&engine.Pattern{
			ID: "rock", Name: "Rock", Sig: fourFour,
			Events: []engine.PatternEvent{
				hit("0/8", SlotClosedHH, SlotKick),
				hit("1/8", SlotClosedHH),
				hit("1/8", SlotClosedHH, SlotSnare),
				hit("1/8", SlotClosedHH),
				hit("1/8", SlotClosedHH, SlotKick),
				hit("1/8", SlotClosedHH),
				hit("1/8", SlotClosedHH, SlotSnare),
				hit("1/8", SlotClosedHH),
			},
		},
		// Shuffle: swung hats on a triplet grid (1/6 + 1/12 of a whole
		// note per beat), backbeat snare.
		&engine.Pattern{
			ID: "shuffle", Name: "Shuffle", Sig: fourFour,
			Events: []engine.PatternEvent{
				hit("0/12", SlotClosedHH, SlotKick),
				hit("2/12", SlotClosedHH),
				hit("1/12", SlotClosedHH, SlotSnare),
				hit("2/12", SlotClosedHH),
				hit("1/12", SlotClosedHH, SlotKick),
				hit("2/12", SlotClosedHH),
				hit("1/12", SlotClosedHH, SlotSnare),
				hit("2/12", SlotClosedHH),
			},
		},
		&engine.Pattern{
			ID: "waltz", Name: "Waltz", Sig: threeFour,
			Events: []engine.PatternEvent{
				hit("0/4", SlotKick, SlotRide),
				hit("1/4", SlotSnare, SlotRide),
				hit("1/4", SlotSnare, SlotRide),
			},
		},
	)
}
