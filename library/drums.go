package library

import "go-strum/engine"

// Drum slot layout, shared by every kit. Patterns address slots, the kit
// maps slots to the notes a particular machine expects.
const (
	SlotKick = iota
	SlotSnare
	SlotClosedHH
	SlotOpenHH
	SlotLowTom
	SlotMidTom
	SlotHighTom
	SlotCrash
	SlotRide
	SlotClap
	SlotRim
	SlotCowbell
	SlotClave
	SlotMaracas
	SlotLowConga
	SlotHighConga
)

// DrumKit maps the 16 slots to MIDI notes.
type DrumKit struct {
	Name  string
	Notes [16]uint8
}

// KitSet implements engine.KitSource.
type KitSet map[string]DrumKit

// BuiltinKits returns the known kit mappings.
func BuiltinKits() KitSet {
	return KitSet{
		"gm": {
			Name: "General MIDI",
			Notes: [16]uint8{
				36, // Kick
				38, // Snare
				42, // Closed HH
				46, // Open HH
				41, // Low Tom
				43, // Mid Tom
				45, // High Tom
				49, // Crash
				51, // Ride
				39, // Clap
				37, // Rimshot
				56, // Cowbell
				75, // Clave
				70, // Maracas
				64, // Low Conga
				63, // High Conga
			},
		},
		"rd8": {
			Name: "Behringer RD-8",
			Notes: [16]uint8{
				36, // Kick (BD)
				40, // Snare (SD)
				42, // Closed HH (CH)
				46, // Open HH (OH)
				45, // Low Tom (LT)
				48, // Mid Tom (MT)
				50, // High Tom (HT)
				49, // Crash (CY)
				51, // Ride (RD)
				39, // Clap (CP)
				37, // Rimshot (RS)
				56, // Cowbell (CB)
				75, // Clave
				70, // Maracas (MA)
				64, // Low Conga
				63, // High Conga
			},
		},
	}
}

// Kit returns the slot voicing for a kit name.
func (k KitSet) Kit(name string) (engine.Voicing, bool) {
	kit, ok := k[name]
	if !ok {
		return nil, false
	}
	v := make(engine.Voicing, len(kit.Notes))
	for i, n := range kit.Notes {
		v[i] = int(n)
	}
	return v, true
}
