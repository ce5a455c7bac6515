package engine

import (
	"sort"
	"time"
)

// ResolvedNote is one concrete (time, voice, pitch) hit within a loop
// cycle, offset from the cycle's anchor instant. Immutable once produced.
type ResolvedNote struct {
	Offset time.Duration
	Voice  int
	Pitch  uint8
}

// Resolve flattens a pattern against a voicing at a fixed tempo into a
// time-ordered schedule covering exactly one cycle, plus the cycle's loop
// duration. It is pure: no scheduler, no clock reads.
//
// Malformed events (bad delay fraction, out-of-range voice refs) are
// skipped individually and counted in skipped; the rest of the pattern
// still resolves. References to muted voices are a normal silent skip and
// are not counted.
func Resolve(p *Pattern, v Voicing, bpm float64) (notes []ResolvedNote, loopDur time.Duration, skipped int) {
	tr := Transport{BPM: bpm, Sig: p.Sig}
	loopDur = tr.MeasureDuration()
	whole := float64(tr.WholeNote())

	root := v.Root()
	cumulative := 0.0 // whole notes since cycle start

	for _, ev := range p.Events {
		if ev.Delay.Validate() != nil {
			skipped++
			continue
		}
		cumulative += ev.Delay.WholeNotes()
		base := time.Duration(cumulative * whole)

		voices := make([]int, 0, len(ev.Voices))
		for _, ref := range ev.Voices {
			idx := ref.Offset
			if ref.Kind == VoiceRootRelative {
				if root < 0 {
					continue // fully muted voicing: nothing to anchor on
				}
				idx = root + ref.Offset
				if idx < 0 || idx >= len(v) {
					// Narrow voicings legitimately push relative refs off
					// the end; treat like a muted voice.
					continue
				}
			}
			if idx < 0 || idx >= len(v) {
				skipped++
				continue
			}
			if !v.Sounding(idx) {
				continue
			}
			voices = append(voices, idx)
		}
		if len(voices) == 0 {
			continue
		}

		if ev.Strum != nil {
			// Fixed physical order regardless of how voices were listed:
			// Down sweeps from the highest voice index, Up from the lowest.
			sort.Ints(voices)
			if ev.Strum.Direction == StrumDown {
				reverseInts(voices)
			}
			for pos, idx := range voices {
				notes = append(notes, ResolvedNote{
					Offset: base + time.Duration(pos)*ev.Strum.Offset,
					Voice:  idx,
					Pitch:  uint8(v[idx]),
				})
			}
		} else {
			for _, idx := range voices {
				notes = append(notes, ResolvedNote{Offset: base, Voice: idx, Pitch: uint8(v[idx])})
			}
		}
	}

	// Strum tails may spill past a later event's base time; keep the
	// emission order monotone.
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Offset < notes[j].Offset
	})
	return notes, loopDur, skipped
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
