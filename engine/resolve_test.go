package engine

import (
	"testing"
	"time"
)

func TestResolveDelaysAt120(t *testing.T) {
	p := &Pattern{
		ID:  "two-hits",
		Sig: fourFour,
		Events: []PatternEvent{
			{Delay: MustFraction("0"), Voices: []VoiceRef{Direct(0)}},
			{Delay: MustFraction("1/4"), Voices: []VoiceRef{Direct(1)}},
		},
	}
	v := Voicing{40, 45}

	notes, loopDur, skipped := Resolve(p, v, 120)
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if loopDur != 2*time.Second {
		t.Fatalf("loopDur = %v, want 2s", loopDur)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(notes))
	}
	if notes[0].Offset != 0 || notes[0].Pitch != 40 {
		t.Errorf("first note = %+v, want offset 0 pitch 40", notes[0])
	}
	if notes[1].Offset != 500*time.Millisecond || notes[1].Pitch != 45 {
		t.Errorf("second note = %+v, want offset 500ms pitch 45", notes[1])
	}
}

func TestResolveStrumDownStaggers(t *testing.T) {
	p := &Pattern{
		ID:  "strum",
		Sig: fourFour,
		Events: []PatternEvent{
			{
				Delay:  MustFraction("1/4"),
				Voices: []VoiceRef{Direct(0), Direct(2), Direct(4)},
				Strum:  &Strum{Direction: StrumDown, Offset: 20 * time.Millisecond},
			},
		},
	}
	v := Voicing{40, 45, 50, 55, 59, 64}

	notes, _, skipped := Resolve(p, v, 120)
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(notes) != 3 {
		t.Fatalf("got %d notes, want 3", len(notes))
	}
	base := 500 * time.Millisecond
	want := []ResolvedNote{
		{Offset: base, Voice: 4, Pitch: 59},
		{Offset: base + 20*time.Millisecond, Voice: 2, Pitch: 50},
		{Offset: base + 40*time.Millisecond, Voice: 0, Pitch: 40},
	}
	for i, w := range want {
		if notes[i] != w {
			t.Errorf("note %d = %+v, want %+v", i, notes[i], w)
		}
	}
}

func TestResolveStrumUpOrdersLowFirst(t *testing.T) {
	p := &Pattern{
		ID:  "up",
		Sig: fourFour,
		Events: []PatternEvent{
			{
				Delay:  MustFraction("0"),
				Voices: []VoiceRef{Direct(3), Direct(1)},
				Strum:  &Strum{Direction: StrumUp, Offset: 10 * time.Millisecond},
			},
		},
	}
	v := Voicing{40, 45, 50, 55}

	notes, _, _ := Resolve(p, v, 120)
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(notes))
	}
	if notes[0].Voice != 1 || notes[1].Voice != 3 {
		t.Errorf("voices = %d,%d, want 1,3", notes[0].Voice, notes[1].Voice)
	}
}

func TestResolveRootRelative(t *testing.T) {
	p := &Pattern{
		ID:  "arp",
		Sig: fourFour,
		Events: []PatternEvent{
			{Delay: MustFraction("0"), Voices: []VoiceRef{RootRelative(0)}},
			{Delay: MustFraction("1/4"), Voices: []VoiceRef{RootRelative(2)}},
		},
	}
	// Voices 0 and 1 muted: root is index 2.
	v := Voicing{Muted, Muted, 50, 55, 59, 64}

	notes, _, skipped := Resolve(p, v, 120)
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2", len(notes))
	}
	if notes[0].Voice != 2 || notes[0].Pitch != 50 {
		t.Errorf("root note = %+v, want voice 2 pitch 50", notes[0])
	}
	if notes[1].Voice != 4 || notes[1].Pitch != 59 {
		t.Errorf("root+2 note = %+v, want voice 4 pitch 59", notes[1])
	}
}

func TestResolveRootRelativeOffEndIsSilent(t *testing.T) {
	p := &Pattern{
		ID:  "narrow",
		Sig: fourFour,
		Events: []PatternEvent{
			{Delay: MustFraction("0"), Voices: []VoiceRef{RootRelative(5)}},
		},
	}
	v := Voicing{Muted, Muted, 50, 55}

	notes, _, skipped := Resolve(p, v, 120)
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0 (relative refs past the end are silent)", skipped)
	}
	if len(notes) != 0 {
		t.Errorf("got %d notes, want 0", len(notes))
	}
}

func TestResolveSkipsMutedAndCountsMalformed(t *testing.T) {
	p := &Pattern{
		ID:  "messy",
		Sig: fourFour,
		Events: []PatternEvent{
			// Muted voice: silent skip, not counted.
			{Delay: MustFraction("0"), Voices: []VoiceRef{Direct(1)}},
			// Direct out of range: counted malformed.
			{Delay: MustFraction("1/4"), Voices: []VoiceRef{Direct(9), Direct(0)}},
			// Bad delay: whole event counted malformed.
			{Delay: Fraction{Num: 1, Den: 0}, Voices: []VoiceRef{Direct(0)}},
		},
	}
	v := Voicing{40, Muted, 50}

	notes, _, skipped := Resolve(p, v, 120)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	if notes[0].Voice != 0 || notes[0].Offset != 500*time.Millisecond {
		t.Errorf("surviving note = %+v, want voice 0 at 500ms", notes[0])
	}
}

func TestResolveFullyMutedVoicingDropsRelativeRefs(t *testing.T) {
	p := &Pattern{
		ID:  "silent",
		Sig: fourFour,
		Events: []PatternEvent{
			{Delay: MustFraction("0"), Voices: []VoiceRef{RootRelative(0)}},
		},
	}
	notes, _, skipped := Resolve(p, Voicing{Muted, Muted}, 120)
	if len(notes) != 0 || skipped != 0 {
		t.Errorf("got %d notes, %d skipped, want 0 and 0", len(notes), skipped)
	}
}

func TestResolveOffsetsMonotone(t *testing.T) {
	// A long strum tail spills past the next event's base offset; the
	// resolved schedule must still come back time-ordered.
	p := &Pattern{
		ID:  "spill",
		Sig: fourFour,
		Events: []PatternEvent{
			{
				Delay:  MustFraction("0"),
				Voices: []VoiceRef{Direct(0), Direct(1), Direct(2), Direct(3)},
				Strum:  &Strum{Direction: StrumUp, Offset: 300 * time.Millisecond},
			},
			{Delay: MustFraction("1/4"), Voices: []VoiceRef{Direct(5)}},
		},
	}
	v := Voicing{40, 45, 50, 55, 59, 64}

	notes, _, _ := Resolve(p, v, 120)
	for i := 1; i < len(notes); i++ {
		if notes[i].Offset < notes[i-1].Offset {
			t.Fatalf("offsets not monotone: %v after %v", notes[i].Offset, notes[i-1].Offset)
		}
	}
}

func TestResolveLoopDurationTracksSignature(t *testing.T) {
	p := &Pattern{ID: "waltz", Sig: TimeSignature{Beats: 3, Unit: 4}}
	_, loopDur, _ := Resolve(p, Voicing{40}, 120)
	if loopDur != 1500*time.Millisecond {
		t.Errorf("loopDur = %v, want 1.5s", loopDur)
	}
}
