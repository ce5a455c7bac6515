package engine

import "time"

// VoiceTracker owns the sounding state of one session's voices (the six
// guitar strings, or a drum kit's slots). Retriggering a voice always
// silences its previous pitch synchronously before the new note-on, so a
// string can never carry two overlapping notes, and every note-on it
// emits is matched by exactly one note-off.
//
// All methods run on the dispatcher goroutine only.
type VoiceTracker struct {
	sink    MidiSink
	disp    *Dispatcher
	channel uint8
	slots   []voiceSlot
}

type voiceSlot struct {
	pitch int // Muted when silent
	off   Handle
}

// NewVoiceTracker tracks `voices` slots emitting on one MIDI channel.
func NewVoiceTracker(sink MidiSink, disp *Dispatcher, channel uint8, voices int) *VoiceTracker {
	t := &VoiceTracker{sink: sink, disp: disp, channel: channel, slots: make([]voiceSlot, voices)}
	for i := range t.slots {
		t.slots[i].pitch = Muted
	}
	return t
}

// Trigger sounds pitch on a voice for hold, cutting off whatever the
// voice was playing first.
func (t *VoiceTracker) Trigger(voice int, pitch, velocity uint8, hold time.Duration) {
	if voice < 0 || voice >= len(t.slots) {
		return
	}
	slot := &t.slots[voice]
	if slot.pitch != Muted {
		t.disp.Cancel(slot.off)
		t.sink.NoteOff(t.channel, uint8(slot.pitch))
	}
	slot.pitch = int(pitch)
	t.sink.NoteOn(t.channel, pitch, velocity)
	slot.off = t.disp.At(time.Now().Add(hold), func() {
		t.release(voice, pitch)
	})
}

// release is the scheduled end of a note. The pitch check keeps a stale
// timer (already superseded by a retrigger) from double-releasing.
func (t *VoiceTracker) release(voice int, pitch uint8) {
	slot := &t.slots[voice]
	if slot.pitch != int(pitch) {
		return
	}
	t.sink.NoteOff(t.channel, pitch)
	slot.pitch = Muted
	slot.off = 0
}

// Panic force-releases every sounding voice and drops every pending
// note-off. The unconditional make-silence path for stop and teardown.
func (t *VoiceTracker) Panic() {
	for i := range t.slots {
		slot := &t.slots[i]
		if slot.off != 0 {
			t.disp.Cancel(slot.off)
			slot.off = 0
		}
		if slot.pitch != Muted {
			t.sink.NoteOff(t.channel, uint8(slot.pitch))
			slot.pitch = Muted
		}
	}
}

// Sounding reports how many voices currently carry a note.
func (t *VoiceTracker) Sounding() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].pitch != Muted {
			n++
		}
	}
	return n
}
