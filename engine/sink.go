package engine

import "time"

// RawSink is the transport-level note interface: immediate sends only.
// The MIDI output port implements it; tests use an in-memory recorder.
// Both playback sessions write to one shared sink concurrently; the sink
// serializes physical transmission.
type RawSink interface {
	NoteOn(channel, key, velocity uint8)
	NoteOff(channel, key uint8)
	// PanicAll silences everything on every channel, regardless of what
	// this process thinks is sounding.
	PanicAll()
}

// MidiSink extends RawSink with dispatcher-backed scheduled sends.
type MidiSink interface {
	RawSink
	ScheduleNoteOn(channel, key, velocity uint8, at time.Time) Handle
	ScheduleNoteOff(channel, key uint8, at time.Time) Handle
	Cancel(Handle)
}

type scheduledSink struct {
	RawSink
	disp *Dispatcher
}

// NewScheduledSink derives the scheduled sends from the dispatcher, so a
// raw port (or a test recorder) is all a backend has to provide.
func NewScheduledSink(raw RawSink, disp *Dispatcher) MidiSink {
	return &scheduledSink{RawSink: raw, disp: disp}
}

func (s *scheduledSink) ScheduleNoteOn(channel, key, velocity uint8, at time.Time) Handle {
	return s.disp.At(at, func() { s.NoteOn(channel, key, velocity) })
}

func (s *scheduledSink) ScheduleNoteOff(channel, key uint8, at time.Time) Handle {
	return s.disp.At(at, func() { s.NoteOff(channel, key) })
}

func (s *scheduledSink) Cancel(h Handle) {
	s.disp.Cancel(h)
}
