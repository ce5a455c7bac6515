package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger { return zap.NewNop() }

// fakeSink records every note call with its arrival time. It stands in
// for the MIDI port in every engine test.
type fakeSink struct {
	mu     sync.Mutex
	events []sinkEvent
	panics int
}

type sinkEvent struct {
	on       bool
	channel  uint8
	key      uint8
	velocity uint8
	at       time.Time
}

func (f *fakeSink) NoteOn(channel, key, velocity uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sinkEvent{on: true, channel: channel, key: key, velocity: velocity, at: time.Now()})
}

func (f *fakeSink) NoteOff(channel, key uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sinkEvent{on: false, channel: channel, key: key, at: time.Now()})
}

func (f *fakeSink) PanicAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics++
}

func (f *fakeSink) all() []sinkEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sinkEvent, len(f.events))
	copy(out, f.events)
	return out
}

// ons returns the note-on events for one channel, in arrival order.
func (f *fakeSink) ons(channel uint8) []sinkEvent {
	var out []sinkEvent
	for _, e := range f.all() {
		if e.on && e.channel == channel {
			out = append(out, e)
		}
	}
	return out
}

// balance returns note-ons minus note-offs per key on a channel. All
// zeros means no stuck notes.
func (f *fakeSink) balance(channel uint8) map[uint8]int {
	counts := make(map[uint8]int)
	for _, e := range f.all() {
		if e.channel != channel {
			continue
		}
		if e.on {
			counts[e.key]++
		} else {
			counts[e.key]--
		}
	}
	return counts
}

func allBalanced(counts map[uint8]int) bool {
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// fakeConfig hands the engine a fixed settings snapshot.
type fakeConfig struct {
	mu sync.Mutex
	st Settings
}

func (c *fakeConfig) Performance() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

func (c *fakeConfig) set(st Settings) {
	c.mu.Lock()
	c.st = st
	c.mu.Unlock()
}

// fakeChords ignores transposition; tests bake pitches into the voicing.
type fakeChords map[string]Voicing

func (f fakeChords) Voicing(name string, transpose, capo int) (Voicing, bool) {
	v, ok := f[name]
	return v, ok
}

type fakePatterns map[string]*Pattern

func (f fakePatterns) Pattern(id string, sig TimeSignature) (*Pattern, bool) {
	p, ok := f[id]
	if !ok || p.Sig != sig {
		return nil, false
	}
	return p, ok
}

type fakeKits map[string]Voicing

func (f fakeKits) Kit(name string) (Voicing, bool) {
	v, ok := f[name]
	return v, ok
}

// settle waits for wall time to pass and then runs a barrier through the
// dispatcher, so everything due before the deadline has fired.
func settle(d *Dispatcher, dur time.Duration) {
	time.Sleep(dur)
	d.Call(func() {})
}
