package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// MIDI channel plan: guitar on 1, drums on 10 (0-based 0 and 9).
const (
	GuitarChannel uint8 = 0
	DrumChannel   uint8 = 9
	GuitarVoices        = 6
	DrumVoices          = 16
)

// clickNote is the count-in click: GM side stick.
const clickNote uint8 = 37

// strumGap is the per-string spacing of a one-shot strum.
const strumGap = 12 * time.Millisecond

// Settings is the performance configuration read at trigger time. It is
// deliberately not streamed into in-flight schedules: a running loop
// keeps the tempo it was anchored with.
type Settings struct {
	Tempo     float64
	Sig       TimeSignature
	Quantize  QuantizeMode
	Velocity  uint8
	Hold      time.Duration
	Transpose int
	Capo      int
	CountIn   int
	Kit       string
}

// ConfigSource supplies a settings snapshot per trigger.
type ConfigSource interface {
	Performance() Settings
}

// ChordSource turns a chord name into a voicing under the given
// transposition. The fret-to-pitch math lives with the library.
type ChordSource interface {
	Voicing(name string, transpose, capo int) (Voicing, bool)
}

// PatternSource looks up a pattern compatible with a time signature.
type PatternSource interface {
	Pattern(id string, sig TimeSignature) (*Pattern, bool)
}

// KitSource maps a drum kit name to its slot voicing.
type KitSource interface {
	Kit(name string) (Voicing, bool)
}

// Libraries bundles the lookup collaborators handed to the engine.
type Libraries struct {
	Chords ChordSource
	Strums PatternSource
	Drums  PatternSource
	Kits   KitSource
}

// Status is the read-only view published to the UI. A few milliseconds
// stale is fine; it is rebuilt on every engine-side change.
type Status struct {
	Tempo    float64
	Sig      TimeSignature
	Quantize QuantizeMode

	ChordPlaying bool
	DrumsPlaying bool
	CountIn      int // beats remaining, 0 when not counting in

	Beat    int
	Measure int

	Chord       string
	QueuedChord string
	DrumPattern string
}

// Engine is the performance front door. Every operation posts into the
// dispatcher loop, so UI goroutines never touch session or voice state
// directly.
type Engine struct {
	disp *Dispatcher
	sink MidiSink
	cfg  ConfigSource
	libs Libraries
	log  *zap.Logger

	chord *session
	drums *session

	mu     sync.RWMutex
	status Status

	// UpdateChan pulses (capacity 1, never blocks) whenever the
	// published status changed.
	UpdateChan chan struct{}
}

// New wires the engine onto a raw sink. A nil logger disables logging.
func New(raw RawSink, libs Libraries, cfg ConfigSource, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	disp := NewDispatcher()
	sink := NewScheduledSink(raw, disp)
	e := &Engine{
		disp:       disp,
		sink:       sink,
		cfg:        cfg,
		libs:       libs,
		log:        log,
		UpdateChan: make(chan struct{}, 1),
	}
	e.chord = newSession("chord", disp, sink,
		NewVoiceTracker(sink, disp, GuitarChannel, GuitarVoices),
		DrumChannel, clickNote, log, e.publish)
	e.drums = newSession("drums", disp, sink,
		NewVoiceTracker(sink, disp, DrumChannel, DrumVoices),
		DrumChannel, clickNote, log, e.publish)
	disp.Post(e.publish)
	return e
}

// Close stops everything and tears down the dispatch loop.
func (e *Engine) Close() {
	e.StopAll()
	e.disp.Close()
}

// Status returns the latest published snapshot.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Refresh republishes the snapshot (after a config edit).
func (e *Engine) Refresh() {
	e.disp.Post(e.publish)
}

// TriggerChord plays chord with the given strum pattern. If the chord
// session is already playing, the pattern is staged for the next cycle
// boundary; otherwise it starts at the quantized instant relative to the
// drum loop, or immediately when no drums run.
func (e *Engine) TriggerChord(chord, patternID string) {
	e.disp.Post(func() {
		st := e.cfg.Performance()
		voicing, ok := e.libs.Chords.Voicing(chord, st.Transpose, st.Capo)
		if !ok {
			e.log.Warn("unknown chord, trigger dropped", zap.String("chord", chord))
			return
		}
		pat, ok := e.libs.Strums.Pattern(patternID, st.Sig)
		if !ok {
			e.log.Warn("unknown pattern, trigger dropped",
				zap.String("pattern", patternID), zap.String("sig", st.Sig.String()))
			return
		}
		e.startOrQueue(e.chord, pat, voicing, st, chord+" "+pat.Name)
	})
}

// StrumChord fires a single down-strum of chord right now, restarting the
// chord session with zero anchor delay.
func (e *Engine) StrumChord(chord string) {
	e.disp.Post(func() {
		st := e.cfg.Performance()
		voicing, ok := e.libs.Chords.Voicing(chord, st.Transpose, st.Capo)
		if !ok {
			e.log.Warn("unknown chord, trigger dropped", zap.String("chord", chord))
			return
		}
		pat := oneShotStrum(st.Sig)
		notes, loopDur, _ := Resolve(pat, voicing, st.Tempo)
		if len(notes) == 0 {
			e.log.Warn("chord resolves to silence", zap.String("chord", chord))
			return
		}
		e.chord.stop()
		e.chord.start(startPlan{
			notes:    notes,
			loopDur:  loopDur,
			once:     true,
			anchor:   time.Now(),
			tr:       Transport{BPM: st.Tempo, Sig: st.Sig},
			velocity: st.Velocity,
			hold:     st.Hold,
			label:    chord,
		})
	})
}

// StartDrums starts (or re-queues) the drum accompaniment. A fresh start
// runs the configured count-in first; the drum loop is the quantization
// reference for chord triggers, so it never quantizes itself.
func (e *Engine) StartDrums(patternID string) {
	e.disp.Post(func() {
		st := e.cfg.Performance()
		kit, ok := e.libs.Kits.Kit(st.Kit)
		if !ok {
			e.log.Warn("unknown drum kit, trigger dropped", zap.String("kit", st.Kit))
			return
		}
		pat, ok := e.libs.Drums.Pattern(patternID, st.Sig)
		if !ok {
			e.log.Warn("unknown drum pattern, trigger dropped",
				zap.String("pattern", patternID), zap.String("sig", st.Sig.String()))
			return
		}
		notes, loopDur, skipped := Resolve(pat, kit, st.Tempo)
		if skipped > 0 {
			e.log.Warn("pattern events skipped", zap.String("pattern", pat.ID), zap.Int("skipped", skipped))
		}
		if len(notes) == 0 {
			e.log.Warn("drum pattern resolves to silence", zap.String("pattern", pat.ID))
			return
		}
		if e.drums.queue(queuedSchedule{notes: notes, loopDur: loopDur, velocity: st.Velocity, hold: st.Hold, label: pat.Name}) {
			return
		}
		e.drums.start(startPlan{
			notes:    notes,
			loopDur:  loopDur,
			anchor:   time.Now(),
			countIn:  st.CountIn,
			tr:       Transport{BPM: st.Tempo, Sig: st.Sig},
			velocity: st.Velocity,
			hold:     st.Hold,
			label:    pat.Name,
		})
	})
}

// StopChord stops the chord session only.
func (e *Engine) StopChord() {
	e.disp.Call(e.chord.stop)
}

// StopDrums stops the drum session only.
func (e *Engine) StopDrums() {
	e.disp.Call(e.drums.stop)
}

// StopAll silences both sessions. It returns only after the note-offs
// are enqueued, so the caller may immediately start a new session.
func (e *Engine) StopAll() {
	e.disp.Call(func() {
		e.chord.stop()
		e.drums.stop()
	})
}

// startOrQueue is the shared trigger tail: resolve, then either stage at
// the next wrap or anchor a fresh loop at the quantized instant.
func (e *Engine) startOrQueue(s *session, pat *Pattern, voicing Voicing, st Settings, label string) {
	notes, loopDur, skipped := Resolve(pat, voicing, st.Tempo)
	if skipped > 0 {
		e.log.Warn("pattern events skipped", zap.String("pattern", pat.ID), zap.Int("skipped", skipped))
	}
	if len(notes) == 0 {
		e.log.Warn("pattern resolves to silence", zap.String("pattern", pat.ID))
		return
	}
	if s.queue(queuedSchedule{notes: notes, loopDur: loopDur, once: pat.Once, velocity: st.Velocity, hold: st.Hold, label: label}) {
		return
	}

	tr := Transport{BPM: st.Tempo, Sig: st.Sig}
	// Quantize against the drum loop's own anchor and bar length. The
	// drum session keeps the transport it started with, so its grid may
	// differ from current settings after a tempo or signature change.
	anchor := time.Now()
	if e.drums.active() {
		anchor = NextQuantizedInstant(anchor, st.Quantize, e.drums.anchor, e.drums.loopDur)
	}
	s.start(startPlan{
		notes:    notes,
		loopDur:  loopDur,
		once:     pat.Once,
		anchor:   anchor,
		tr:       tr,
		velocity: st.Velocity,
		hold:     st.Hold,
		label:    label,
	})
}

// oneShotStrum is the synthetic pattern behind StrumChord: all six
// strings, one down sweep, single cycle.
func oneShotStrum(sig TimeSignature) *Pattern {
	voices := make([]VoiceRef, GuitarVoices)
	for i := range voices {
		voices[i] = Direct(i)
	}
	return &Pattern{
		ID:   "strum-once",
		Name: "Strum",
		Sig:  sig,
		Once: true,
		Events: []PatternEvent{{
			Delay:  Fraction{Num: 0, Den: 1},
			Voices: voices,
			Strum:  &Strum{Direction: StrumDown, Offset: strumGap},
		}},
	}
}

// publish rebuilds the UI snapshot. Runs on the dispatcher goroutine.
func (e *Engine) publish() {
	st := e.cfg.Performance()
	s := Status{
		Tempo:        st.Tempo,
		Sig:          st.Sig,
		Quantize:     st.Quantize,
		ChordPlaying: e.chord.playing(),
		DrumsPlaying: e.drums.playing(),
	}
	if e.drums.state == stateCountIn {
		s.CountIn = e.drums.countLeft
	}
	// The drum loop is the transport reference when it runs; otherwise
	// the chord loop's counters are shown.
	switch {
	case e.drums.playing():
		s.Beat, s.Measure = e.drums.beat, e.drums.measure
	case e.chord.playing():
		s.Beat, s.Measure = e.chord.beat, e.chord.measure
	}
	if e.chord.active() {
		s.Chord = e.chord.label
	}
	if e.chord.queued != nil {
		s.QueuedChord = e.chord.queued.label
	}
	if e.drums.active() {
		s.DrumPattern = e.drums.label
	}

	e.mu.Lock()
	e.status = s
	e.mu.Unlock()

	select {
	case e.UpdateChan <- struct{}{}:
	default:
	}
}
