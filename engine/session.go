package engine

import (
	"time"

	"go.uber.org/zap"
)

type sessionState int

const (
	stateStopped sessionState = iota
	stateCountIn
	statePlaying
)

func (s sessionState) String() string {
	switch s {
	case stateCountIn:
		return "count-in"
	case statePlaying:
		return "playing"
	default:
		return "stopped"
	}
}

// clickGate is how long a count-in click rings.
const clickGate = 80 * time.Millisecond

// session is one pattern loop: it owns an anchor instant, a resolved
// schedule, a cycle counter and at most one pending dispatch. The chord
// player and drum player are two instances of this one shape.
//
// Every method runs on the dispatcher goroutine; the engine posts into
// it. A generation counter guards against dispatches that fire after the
// session they belonged to was stopped or restarted.
type session struct {
	name   string
	disp   *Dispatcher
	sink   MidiSink
	voices *VoiceTracker
	log    *zap.Logger

	state   sessionState
	gen     uint64
	anchor  time.Time
	cycle   int
	idx     int
	notes   []ResolvedNote
	loopDur time.Duration
	once    bool
	queued  *queuedSchedule
	pending Handle

	velocity uint8
	hold     time.Duration
	label    string

	// count-in
	countLeft   int
	nextClickAt time.Time
	clickChan   uint8
	clickKey    uint8

	// UI beat/measure counters: ticked at the beat rate from the anchor,
	// independent of how sparse the pattern is.
	beatDur         time.Duration
	beatsPerMeasure int
	beatCount       int
	nextBeatAt      time.Time
	beatPending     Handle
	beat, measure   int

	onChange func()
}

// startPlan is everything a session needs to anchor a new loop. Resolved
// ahead of time so the session itself never touches libraries or config.
type startPlan struct {
	notes    []ResolvedNote
	loopDur  time.Duration
	once     bool
	anchor   time.Time
	countIn  int
	tr       Transport
	velocity uint8
	hold     time.Duration
	label    string
}

// queuedSchedule is a pattern staged while playing, consumed only when
// the event index wraps to zero.
type queuedSchedule struct {
	notes    []ResolvedNote
	loopDur  time.Duration
	once     bool
	velocity uint8
	hold     time.Duration
	label    string
}

func newSession(name string, disp *Dispatcher, sink MidiSink, voices *VoiceTracker, clickChan, clickKey uint8, log *zap.Logger, onChange func()) *session {
	return &session{
		name:      name,
		disp:      disp,
		sink:      sink,
		voices:    voices,
		clickChan: clickChan,
		clickKey:  clickKey,
		log:       log,
		onChange:  onChange,
	}
}

func (s *session) playing() bool { return s.state == statePlaying }
func (s *session) active() bool  { return s.state != stateStopped }

// start anchors a new loop, tearing down whatever was running first. With
// a count-in, the clicks begin at plan.anchor and the real anchor lands
// countIn beats later.
func (s *session) start(plan startPlan) {
	s.reset()

	s.notes = plan.notes
	s.loopDur = plan.loopDur
	s.once = plan.once
	s.velocity = plan.velocity
	s.hold = plan.hold
	s.label = plan.label
	s.cycle = 0
	s.idx = 0
	s.beatDur = plan.tr.BeatDuration()
	s.beatsPerMeasure = plan.tr.Sig.Beats

	if plan.countIn > 0 {
		s.state = stateCountIn
		s.countLeft = plan.countIn
		s.anchor = plan.anchor.Add(time.Duration(plan.countIn) * s.beatDur)
		s.nextClickAt = plan.anchor
		gen := s.gen
		s.pending = s.disp.At(s.nextClickAt, func() { s.clickTick(gen) })
	} else {
		s.state = statePlaying
		s.anchor = plan.anchor
		s.beginLoop()
	}
	s.log.Debug("session started",
		zap.String("session", s.name),
		zap.String("pattern", s.label),
		zap.Int("events", len(s.notes)),
		zap.Duration("loop", s.loopDur),
		zap.Int("countIn", plan.countIn))
	s.notify()
}

// queue stages a hand-off for the next cycle boundary. Returns false when
// the session is not playing and the caller should start instead.
func (s *session) queue(q queuedSchedule) bool {
	if s.state != statePlaying {
		return false
	}
	s.queued = &q
	s.log.Debug("pattern queued", zap.String("session", s.name), zap.String("pattern", q.label))
	s.notify()
	return true
}

// stop cancels this session's pending dispatches and silences its own
// voices, and nothing else: the other session keeps playing.
func (s *session) stop() {
	if s.state == stateStopped {
		return
	}
	s.reset()
	s.log.Debug("session stopped", zap.String("session", s.name))
	s.notify()
}

// reset is stop without the notification; also the teardown half of start.
func (s *session) reset() {
	s.gen++
	if s.pending != 0 {
		s.disp.Cancel(s.pending)
		s.pending = 0
	}
	if s.beatPending != 0 {
		s.disp.Cancel(s.beatPending)
		s.beatPending = 0
	}
	s.voices.Panic()
	s.state = stateStopped
	s.queued = nil
	s.label = ""
	s.countLeft = 0
	s.beat, s.measure, s.beatCount = 0, 0, 0
}

// beginLoop arms the first event dispatch and the beat counter, both
// anchored to s.anchor.
func (s *session) beginLoop() {
	s.nextBeatAt = s.anchor
	s.beatCount = 0
	gen := s.gen
	s.beatPending = s.disp.At(s.nextBeatAt, func() { s.beatTick(gen) })
	s.armNext()
}

// armNext computes the single pending dispatch for the next unfired event
// from the loop's original anchor, never from "now".
func (s *session) armNext() {
	if len(s.notes) == 0 {
		s.reset()
		return
	}
	at := s.anchor.Add(time.Duration(s.cycle)*s.loopDur + s.notes[s.idx].Offset)
	gen := s.gen
	s.pending = s.disp.At(at, func() { s.tick(gen) })
}

// tick fires every note due at the current offset, advances the cursor,
// and re-arms. At a wrap it bumps the cycle and is the only place a
// queued pattern may swap in.
func (s *session) tick(gen uint64) {
	if gen != s.gen || s.state != statePlaying {
		return // stopped between scheduling and firing
	}
	s.pending = 0

	due := s.notes[s.idx].Offset
	for s.idx < len(s.notes) && s.notes[s.idx].Offset == due {
		n := s.notes[s.idx]
		s.voices.Trigger(n.Voice, n.Pitch, s.velocity, s.hold)
		s.idx++
	}

	if s.idx >= len(s.notes) {
		s.idx = 0
		s.cycle++
		if s.once {
			// One-shot: let the held notes ring out, no next cycle.
			s.finishOnce()
			return
		}
		if q := s.queued; q != nil {
			// Hand-off lands exactly on the cycle boundary.
			s.anchor = s.anchor.Add(time.Duration(s.cycle) * s.loopDur)
			s.cycle = 0
			s.notes = q.notes
			s.loopDur = q.loopDur
			s.once = q.once
			s.velocity = q.velocity
			s.hold = q.hold
			s.label = q.label
			s.queued = nil
			s.log.Debug("pattern handed off", zap.String("session", s.name), zap.String("pattern", s.label))
			s.notify()
		}
	}
	s.armNext()
}

// finishOnce ends a one-shot cycle without panicking the voices, so the
// scheduled note-offs still deliver.
func (s *session) finishOnce() {
	s.gen++
	if s.beatPending != 0 {
		s.disp.Cancel(s.beatPending)
		s.beatPending = 0
	}
	s.state = stateStopped
	s.queued = nil
	s.beat, s.measure, s.beatCount = 0, 0, 0
	s.notify()
}

// clickTick is one count-in click. When the countdown hits zero the main
// loop takes over at the anchor fixed at start.
func (s *session) clickTick(gen uint64) {
	if gen != s.gen || s.state != stateCountIn {
		return
	}
	s.pending = 0
	s.sink.NoteOn(s.clickChan, s.clickKey, 110)
	s.sink.ScheduleNoteOff(s.clickChan, s.clickKey, s.nextClickAt.Add(clickGate))

	s.countLeft--
	s.notify()
	if s.countLeft <= 0 {
		s.state = statePlaying
		s.beginLoop()
		return
	}
	s.nextClickAt = s.nextClickAt.Add(s.beatDur)
	s.pending = s.disp.At(s.nextClickAt, func() { s.clickTick(gen) })
}

// beatTick advances the UI beat/measure counters at the raw beat rate.
func (s *session) beatTick(gen uint64) {
	if gen != s.gen || s.state != statePlaying {
		return
	}
	s.beatCount++
	s.beat = (s.beatCount-1)%s.beatsPerMeasure + 1
	s.measure = (s.beatCount-1)/s.beatsPerMeasure + 1
	s.nextBeatAt = s.nextBeatAt.Add(s.beatDur)
	gen2 := s.gen
	s.beatPending = s.disp.At(s.nextBeatAt, func() { s.beatTick(gen2) })
	s.notify()
}

func (s *session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
