package engine

import (
	"fmt"
	"time"
)

// Tempo limits. Values outside this range are rejected and the caller
// keeps whatever it had before.
const (
	MinTempo = 10.0
	MaxTempo = 240.0
)

// QuantizeMode controls how a trigger's start time is aligned to the
// reference loop already playing.
type QuantizeMode int

const (
	QuantizeNone QuantizeMode = iota
	QuantizeMeasure
	QuantizeHalfMeasure
)

func (q QuantizeMode) String() string {
	switch q {
	case QuantizeMeasure:
		return "measure"
	case QuantizeHalfMeasure:
		return "half"
	default:
		return "none"
	}
}

// TimeSignature is beats per measure over the beat unit (4/4, 3/4, 6/8).
type TimeSignature struct {
	Beats int
	Unit  int
}

func (ts TimeSignature) Validate() error {
	if ts.Beats < 1 {
		return fmt.Errorf("time signature: beats per measure must be >= 1, got %d", ts.Beats)
	}
	if ts.Unit < 1 {
		return fmt.Errorf("time signature: beat unit must be >= 1, got %d", ts.Unit)
	}
	return nil
}

func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Beats, ts.Unit)
}

// ValidateTempo rejects tempos outside [MinTempo, MaxTempo].
func ValidateTempo(bpm float64) error {
	if bpm < MinTempo || bpm > MaxTempo {
		return fmt.Errorf("tempo %.1f out of range [%.0f, %.0f]", bpm, MinTempo, MaxTempo)
	}
	return nil
}

// Transport converts between musical time and wall-clock durations for a
// fixed tempo and time signature. It is a value: sessions snapshot one at
// trigger time, so mid-flight tempo changes never warp a running loop.
type Transport struct {
	BPM float64
	Sig TimeSignature
}

// NewTransport validates and returns a transport snapshot.
func NewTransport(bpm float64, sig TimeSignature) (Transport, error) {
	if err := ValidateTempo(bpm); err != nil {
		return Transport{}, err
	}
	if err := sig.Validate(); err != nil {
		return Transport{}, err
	}
	return Transport{BPM: bpm, Sig: sig}, nil
}

// WholeNote is the duration of one whole note: four quarter notes at BPM
// quarters per minute. 120 BPM -> 2s.
func (t Transport) WholeNote() time.Duration {
	return time.Duration(4 * float64(time.Minute) / t.BPM)
}

// BeatDuration is the duration of one beat unit.
func (t Transport) BeatDuration() time.Duration {
	return t.WholeNote() / time.Duration(t.Sig.Unit)
}

// MeasureDuration is the duration of one full measure.
func (t Transport) MeasureDuration() time.Duration {
	return t.BeatDuration() * time.Duration(t.Sig.Beats)
}

// BeatsToDuration converts a beat count (possibly fractional) to wall time.
func (t Transport) BeatsToDuration(beats float64) time.Duration {
	return time.Duration(beats * float64(t.BeatDuration()))
}

// NextQuantizedInstant returns the earliest instant at or after now that
// lands on the requested grid, measured from anchor. The anchor is the
// reference loop's cycle-zero instant and measure its bar length; a zero
// anchor means no reference loop is running and quantization degrades to
// an immediate start. An anchor still in the future (count-in in
// progress) is itself the first boundary.
//
// The measure duration comes from the reference loop itself, not from
// the current settings: a loop keeps the transport it was anchored with,
// so after a tempo change the two can differ.
func NextQuantizedInstant(now time.Time, mode QuantizeMode, anchor time.Time, measure time.Duration) time.Time {
	if mode == QuantizeNone || anchor.IsZero() {
		return now
	}
	grid := measure
	if mode == QuantizeHalfMeasure {
		grid /= 2
	}
	if grid <= 0 {
		return now
	}
	elapsed := now.Sub(anchor)
	if elapsed <= 0 {
		return anchor
	}
	steps := elapsed / grid
	if elapsed%grid == 0 {
		// Exactly on a boundary: start here.
		return now
	}
	return anchor.Add(grid * (steps + 1))
}

// NextQuantizedInstant quantizes against this transport's own measure
// grid, for callers with no separately-anchored reference loop.
func (t Transport) NextQuantizedInstant(now time.Time, mode QuantizeMode, anchor time.Time) time.Time {
	return NextQuantizedInstant(now, mode, anchor, t.MeasureDuration())
}
