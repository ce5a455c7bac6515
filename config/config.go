// Package config holds the process-wide performance settings: tempo,
// time signature, quantization, velocity, hold, transposition. The TUI
// mutates them through validated setters; the engine reads a snapshot at
// trigger time, never mid-schedule.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-strum/engine"
)

// Data is the persisted shape.
type Data struct {
	Tempo           float64 `json:"tempo"`
	BeatsPerMeasure int     `json:"beatsPerMeasure"`
	BeatUnit        int     `json:"beatUnit"`
	Quantize        string  `json:"quantize"` // none | measure | half
	Velocity        uint8   `json:"velocity"`
	HoldMs          int     `json:"holdMs"`
	Transpose       int     `json:"transpose"`
	Capo            int     `json:"capo"`
	CountIn         int     `json:"countIn"`
	Kit             string  `json:"kit"`
	PortName        string  `json:"portName,omitempty"`
	LogPath         string  `json:"logPath,omitempty"`
}

// DefaultData returns sensible startup settings.
func DefaultData() Data {
	return Data{
		Tempo:           120,
		BeatsPerMeasure: 4,
		BeatUnit:        4,
		Quantize:        "measure",
		Velocity:        96,
		HoldMs:          1500,
		CountIn:         4,
		Kit:             "gm",
	}
}

// Settings is the shared, mutex-guarded settings object. It implements
// engine.ConfigSource.
type Settings struct {
	mu   sync.RWMutex
	data Data
	path string
}

// New wraps a validated Data. Invalid fields are replaced by defaults.
func New(d Data) *Settings {
	return &Settings{data: sanitize(d)}
}

// Dir returns the config directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-strum"), nil
}

// Path returns the full path to config.json.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads settings from disk, or returns defaults if not found.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return New(DefaultData()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := New(DefaultData())
			s.path = path
			return s, nil
		}
		return nil, err
	}
	d := DefaultData()
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s := New(d)
	s.path = path
	return s, nil
}

// Save writes the settings to disk.
func (s *Settings) Save() error {
	s.mu.RLock()
	d := s.data
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// Performance implements engine.ConfigSource.
func (s *Settings) Performance() engine.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.Settings{
		Tempo:     s.data.Tempo,
		Sig:       engine.TimeSignature{Beats: s.data.BeatsPerMeasure, Unit: s.data.BeatUnit},
		Quantize:  quantizeMode(s.data.Quantize),
		Velocity:  s.data.Velocity,
		Hold:      time.Duration(s.data.HoldMs) * time.Millisecond,
		Transpose: s.data.Transpose,
		Capo:      s.data.Capo,
		CountIn:   s.data.CountIn,
		Kit:       s.data.Kit,
	}
}

// Snapshot returns a copy of the raw data.
func (s *Settings) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// SetTempo rejects out-of-range tempos; the prior value stays.
func (s *Settings) SetTempo(bpm float64) error {
	if err := engine.ValidateTempo(bpm); err != nil {
		return err
	}
	s.mu.Lock()
	s.data.Tempo = bpm
	s.mu.Unlock()
	return nil
}

// SetTimeSignature rejects invalid signatures; the prior value stays.
func (s *Settings) SetTimeSignature(beats, unit int) error {
	sig := engine.TimeSignature{Beats: beats, Unit: unit}
	if err := sig.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.data.BeatsPerMeasure = beats
	s.data.BeatUnit = unit
	s.mu.Unlock()
	return nil
}

// SetQuantize stores a quantization mode.
func (s *Settings) SetQuantize(mode engine.QuantizeMode) {
	s.mu.Lock()
	s.data.Quantize = mode.String()
	s.mu.Unlock()
}

// CycleQuantize steps none -> measure -> half -> none and returns the
// new mode.
func (s *Settings) CycleQuantize() engine.QuantizeMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := engine.QuantizeNone
	switch quantizeMode(s.data.Quantize) {
	case engine.QuantizeNone:
		next = engine.QuantizeMeasure
	case engine.QuantizeMeasure:
		next = engine.QuantizeHalfMeasure
	}
	s.data.Quantize = next.String()
	return next
}

func quantizeMode(s string) engine.QuantizeMode {
	switch s {
	case "measure":
		return engine.QuantizeMeasure
	case "half":
		return engine.QuantizeHalfMeasure
	default:
		return engine.QuantizeNone
	}
}

// sanitize falls back to defaults for fields that fail validation, so a
// hand-edited file can never wedge startup.
func sanitize(d Data) Data {
	def := DefaultData()
	if engine.ValidateTempo(d.Tempo) != nil {
		d.Tempo = def.Tempo
	}
	sig := engine.TimeSignature{Beats: d.BeatsPerMeasure, Unit: d.BeatUnit}
	if sig.Validate() != nil {
		d.BeatsPerMeasure, d.BeatUnit = def.BeatsPerMeasure, def.BeatUnit
	}
	switch d.Quantize {
	case "none", "measure", "half":
	default:
		d.Quantize = def.Quantize
	}
	if d.Velocity == 0 || d.Velocity > 127 {
		d.Velocity = def.Velocity
	}
	if d.HoldMs <= 0 {
		d.HoldMs = def.HoldMs
	}
	if d.CountIn < 0 {
		d.CountIn = def.CountIn
	}
	if d.Kit == "" {
		d.Kit = def.Kit
	}
	return d
}
