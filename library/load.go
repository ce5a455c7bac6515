package library

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-strum/engine"
)

// User library file formats. Voice references are parsed into their
// tagged form once here, at import, never re-parsed per trigger.
//
//	chords:
//	  - name: Cadd9
//	    frets: [x, 3, 2, 0, 3, 0]      # 6th string first
//	patterns:
//	  - id: my-strum
//	    name: My Strum
//	    sig: 4/4
//	    events:
//	      - delay: 0/8
//	        voices: [0, 1, 2]           # or root, root+2
//	        strum: {direction: down, offsetMs: 20}

type chordFile struct {
	Chords []chordYAML `yaml:"chords"`
}

type chordYAML struct {
	Name  string   `yaml:"name"`
	Frets []string `yaml:"frets"`
}

type patternFile struct {
	Patterns []patternYAML `yaml:"patterns"`
}

type patternYAML struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Sig    string      `yaml:"sig"`
	Kind   string      `yaml:"kind"` // strum (default) | drum
	Once   bool        `yaml:"once"`
	Events []eventYAML `yaml:"events"`
}

type eventYAML struct {
	Delay  string     `yaml:"delay"`
	Voices []string   `yaml:"voices"`
	Strum  *strumYAML `yaml:"strum"`
}

type strumYAML struct {
	Direction string  `yaml:"direction"`
	OffsetMs  float64 `yaml:"offsetMs"`
}

// LoadChords reads a user chord file. A missing file is not an error;
// malformed entries are skipped with a warning and the rest load.
func LoadChords(path string, log *zap.Logger) (map[string]FretDefinition, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var file chordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	defs := make(map[string]FretDefinition)
	for _, c := range file.Chords {
		fd, err := parseFrets(c.Frets)
		if err != nil {
			log.Warn("chord skipped", zap.String("chord", c.Name), zap.Error(err))
			continue
		}
		if c.Name == "" {
			log.Warn("chord without a name skipped")
			continue
		}
		defs[c.Name] = fd
	}
	return defs, nil
}

// LoadPatterns reads a user pattern file and returns strum and drum
// patterns separately. A malformed event drops that event only; a
// pattern missing id or signature is dropped whole.
func LoadPatterns(path string, log *zap.Logger) (strums, drums []*engine.Pattern, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, p := range file.Patterns {
		sig, err := ParseTimeSignature(p.Sig)
		if err != nil {
			log.Warn("pattern skipped", zap.String("pattern", p.ID), zap.Error(err))
			continue
		}
		if p.ID == "" {
			log.Warn("pattern without an id skipped")
			continue
		}
		pat := &engine.Pattern{ID: p.ID, Name: p.Name, Sig: sig, Once: p.Once}
		if pat.Name == "" {
			pat.Name = p.ID
		}
		for i, ev := range p.Events {
			parsed, err := parseEvent(ev)
			if err != nil {
				log.Warn("pattern event skipped",
					zap.String("pattern", p.ID), zap.Int("event", i), zap.Error(err))
				continue
			}
			pat.Events = append(pat.Events, parsed)
		}
		if strings.EqualFold(p.Kind, "drum") {
			drums = append(drums, pat)
		} else {
			strums = append(strums, pat)
		}
	}
	return strums, drums, nil
}

// ParseTimeSignature parses "4/4".
func ParseTimeSignature(s string) (engine.TimeSignature, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return engine.TimeSignature{}, fmt.Errorf("time signature %q: want beats/unit", s)
	}
	beats, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return engine.TimeSignature{}, fmt.Errorf("time signature %q: %w", s, err)
	}
	unit, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return engine.TimeSignature{}, fmt.Errorf("time signature %q: %w", s, err)
	}
	sig := engine.TimeSignature{Beats: beats, Unit: unit}
	if err := sig.Validate(); err != nil {
		return engine.TimeSignature{}, err
	}
	return sig, nil
}

func parseFrets(frets []string) (FretDefinition, error) {
	var fd FretDefinition
	if len(frets) != len(fd) {
		return fd, fmt.Errorf("want %d frets, got %d", len(fd), len(frets))
	}
	for i, f := range frets {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "x" || f == "" {
			fd[i] = MutedString
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return fd, fmt.Errorf("fret %q invalid", f)
		}
		fd[i] = n
	}
	return fd, nil
}

func parseEvent(ev eventYAML) (engine.PatternEvent, error) {
	delay, err := engine.ParseFraction(ev.Delay)
	if err != nil {
		return engine.PatternEvent{}, err
	}
	if len(ev.Voices) == 0 {
		return engine.PatternEvent{}, fmt.Errorf("event has no voices")
	}
	refs := make([]engine.VoiceRef, 0, len(ev.Voices))
	for _, v := range ev.Voices {
		ref, err := parseVoiceRef(v)
		if err != nil {
			return engine.PatternEvent{}, err
		}
		refs = append(refs, ref)
	}
	out := engine.PatternEvent{Delay: delay, Voices: refs}
	if ev.Strum != nil {
		var dir engine.StrumDirection
		switch strings.ToLower(ev.Strum.Direction) {
		case "down":
			dir = engine.StrumDown
		case "up":
			dir = engine.StrumUp
		default:
			return engine.PatternEvent{}, fmt.Errorf("strum direction %q invalid", ev.Strum.Direction)
		}
		out.Strum = &engine.Strum{
			Direction: dir,
			Offset:    time.Duration(ev.Strum.OffsetMs * float64(time.Millisecond)),
		}
	}
	return out, nil
}

// parseVoiceRef accepts a plain voice index or root / root+n / root-n.
func parseVoiceRef(s string) (engine.VoiceRef, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "root") {
		rest := strings.TrimPrefix(s, "root")
		if rest == "" {
			return engine.RootRelative(0), nil
		}
		off, err := strconv.Atoi(rest)
		if err != nil {
			return engine.VoiceRef{}, fmt.Errorf("voice ref %q invalid", s)
		}
		return engine.RootRelative(off), nil
	}
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return engine.VoiceRef{}, fmt.Errorf("voice ref %q invalid", s)
	}
	return engine.Direct(idx), nil
}
