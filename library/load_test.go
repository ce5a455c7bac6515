package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"go-strum/engine"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadChords(t *testing.T) {
	path := writeFile(t, "chords.yaml", `
chords:
  - name: Cadd9
    frets: [x, 3, 2, 0, 3, 0]
  - name: Dsus4
    frets: [x, x, 0, 2, 3, 3]
`)
	defs, err := LoadChords(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 2 {
		t.Fatalf("loaded %d chords, want 2", len(defs))
	}
	want := FretDefinition{MutedString, 3, 2, 0, 3, 0}
	if defs["Cadd9"] != want {
		t.Errorf("Cadd9 = %v, want %v", defs["Cadd9"], want)
	}
}

func TestLoadChordsMissingFile(t *testing.T) {
	defs, err := LoadChords(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if defs != nil {
		t.Errorf("missing file returned %v, want nil", defs)
	}
}

func TestLoadChordsSkipsMalformed(t *testing.T) {
	path := writeFile(t, "chords.yaml", `
chords:
  - name: Good
    frets: [0, 2, 2, 1, 0, 0]
  - name: ShortFrets
    frets: [0, 2, 2]
  - name: BadFret
    frets: [0, 2, 2, 1, 0, nope]
  - frets: [0, 2, 2, 1, 0, 0]
`)
	defs, err := LoadChords(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 {
		t.Errorf("loaded %d chords, want only Good", len(defs))
	}
	if _, ok := defs["Good"]; !ok {
		t.Error("Good chord missing")
	}
}

func TestLoadPatterns(t *testing.T) {
	path := writeFile(t, "patterns.yaml", `
patterns:
  - id: my-strum
    name: My Strum
    sig: 4/4
    events:
      - delay: 0/8
        voices: [root, root+2]
      - delay: 1/8
        voices: [0, 1, 2]
        strum: {direction: up, offsetMs: 20}
  - id: my-beat
    kind: drum
    sig: 3/4
    events:
      - delay: 0/4
        voices: [0]
`)
	strums, drums, err := LoadPatterns(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(strums) != 1 || len(drums) != 1 {
		t.Fatalf("got %d strums, %d drums, want 1 and 1", len(strums), len(drums))
	}

	s := strums[0]
	if s.ID != "my-strum" || s.Name != "My Strum" {
		t.Errorf("strum header = %q %q", s.ID, s.Name)
	}
	if s.Sig != (engine.TimeSignature{Beats: 4, Unit: 4}) {
		t.Errorf("strum sig = %s, want 4/4", s.Sig)
	}
	if len(s.Events) != 2 {
		t.Fatalf("strum has %d events, want 2", len(s.Events))
	}
	if s.Events[0].Voices[0] != engine.RootRelative(0) || s.Events[0].Voices[1] != engine.RootRelative(2) {
		t.Errorf("event 0 voices = %v", s.Events[0].Voices)
	}
	st := s.Events[1].Strum
	if st == nil || st.Direction != engine.StrumUp || st.Offset != 20*time.Millisecond {
		t.Errorf("event 1 strum = %+v, want up 20ms", st)
	}

	d := drums[0]
	if d.ID != "my-beat" || d.Name != "my-beat" {
		t.Errorf("drum header = %q %q, want name defaulting to id", d.ID, d.Name)
	}
	if d.Sig != (engine.TimeSignature{Beats: 3, Unit: 4}) {
		t.Errorf("drum sig = %s, want 3/4", d.Sig)
	}
}

func TestLoadPatternsSkipsMalformedEvents(t *testing.T) {
	path := writeFile(t, "patterns.yaml", `
patterns:
  - id: partial
    sig: 4/4
    events:
      - delay: 0/8
        voices: [0]
      - delay: bogus
        voices: [1]
      - delay: 1/8
        voices: []
      - delay: 1/8
        voices: [2]
        strum: {direction: sideways}
      - delay: 1/8
        voices: [3]
  - id: ""
    sig: 4/4
  - id: bad-sig
    sig: 4/0
`)
	strums, drums, err := LoadPatterns(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(drums) != 0 {
		t.Errorf("got %d drums, want 0", len(drums))
	}
	if len(strums) != 1 {
		t.Fatalf("got %d strums, want only the partial one", len(strums))
	}
	if len(strums[0].Events) != 2 {
		t.Errorf("partial pattern kept %d events, want the 2 valid ones", len(strums[0].Events))
	}
}

func TestParseTimeSignature(t *testing.T) {
	sig, err := ParseTimeSignature("6/8")
	if err != nil {
		t.Fatal(err)
	}
	if sig.Beats != 6 || sig.Unit != 8 {
		t.Errorf("parsed %s, want 6/8", sig)
	}

	for _, bad := range []string{"", "4", "4/4/4", "0/4", "4/0", "a/b"} {
		if _, err := ParseTimeSignature(bad); err == nil {
			t.Errorf("ParseTimeSignature(%q) accepted", bad)
		}
	}
}

func TestParseVoiceRef(t *testing.T) {
	cases := []struct {
		in   string
		want engine.VoiceRef
	}{
		{"0", engine.Direct(0)},
		{"5", engine.Direct(5)},
		{"root", engine.RootRelative(0)},
		{"root+2", engine.RootRelative(2)},
		{"root-1", engine.RootRelative(-1)},
		{"Root", engine.RootRelative(0)},
	}
	for _, c := range cases {
		got, err := parseVoiceRef(c.in)
		if err != nil {
			t.Errorf("parseVoiceRef(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseVoiceRef(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"", "-1", "root+", "five"} {
		if _, err := parseVoiceRef(bad); err == nil {
			t.Errorf("parseVoiceRef(%q) accepted", bad)
		}
	}
}
