// Package tui is the performance view: transport status plus the key
// bindings that trigger chords and drums. It never touches engine state
// directly; triggers go through the engine API and the display follows
// the published snapshot.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-strum/config"
	"go-strum/engine"
	"go-strum/library"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	queuedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// chordRows bind keyboard rows to chords, home row first.
var chordRows = []struct {
	keys   string
	chords []string
}{
	{"asdfghjk", []string{"C", "G", "D", "A", "E", "F", "Am", "Em"}},
	{"zxcvbnm,", []string{"C7", "G7", "D7", "A7", "E7", "B7", "Dm", "Bm"}},
}

type Model struct {
	Eng *engine.Engine
	Cfg *config.Settings

	strums *library.Patterns
	drums  *library.Patterns

	strumIdx  int
	drumIdx   int
	lastChord string
	errMsg    string
	quitting  bool
}

// UpdateMsg pulses when the engine published a new snapshot.
type UpdateMsg struct{}

func NewModel(eng *engine.Engine, cfg *config.Settings, strums, drums *library.Patterns) Model {
	return Model{Eng: eng, Cfg: cfg, strums: strums, drums: drums}
}

func ListenForUpdates(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		<-eng.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Eng)
}

func (m Model) sig() engine.TimeSignature {
	return m.Cfg.Performance().Sig
}

func (m Model) strumID() string {
	ids := m.strums.IDs(m.sig())
	if len(ids) == 0 {
		return ""
	}
	return ids[m.strumIdx%len(ids)]
}

func (m Model) drumID() string {
	ids := m.drums.IDs(m.sig())
	if len(ids) == 0 {
		return ""
	}
	return ids[m.drumIdx%len(ids)]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case UpdateMsg:
		return m, ListenForUpdates(m.Eng)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	m.errMsg = ""

	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		m.Eng.StopAll()
		return m, tea.Quit

	case " ":
		if st := m.Eng.Status(); st.DrumsPlaying || st.CountIn > 0 {
			m.Eng.StopDrums()
		} else if id := m.drumID(); id != "" {
			m.Eng.StartDrums(id)
		}

	case "esc":
		m.Eng.StopAll()

	case "enter":
		if m.lastChord != "" {
			m.Eng.StrumChord(m.lastChord)
		}

	case "tab":
		if n := len(m.strums.IDs(m.sig())); n > 0 {
			m.strumIdx = (m.strumIdx + 1) % n
		}

	case "shift+tab":
		if n := len(m.drums.IDs(m.sig())); n > 0 {
			m.drumIdx = (m.drumIdx + 1) % n
		}

	case "+", "=":
		m.adjustTempo(5)
	case "-", "_":
		m.adjustTempo(-5)

	case "u":
		m.Cfg.CycleQuantize()
		m.Eng.Refresh()

	case "3":
		m.setSig(3, 4)
	case "4":
		m.setSig(4, 4)

	default:
		if chord, ok := chordForKey(key); ok {
			m.lastChord = chord
			if id := m.strumID(); id != "" {
				m.Eng.TriggerChord(chord, id)
			}
		}
	}
	return m, nil
}

func (m *Model) adjustTempo(delta float64) {
	cur := m.Cfg.Performance().Tempo
	if err := m.Cfg.SetTempo(cur + delta); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.Eng.Refresh()
}

func (m *Model) setSig(beats, unit int) {
	if err := m.Cfg.SetTimeSignature(beats, unit); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.strumIdx, m.drumIdx = 0, 0
	m.Eng.Refresh()
}

func chordForKey(key string) (string, bool) {
	if len(key) != 1 {
		return "", false
	}
	for _, row := range chordRows {
		if i := strings.IndexByte(row.keys, key[0]); i >= 0 && i < len(row.chords) {
			return row.chords[i], true
		}
	}
	return "", false
}

func (m Model) View() string {
	if m.quitting {
		return "bye\n"
	}
	st := m.Eng.Status()

	var b strings.Builder
	b.WriteString(headerStyle.Render("go-strum") + "\n\n")

	// Transport line.
	transport := fmt.Sprintf("%.0f bpm  %s  quantize:%s", st.Tempo, st.Sig, st.Quantize)
	switch {
	case st.CountIn > 0:
		transport += activeStyle.Render(fmt.Sprintf("  count-in %d", st.CountIn))
	case st.Beat > 0:
		transport += activeStyle.Render(fmt.Sprintf("  %d.%d", st.Measure, st.Beat))
	}
	b.WriteString(transport + "\n")

	// Session lines.
	drumLine := "drums: " + dimStyle.Render("stopped")
	if st.DrumsPlaying || st.CountIn > 0 {
		drumLine = "drums: " + activeStyle.Render(st.DrumPattern)
	} else if id := m.drumID(); id != "" {
		drumLine += dimStyle.Render("  [space starts " + id + "]")
	}
	b.WriteString(drumLine + "\n")

	chordLine := "chord: " + dimStyle.Render("-")
	if st.ChordPlaying {
		chordLine = "chord: " + activeStyle.Render(st.Chord)
		if st.QueuedChord != "" {
			chordLine += queuedStyle.Render("  next: " + st.QueuedChord)
		}
	}
	b.WriteString(chordLine + "\n")
	b.WriteString(fmt.Sprintf("strum pattern: %s\n\n", m.strumID()))

	// Chord key rows.
	for _, row := range chordRows {
		var cells []string
		for i, ch := range row.chords {
			label := fmt.Sprintf("%c:%s", row.keys[i], ch)
			if st.ChordPlaying && (strings.HasPrefix(st.Chord, ch+" ") || st.Chord == ch) {
				label = activeStyle.Render(label)
			}
			cells = append(cells, fmt.Sprintf("%-7s", label))
		}
		b.WriteString(strings.Join(cells, "") + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(
		"space drums  enter strum once  tab pattern  shift+tab drum pattern\n"+
			"+/- tempo  u quantize  3/4 signature  esc stop all  q quit") + "\n")

	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}
	return b.String()
}
