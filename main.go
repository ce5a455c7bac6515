package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"go-strum/config"
	"go-strum/engine"
	"go-strum/library"
	"go-strum/midi"
	"go-strum/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	log := buildLogger(cfg.Snapshot().LogPath)
	defer log.Sync()

	// Libraries: builtins with user files merged on top.
	chords := library.NewChords()
	strums := library.BuiltinStrums()
	drums := library.BuiltinDrums()
	if dir, err := config.Dir(); err == nil {
		if user, err := library.LoadChords(filepath.Join(dir, "chords.yaml"), log); err != nil {
			log.Warn("user chords not loaded", zap.Error(err))
		} else {
			chords.Merge(user)
		}
		userStrums, userDrums, err := library.LoadPatterns(filepath.Join(dir, "patterns.yaml"), log)
		if err != nil {
			log.Warn("user patterns not loaded", zap.Error(err))
		}
		for _, p := range userStrums {
			strums.Add(p)
		}
		for _, p := range userDrums {
			drums.Add(p)
		}
	}

	// MIDI out: run silent if no port is available.
	var sink engine.RawSink
	out, err := midi.Open(cfg.Snapshot().PortName, log)
	if err != nil {
		fmt.Printf("MIDI: %v (running silent)\n", err)
		log.Warn("no MIDI output", zap.Error(err))
		sink = midi.Nop{}
	} else {
		sink = out
		defer out.Close()
	}

	eng := engine.New(sink, engine.Libraries{
		Chords: chords,
		Strums: strums,
		Drums:  drums,
		Kits:   library.BuiltinKits(),
	}, cfg, log)
	defer eng.Close()

	m := tui.NewModel(eng, cfg, strums, drums)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Save(); err != nil {
		log.Warn("config not saved", zap.Error(err))
	}
}

// buildLogger writes structured logs to a file so they never fight the
// TUI for the terminal. No path, no logging.
func buildLogger(path string) *zap.Logger {
	if path == "" {
		return zap.NewNop()
	}
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	log, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
