// Package midi is the thin gomidi-backed output layer: port listing and
// an engine.RawSink over one output port.
package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
	"go.uber.org/zap"
)

// Ports lists the available MIDI output port names.
func Ports() []string {
	var names []string
	for _, port := range gomidi.GetOutPorts() {
		names = append(names, port.String())
	}
	return names
}

// Out sends notes to one MIDI output port. Both playback sessions write
// to it concurrently; the mutex serializes physical transmission.
type Out struct {
	mu   sync.Mutex
	send func(gomidi.Message) error
	name string
	log  *zap.Logger
}

// Open connects to the named output port; an empty name takes the first
// available port.
func Open(portName string, log *zap.Logger) (*Out, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI output ports available")
	}
	for _, port := range ports {
		if portName == "" || port.String() == portName {
			send, err := gomidi.SendTo(port)
			if err != nil {
				return nil, fmt.Errorf("open port %q: %w", port.String(), err)
			}
			log.Info("MIDI output opened", zap.String("port", port.String()))
			return &Out{send: send, name: port.String(), log: log}, nil
		}
	}
	return nil, fmt.Errorf("MIDI output port %q not found", portName)
}

// Name returns the connected port name.
func (o *Out) Name() string { return o.name }

func (o *Out) NoteOn(channel, key, velocity uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.send(gomidi.NoteOn(channel, key, velocity)); err != nil {
		o.log.Warn("note on failed", zap.Uint8("key", key), zap.Error(err))
	}
}

func (o *Out) NoteOff(channel, key uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.send(gomidi.NoteOff(channel, key)); err != nil {
		o.log.Warn("note off failed", zap.Uint8("key", key), zap.Error(err))
	}
}

// PanicAll sends All Notes Off on every channel.
func (o *Out) PanicAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for ch := uint8(0); ch < 16; ch++ {
		if err := o.send(gomidi.ControlChange(ch, 123, 0)); err != nil {
			o.log.Warn("panic failed", zap.Uint8("channel", ch), zap.Error(err))
			return
		}
	}
}

// Close releases the driver.
func (o *Out) Close() {
	gomidi.CloseDriver()
}

// Nop is a silent sink for running without a MIDI port.
type Nop struct{}

func (Nop) NoteOn(channel, key, velocity uint8) {}
func (Nop) NoteOff(channel, key uint8)          {}
func (Nop) PanicAll()                           {}
