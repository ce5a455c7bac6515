// Lists the available MIDI output ports, for picking a portName to put
// in the config file.
package main

import (
	"fmt"

	"go-strum/midi"
)

func main() {
	ports := midi.Ports()
	if len(ports) == 0 {
		fmt.Println("no MIDI output ports found")
		return
	}
	fmt.Println("MIDI output ports:")
	for i, name := range ports {
		fmt.Printf("  %d: %s\n", i, name)
	}
}
