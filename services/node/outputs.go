package node

import "mycobrain-go/types"

// Pixel drives the single RGB status LED.
type Pixel interface {
	Set(c types.Color)
	Off()
}

// Buzzer drives the piezo output. Tone latches a continuous tone until
// NoTone. Beep blocks for the full duration, the one deliberately
// blocking operation in the engine; callers must pass a bounded ms.
type Buzzer interface {
	Tone(freqHz uint16)
	NoTone()
	Beep(freqHz uint16, ms uint32)
}

// owner identifies which subsystem last took an output. The LED and
// buzzer are each exclusively owned by the last writer; starting a modem
// or stimulus session takes the output away from the indicator until the
// session stops.
type owner uint8

const (
	ownerIndicator owner = iota // indicator state machine (incl. manual mode)
	ownerModem
	ownerStimulus
)

// nullPixel / nullBuzzer keep the engine total when a board output is not
// wired (e.g. host builds without a console LED).
type nullPixel struct{}

func (nullPixel) Set(types.Color) {}
func (nullPixel) Off()            {}

type nullBuzzer struct{}

func (nullBuzzer) Tone(uint16)         {}
func (nullBuzzer) NoTone()             {}
func (nullBuzzer) Beep(uint16, uint32) {}
