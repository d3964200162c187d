// Package bsec models the vendor gas-sensor fusion algorithm behind a
// narrow polymorphic interface: subscribe to derived outputs, then poll and
// receive samples through a callback. The algorithm's internals (state
// vectors, calibration maths) are out of scope; each slot owns an isolated
// instance with separate memory.
//
// A deterministic simulator (Sim) drives tests and host builds without
// sensor hardware.
package bsec

import "errors"

// OutputKind is one derived (virtual) output of the fusion algorithm.
type OutputKind uint8

const (
	OutputIAQ OutputKind = iota
	OutputStaticIAQ
	OutputCO2Equivalent
	OutputBreathVOCEquivalent
)

// DefaultOutputs is the fixed set the node subscribes to.
var DefaultOutputs = []OutputKind{
	OutputIAQ, OutputStaticIAQ, OutputCO2Equivalent, OutputBreathVOCEquivalent,
}

// Rate selects the algorithm's sample cadence.
type Rate uint8

const (
	RateLP  Rate = iota // low power, ~1/3 Hz
	RateULP             // ultra low power, ~1/300 Hz
)

// Errors surfaced by implementations.
var (
	ErrBeginFailed     = errors.New("bsec: begin failed")
	ErrSubscribeFailed = errors.New("bsec: subscription failed")
	ErrBadState        = errors.New("bsec: state blob rejected")
)

// Sample is one fused reading. Pressure is in the vendor's native unit,
// which carries no reliable unit tag; normalization is the caller's
// concern. The air-quality block is only populated once the algorithm has
// warmed up and a subscription is active (HasAQ).
type Sample struct {
	TsMs        int64
	TempC       float32
	HumidityPct float32
	Pressure    float32
	GasOhm      float32

	HasAQ       bool
	IAQ         float32
	IAQAccuracy uint8
	StaticIAQ   float32
	CO2Eq       float32
	BVOCEq      float32
}

// Algorithm is the narrow surface the firmware consumes. Begin must be
// called before Subscribe or Poll. Poll is non-blocking: it emits at most
// one sample per call, only when new data is ready.
type Algorithm interface {
	Begin() error
	// LoadState feeds a calibration blob. Failure only degrades accuracy;
	// callers treat it as best-effort.
	LoadState(blob []byte) error
	Subscribe(outputs []OutputKind, rate Rate) error
	Poll(nowMs int64, emit func(Sample))
}
