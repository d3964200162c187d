package bsec

import "errors"

// SimBus is an in-memory I2C bus that acks a fixed address set, enough
// for Probe/Scan against simulated slots.
type SimBus struct {
	Present []uint16
}

func (b *SimBus) Tx(addr uint16, w, r []byte) error {
	for _, a := range b.Present {
		if a == addr {
			return nil
		}
	}
	return errors.New("i2c: no ack")
}

// Sim is a deterministic Algorithm for tests and host builds. Failure
// modes are switchable so every degraded slot state can be exercised
// without hardware.
type Sim struct {
	// Failure switches.
	FailBegin     bool
	FailSubscribe bool
	FailLoadState bool

	// IntervalMs between emitted samples. Zero selects the subscribed
	// rate's nominal cadence (3 s LP, 300 s ULP).
	IntervalMs int64

	// Base is the template sample; Poll stamps TsMs and, once a
	// subscription is active, marks the AQ block.
	Base Sample

	begun      bool
	subscribed bool
	stateOk    bool
	lastEmitMs int64
	emitted    uint32
	rate       Rate
}

var _ Algorithm = (*Sim)(nil)

// NewSim returns a simulator producing plausible ambient readings.
func NewSim() *Sim {
	return &Sim{
		Base: Sample{
			TempC:       24.5,
			HumidityPct: 41.0,
			Pressure:    101325, // Pa; exercises the magnitude heuristic
			GasOhm:      112000,
			IAQ:         52,
			IAQAccuracy: 2,
			StaticIAQ:   49,
			CO2Eq:       607,
			BVOCEq:      0.62,
		},
	}
}

func (s *Sim) Begin() error {
	if s.FailBegin {
		return ErrBeginFailed
	}
	s.begun = true
	return nil
}

func (s *Sim) LoadState(blob []byte) error {
	if s.FailLoadState || len(blob) == 0 {
		return ErrBadState
	}
	s.stateOk = true
	return nil
}

func (s *Sim) Subscribe(outputs []OutputKind, rate Rate) error {
	if s.FailSubscribe {
		return ErrSubscribeFailed
	}
	s.subscribed = true
	s.rate = rate
	return nil
}

func (s *Sim) Poll(nowMs int64, emit func(Sample)) {
	if !s.begun {
		return
	}
	interval := s.IntervalMs
	if interval <= 0 {
		if s.rate == RateULP {
			interval = 300_000
		} else {
			interval = 3_000
		}
	}
	if s.lastEmitMs != 0 && nowMs-s.lastEmitMs < interval {
		return
	}
	s.lastEmitMs = nowMs
	s.emitted++

	out := s.Base
	out.TsMs = nowMs
	// Small deterministic wobble so consecutive samples differ.
	out.TempC += float32(s.emitted%7) * 0.01
	out.HasAQ = s.subscribed
	if !s.subscribed {
		out.IAQ, out.StaticIAQ, out.CO2Eq, out.BVOCEq, out.IAQAccuracy = 0, 0, 0, 0, 0
	}
	emit(out)
}
