package node

import (
	"tinygo.org/x/drivers"

	"mycobrain-go/drivers/bsec"
	"mycobrain-go/types"
)

// Slot bus addresses, fixed by the board layout (primary and secondary
// BME688 footprints).
const (
	addrAMB = 0x76
	addrENV = 0x77
)

// slot wraps one fusion-algorithm instance plus its externally visible
// state. Slots are created once at startup and mutated on every poll;
// they are never destroyed except on reboot.
type slot struct {
	algo    bsec.Algorithm
	status  types.SlotStatus
	reading types.SensorReading
}

func newSlot(name string, addr uint16, algo bsec.Algorithm, rate types.SampleRate) *slot {
	return &slot{
		algo: algo,
		status: types.SlotStatus{
			Name:       name,
			Addr:       addr,
			SampleRate: rate.String(),
		},
	}
}

// initialize probes, begins and subscribes one slot. Absence, begin
// failure and subscription failure are three independently observable
// degraded states; none of them is an error and none halts the engine.
// The invariants begin_ok => present and subscription_ok => begin_ok hold
// by construction: each stage returns before attempting the next.
func (sl *slot) initialize(i2c drivers.I2C, calib []byte, rate types.SampleRate) {
	if i2c == nil || sl.algo == nil {
		return // no bus wired: slot stays absent
	}
	sl.status.Present = bsec.Probe(i2c, sl.status.Addr)
	if !sl.status.Present {
		return
	}
	if err := sl.algo.Begin(); err != nil {
		return // begin_ok stays false; slot visible but inert
	}
	sl.status.BeginOk = true

	// Calibration blob is best-effort: failure only degrades accuracy.
	sl.status.ConfigOk = len(calib) > 0 && sl.algo.LoadState(calib) == nil

	r := bsec.RateLP
	if rate == types.RateUltraLowPower {
		r = bsec.RateULP
	}
	// Even when the subscription fails, raw T/H/P/gas still flow.
	sl.status.SubscriptionOk = sl.algo.Subscribe(bsec.DefaultOutputs, r) == nil
}

// poll is called every engine tick and never blocks; the algorithm
// invokes the callback only when a new sample is ready.
func (sl *slot) poll(nowMs int64) {
	if !sl.status.BeginOk {
		return
	}
	sl.algo.Poll(nowMs, func(sm bsec.Sample) {
		sl.reading = types.SensorReading{
			Valid:       true,
			TsMs:        sm.TsMs,
			TempC:       sm.TempC,
			HumidityPct: sm.HumidityPct,
			PressureRaw: sm.Pressure,
			PressureHpa: normalizePressureHpa(sm.Pressure),
			GasOhm:      sm.GasOhm,
			HasAQ:       sm.HasAQ,
			IAQ:         sm.IAQ,
			IAQAccuracy: sm.IAQAccuracy,
			StaticIAQ:   sm.StaticIAQ,
			CO2Eq:       sm.CO2Eq,
			BVOCEq:      sm.BVOCEq,
		}
	})
}

// awaitingFirstReading reports a begun slot that has not yet produced a
// valid sample (drives the pulsing-blue indicator state).
func (sl *slot) awaitingFirstReading() bool {
	return sl.status.BeginOk && !sl.reading.Valid
}

// normalizePressureHpa converts a raw pressure of unknown unit to
// hectopascals by magnitude. The vendor sample carries no unit tag, so
// this is a best-effort guess: it misreads genuinely extreme pressures
// and must be revisited if a hardware revision changes the native unit.
//
//	> 20000  -> Pa        (/100)
//	>  2000  -> deci-hPa  (/10)
//	>   200  -> hPa       (as-is)
//	>    20  -> kPa-like  (*10)
//	otherwise   bar-like  (*1000)
func normalizePressureHpa(raw float32) float32 {
	switch {
	case raw > 20000:
		return raw / 100
	case raw > 2000:
		return raw / 10
	case raw > 200:
		return raw
	case raw > 20:
		return raw * 10
	default:
		return raw * 1000
	}
}

// initSlots builds and initializes both fixed slots.
func (s *service) initSlots() {
	s.slots[0] = newSlot("AMB", addrAMB, s.opts.AMB, s.opts.Rate)
	s.slots[1] = newSlot("ENV", addrENV, s.opts.ENV, s.opts.Rate)
	for _, sl := range s.slots {
		sl.initialize(s.opts.I2C, s.opts.Calibration, s.opts.Rate)
	}
}

func (s *service) pollSlots(nowMs int64) {
	for _, sl := range s.slots {
		sl.poll(nowMs)
	}
}

// scanBus walks the I2C address space for the i2c_scan verb.
func (s *service) scanBus() []uint16 {
	if s.opts.I2C == nil {
		return nil
	}
	return bsec.Scan(s.opts.I2C)
}
