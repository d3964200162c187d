package node

import (
	"mycobrain-go/types"
	"mycobrain-go/x/crc16"
	"mycobrain-go/x/mathx"
	"mycobrain-go/x/timex"
)

// modemSession is one non-blocking bit-transmission session. Each channel
// (optical, acoustic) owns exactly one; start replaces any session in
// flight on that channel and stop is idempotent from any state, including
// never-started.
type modemSession struct {
	active    bool
	payload   []byte
	byteCur   int
	bitCur    uint8
	halfPhase uint8 // Manchester half-symbol, 0 or 1
	profile   types.ModemProfile
	periodMs  uint32 // per physical emission step
	lastMs    int64
	repeat    bool
	bitsSent  uint32
	bytesSent uint32

	// Carrier parameters.
	on     types.Color // optical
	f0, f1 uint16      // acoustic

	// Physical signal hooks, bound at start.
	emit func(on bool)
	off  func()
}

func (m *modemSession) status() types.ModemStatus {
	st := types.ModemStatus{
		Active:    m.active,
		Profile:   "none",
		BitsSent:  m.bitsSent,
		BytesSent: m.bytesSent,
	}
	if m.active {
		st.Profile = m.profile.String()
	}
	return st
}

// begin resets the session for a fresh payload. Any previous payload
// buffer is dropped here, so an interrupted session never leaks. An
// empty payload is refused outright: with repeat set it would otherwise
// wrap forever without a byte to index.
func (m *modemSession) begin(payload []byte, profile types.ModemProfile, periodMs uint32, repeat bool, nowMs int64) {
	m.stop()
	if len(payload) == 0 {
		return
	}
	m.payload = payload
	m.profile = profile
	m.periodMs = periodMs
	m.repeat = repeat
	m.byteCur, m.bitCur, m.halfPhase = 0, 0, 0
	m.bitsSent, m.bytesSent = 0, 0
	m.lastMs = nowMs
	m.active = true
}

// stop is safe to call at any time. The output is silenced and the buffer
// freed; counters survive for a post-mortem status query.
func (m *modemSession) stop() {
	if m.active && m.off != nil {
		m.off()
	}
	m.active = false
	m.payload = nil
}

// tick advances the session if a symbol period has elapsed. It emits at
// most one physical signal change per call.
func (m *modemSession) tick(nowMs int64) {
	if !m.active {
		return
	}
	if nowMs-m.lastMs < int64(m.periodMs) {
		return
	}
	m.lastMs = nowMs

	if m.byteCur >= len(m.payload) {
		if !m.repeat {
			m.stop()
			return
		}
		m.byteCur, m.bitCur, m.halfPhase = 0, 0, 0
	}

	bit := (m.payload[m.byteCur]>>(7-m.bitCur))&1 == 1

	switch m.profile {
	case types.ProfileManchester:
		// Two half-symbols per bit: 1 is high-low, 0 is low-high, which
		// guarantees a mid-symbol transition for clock recovery.
		m.emit(bit == (m.halfPhase == 0))
		m.halfPhase++
		if m.halfPhase < 2 {
			return
		}
		m.halfPhase = 0
	default: // OOK and FSK emit one symbol per bit
		m.emit(bit)
	}

	m.bitsSent++
	m.bitCur++
	if m.bitCur == 8 {
		m.bitCur = 0
		m.byteCur++
		m.bytesSent++
	}
}

// startOptical replaces any active optical session and takes the LED away
// from the indicator (or a light stimulus) until the session ends.
func (s *service) startOptical(cfg types.OpticalTxConfig, nowMs int64) {
	period := timex.SymbolPeriodMs(cfg.RateHz)
	if cfg.Profile == types.ProfileManchester {
		// Equal bit rate needs double the raw symbol rate.
		period = halfPeriod(period)
	}
	// The LED is exclusively owned: a running light stimulus or pattern
	// must end before a data session may drive the pixel.
	s.stopLightStimulus(nowMs)
	s.stopPattern()
	payload := cfg.Payload
	if cfg.Framed {
		payload = crc16.Frame(payload)
	}
	m := &s.optx
	m.on = cfg.On
	m.emit = func(on bool) {
		if on {
			s.opts.Pixel.Set(m.on)
		} else {
			s.opts.Pixel.Off()
		}
	}
	m.off = func() {
		s.opts.Pixel.Off()
		s.ledOwner = ownerIndicator
	}
	m.begin(payload, cfg.Profile, period, cfg.Repeat, nowMs)
	if m.active {
		s.ledOwner = ownerModem
	}
}

// startAcoustic replaces any active acoustic session and takes the buzzer
// from whoever held it. FSK keeps a tone sounding for every symbol; there
// is no silence between symbols.
func (s *service) startAcoustic(cfg types.AcousticTxConfig, nowMs int64) {
	s.stopSoundStimulus(nowMs)
	m := &s.aotx
	m.f0, m.f1 = cfg.F0, cfg.F1
	m.emit = func(on bool) {
		if on {
			s.opts.Buzzer.Tone(m.f1)
		} else {
			s.opts.Buzzer.Tone(m.f0)
		}
	}
	m.off = func() {
		s.opts.Buzzer.NoTone()
		s.buzzerOwner = ownerIndicator
	}
	m.begin(cfg.Payload, types.ProfileFSK, cfg.SymbolMs, cfg.Repeat, nowMs)
	if m.active {
		s.buzzerOwner = ownerModem
	}
}

func halfPeriod(p uint32) uint32 {
	return mathx.CeilDiv(p, 2)
}
