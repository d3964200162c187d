package node

import (
	"time"

	"mycobrain-go/types"
	"mycobrain-go/x/mathx"
)

// indicator holds the RGB output mode. In state-driven mode the colour is
// derived fresh on every refresh tick from slot state; nothing is cached
// across a mode change, so the machine is self-healing.
type indicator struct {
	mode   types.IndicatorMode
	manual types.Color // last colour set by `led rgb`
	color  types.Color // last colour actually driven
}

const blinkPeriodMs = 250 // begin-failure blink, on/off
const pulsePeriodMs = 2000

var (
	colorRed   = types.Color{R: 255}
	colorBlue  = types.Color{B: 255}
	colorAmber = types.Color{R: 255, G: 120}
	colorGreen = types.Color{G: 160}
)

func (s *service) setIndicatorMode(m types.IndicatorMode) {
	s.ind.mode = m
}

// setManualColor implements `led rgb`: it switches to manual mode as a
// side effect, and the next refresh drives the colour. A manual write is
// a writer like any other, so it reclaims the pixel, ending any optical
// session, pattern or light stimulus in flight.
func (s *service) setManualColor(c types.Color, nowMs int64) {
	s.optx.stop()
	s.stopPattern()
	s.stopLightStimulus(nowMs)
	s.ind.mode = types.IndicatorManual
	s.ind.manual = c
}

func (s *service) indicatorState() types.IndicatorState {
	return types.IndicatorState{Mode: s.ind.mode, Color: s.ind.color}
}

// refreshIndicator recomputes and drives the LED, unless a modem or
// stimulus session currently owns it.
func (s *service) refreshIndicator(nowMs int64) {
	c := s.deriveIndicatorColor(nowMs)
	s.ind.color = c
	if s.ledOwner != ownerIndicator {
		return
	}
	if c == (types.Color{}) {
		s.opts.Pixel.Off()
		return
	}
	s.opts.Pixel.Set(c)
}

func (s *service) deriveIndicatorColor(nowMs int64) types.Color {
	switch s.ind.mode {
	case types.IndicatorOff:
		return types.Color{}
	case types.IndicatorManual:
		return s.ind.manual
	}
	return s.stateDrivenColor(nowMs)
}

// stateDrivenColor is the priority-ordered decision table. It inspects
// the slots directly each tick; there is no stored transition history.
func (s *service) stateDrivenColor(nowMs int64) types.Color {
	var anyPresent, anyBeginFailed, anyAwaiting, anySubFailed bool
	for _, sl := range s.slots {
		if sl == nil {
			continue
		}
		st := sl.status
		if st.Present {
			anyPresent = true
			if !st.BeginOk {
				anyBeginFailed = true
			}
		}
		if sl.awaitingFirstReading() {
			anyAwaiting = true
		}
		if st.BeginOk && !st.SubscriptionOk {
			anySubFailed = true
		}
	}

	phase := uint32(nowMs - s.bootMs)
	switch {
	case !anyPresent:
		return breathe(colorRed, phase)
	case anyBeginFailed:
		if (nowMs/blinkPeriodMs)%2 == 0 {
			return colorRed
		}
		return types.Color{}
	case anyAwaiting:
		return breathe(colorBlue, phase)
	case anySubFailed:
		return colorAmber
	default:
		return colorGreen
	}
}

// breathe scales a colour with an elapsed-time triangle wave.
func breathe(c types.Color, phaseMs uint32) types.Color {
	level := mathx.TriWave8(phaseMs, pulsePeriodMs)
	// Keep a faint floor so the pulse never fully disappears.
	level = mathx.Max(level, 8)
	return types.Color{
		R: mathx.Scale8(c.R, level),
		G: mathx.Scale8(c.G, level),
		B: mathx.Scale8(c.B, level),
	}
}

// bootAnimation runs the one synchronous blink sequence before the loop
// starts: a short fade-in/out per primary colour. Nothing else in the
// engine sleeps.
func (s *service) bootAnimation() {
	if s.opts.SkipBootAnimation {
		return
	}
	for _, c := range []types.Color{colorRed, colorGreen, colorBlue} {
		for step := 0; step <= 16; step++ {
			level := mathx.TriWave8(uint32(step), 17)
			s.opts.Pixel.Set(types.Color{
				R: mathx.Scale8(c.R, level),
				G: mathx.Scale8(c.G, level),
				B: mathx.Scale8(c.B, level),
			})
			time.Sleep(10 * time.Millisecond)
		}
	}
	s.opts.Pixel.Off()
}
