package node

import "mycobrain-go/types"

// patternSession repeats a visual pattern on the pixel. Patterns ride
// the optical channel: starting one ends any data session or light
// stimulus, and the LED is owned until the pattern is stopped. Unlike a
// data session a pattern never ends on its own.
type patternSession struct {
	active   bool
	name     string
	periodMs uint32
	lastMs   int64
	step     uint32
	color    types.Color
}

// Pattern step periods. Modem-driven patterns step at 10 Hz; the slower
// standalone LED patterns step at 5 Hz.
const (
	optxPatternPeriodMs = 100
	ledPatternPeriodMs  = 200
)

func (s *service) startPattern(name string, c types.Color, periodMs uint32, nowMs int64) {
	s.optx.stop()
	s.stopLightStimulus(nowMs)
	s.pat = patternSession{active: true, name: name, periodMs: periodMs, color: c}
	s.ledOwner = ownerModem
}

// stopPattern is idempotent and hands the LED back to the indicator.
func (s *service) stopPattern() {
	if !s.pat.active {
		return
	}
	s.pat = patternSession{}
	s.opts.Pixel.Off()
	s.ledOwner = ownerIndicator
}

func (s *service) tickPattern(nowMs int64) {
	p := &s.pat
	if !p.active {
		return
	}
	if nowMs-p.lastMs < int64(p.periodMs) {
		return
	}
	p.lastMs = nowMs

	switch p.name {
	case "pulse":
		if p.step%2 == 0 {
			s.opts.Pixel.Set(p.color)
		} else {
			s.opts.Pixel.Off()
		}
		p.step++
	case "beacon":
		// One white flash per ten steps.
		if p.step%10 == 0 {
			s.opts.Pixel.Set(types.Color{R: 255, G: 255, B: 255})
		} else {
			s.opts.Pixel.Off()
		}
		p.step++
	default: // sweep and rainbow walk the hue wheel
		s.opts.Pixel.Set(hueColor(p.step % 360))
		p.step += 5
	}
}

// hueColor converts a hue angle in degrees to a full-value, full-
// saturation RGB colour.
func hueColor(deg uint32) types.Color {
	hue := float32(deg) / 360
	h := int(hue * 6)
	f := hue*6 - float32(h)
	q := uint8(255 * (1 - f))
	t := uint8(255 * f)
	switch h % 6 {
	case 0:
		return types.Color{R: 255, G: t}
	case 1:
		return types.Color{R: q, G: 255}
	case 2:
		return types.Color{G: 255, B: t}
	case 3:
		return types.Color{G: q, B: 255}
	case 4:
		return types.Color{R: t, B: 255}
	default:
		return types.Color{R: 255, B: q}
	}
}
