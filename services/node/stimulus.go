package node

import (
	"mycobrain-go/types"
	"mycobrain-go/x/evring"
	"mycobrain-go/x/mathx"
)

// stimChannel is one running pulse-train program. The light and sound
// channels are independent; a combined start with sync aligns their
// start instants so on-edges land on the same tick.
type stimChannel struct {
	active  bool
	cfg     types.StimulusProgram
	startMs int64
	cycles  uint16
	phaseOn bool
}

// stimulusEngine drives organism-experiment pulse trains. It is fully
// separate from the modems and never shares an output with them at the
// same time: starting a program takes ownership of that output.
type stimulusEngine struct {
	light stimChannel
	sound stimChannel

	logging bool
	log     *evring.Ring
}

// elapsedMs reports how long the program has been running, 0 when idle.
func (c *stimChannel) elapsedMs(nowMs int64) int64 {
	if !c.active {
		return 0
	}
	return nowMs - c.startMs
}

func (e *stimulusEngine) record(nowMs int64, tag string) {
	if e.logging && e.log != nil {
		e.log.Append(nowMs, tag)
	}
}

func (s *service) startLightStimulus(cfg types.StimulusProgram, nowMs int64) {
	// An optical session, a pattern and a light stimulus can never drive
	// the pixel at the same time.
	s.optx.stop()
	s.stopPattern()
	cfg.Kind = types.StimulusLight
	s.stim.light = stimChannel{active: true, cfg: cfg, startMs: nowMs}
	s.ledOwner = ownerStimulus
	s.stim.record(nowMs, "light_start")
}

func (s *service) startSoundStimulus(cfg types.StimulusProgram, nowMs int64) {
	s.aotx.stop()
	cfg.Kind = types.StimulusSound
	s.stim.sound = stimChannel{active: true, cfg: cfg, startMs: nowMs}
	s.buzzerOwner = ownerStimulus
	s.stim.record(nowMs, "sound_start")
}

// startCombinedStimulus starts both channels; with sync the programs
// share one start instant so their on-edges coincide.
func (s *service) startCombinedStimulus(light, sound types.StimulusProgram, sync bool, nowMs int64) {
	s.startLightStimulus(light, nowMs)
	s.startSoundStimulus(sound, nowMs)
	if sync {
		s.stim.light.startMs = nowMs
		s.stim.sound.startMs = nowMs
	}
}

func (s *service) stopLightStimulus(nowMs int64) {
	if !s.stim.light.active {
		return
	}
	s.stim.light.active = false
	s.opts.Pixel.Off()
	s.ledOwner = ownerIndicator
	s.stim.record(nowMs, "light_stop")
}

func (s *service) stopSoundStimulus(nowMs int64) {
	if !s.stim.sound.active {
		return
	}
	s.stim.sound.active = false
	s.opts.Buzzer.NoTone()
	s.buzzerOwner = ownerIndicator
	s.stim.record(nowMs, "sound_stop")
}

// stopAllStimulus is idempotent and safe when nothing is running.
func (s *service) stopAllStimulus(nowMs int64) {
	s.stopLightStimulus(nowMs)
	s.stopSoundStimulus(nowMs)
}

func (s *service) tickStimulus(nowMs int64) {
	if s.stim.light.active {
		s.tickLight(nowMs)
	}
	if s.stim.sound.active {
		s.tickSound(nowMs)
	}
}

// phasePos computes where a channel sits in its schedule. done means the
// repeat budget is exhausted.
func (c *stimChannel) phasePos(nowMs int64) (inDelay bool, pos, cycleDur uint32, done bool) {
	elapsed := nowMs - c.startMs
	if elapsed < int64(c.cfg.StartDelayMs) {
		return true, 0, 0, false
	}
	stimMs := uint32(elapsed) - c.cfg.StartDelayMs
	cycleDur = c.cfg.OnMs + c.cfg.OffMs
	if cycleDur == 0 {
		return false, 0, 0, true
	}
	cycle := uint16(stimMs / cycleDur)
	if cycle > c.cycles {
		c.cycles = cycle
		if c.cfg.RepeatCount > 0 && c.cycles >= c.cfg.RepeatCount {
			return false, 0, cycleDur, true
		}
	}
	return false, stimMs % cycleDur, cycleDur, false
}

func (s *service) tickLight(nowMs int64) {
	c := &s.stim.light
	inDelay, pos, _, done := c.phasePos(nowMs)
	if inDelay {
		return
	}
	if done {
		s.stopLightStimulus(nowMs)
		return
	}
	if pos < c.cfg.OnMs {
		if !c.phaseOn {
			c.phaseOn = true
			s.stim.record(nowMs, "light_on")
		}
		s.opts.Pixel.Set(rampColor(c.cfg, pos))
	} else {
		if c.phaseOn {
			c.phaseOn = false
			s.stim.record(nowMs, "light_off")
		}
		s.opts.Pixel.Off()
	}
}

func (s *service) tickSound(nowMs int64) {
	c := &s.stim.sound
	inDelay, pos, _, done := c.phasePos(nowMs)
	if inDelay {
		return
	}
	if done {
		s.stopSoundStimulus(nowMs)
		return
	}
	if pos < c.cfg.OnMs {
		if !c.phaseOn {
			c.phaseOn = true
			s.stim.record(nowMs, "sound_on")
		}
		s.opts.Buzzer.Tone(rampFreq(c.cfg, pos))
	} else {
		if c.phaseOn {
			c.phaseOn = false
			s.stim.record(nowMs, "sound_off")
		}
		s.opts.Buzzer.NoTone()
	}
}

// rampColor applies the ramp shoulders inside the on-phase: brightness
// rises over the first RampMs and falls over the last RampMs.
func rampColor(cfg types.StimulusProgram, pos uint32) types.Color {
	level := rampLevel(cfg, pos)
	return types.Color{
		R: mathx.Scale8(cfg.Color.R, level),
		G: mathx.Scale8(cfg.Color.G, level),
		B: mathx.Scale8(cfg.Color.B, level),
	}
}

// rampFreq bends the tone by SweepHz across the ramp shoulders.
func rampFreq(cfg types.StimulusProgram, pos uint32) uint16 {
	if cfg.SweepHz == 0 {
		return cfg.FreqHz
	}
	level := rampLevel(cfg, pos)
	return cfg.FreqHz + uint16(uint32(cfg.SweepHz)*uint32(level)/255)
}

func rampLevel(cfg types.StimulusProgram, pos uint32) uint8 {
	r := cfg.RampMs
	if r == 0 || r*2 > cfg.OnMs {
		return 255
	}
	switch {
	case pos < r:
		return uint8(pos * 255 / r)
	case cfg.OnMs-pos < r:
		return uint8((cfg.OnMs - pos) * 255 / r)
	default:
		return 255
	}
}
