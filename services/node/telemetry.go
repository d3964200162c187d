package node

import (
	"mycobrain-go/errcode"
	"mycobrain-go/types"
)

// Telemetry interval bounds (ms). Set requests outside the range are
// rejected with the constraint named.
const (
	teleMinIntervalMs = 200
	teleMaxIntervalMs = 60000
)

type telemetry struct {
	enabled    bool
	intervalMs uint32
	seq        uint32
	lastMs     int64
}

// setTelemetryInterval validates and applies a new period.
func (s *service) setTelemetryInterval(ms int64) error {
	if ms < teleMinIntervalMs || ms > teleMaxIntervalMs {
		return errcode.With(errcode.OutOfRange, "period must be 200-60000 ms")
	}
	s.tele.intervalMs = uint32(ms)
	return nil
}

// tickTelemetry emits one frame when the interval has elapsed.
func (s *service) tickTelemetry(nowMs int64) {
	t := &s.tele
	if !t.enabled {
		return
	}
	if t.lastMs != 0 && nowMs-t.lastMs < int64(t.intervalMs) {
		return
	}
	t.lastMs = nowMs
	s.emitFrame(s.buildFrame(nowMs))
}

// buildFrame snapshots sensors and device state. Absent or stale readings
// surface as explicit nulls via EnvReport, never as omitted keys.
func (s *service) buildFrame(nowMs int64) types.TelemetryFrame {
	s.tele.seq++ // strictly monotonic for the process lifetime

	amb, env := s.slots[0], s.slots[1]
	frame := types.TelemetryFrame{
		Type: "tele",
		Seq:  s.tele.seq,
		TMs:  nowMs,
		Node: s.opts.NodeID,
		Env:  amb.reading.Report(),
		Slots: map[string]types.EnvReport{
			amb.status.Name: amb.reading.Report(),
			env.status.Name: env.reading.Report(),
		},
		I2CAddresses: presentAddresses(s.slots),
		Health: map[string]any{
			"uptime_ms":   nowMs - s.bootMs,
			"indicator":   s.ind.mode.String(),
			"optx_active": s.optx.active,
			"aotx_active": s.aotx.active,
			"stim_active": s.stim.light.active || s.stim.sound.active,
			"slots":       slotStatuses(s.slots),
		},
	}
	// Flattened convenience fields mirror the primary slot.
	frame.Temperature = frame.Env.TempC
	frame.Humidity = frame.Env.HumidityPct
	frame.Pressure = frame.Env.PressureHpa
	frame.GasResistance = frame.Env.GasOhm
	return frame
}

func presentAddresses(slots [2]*slot) []uint16 {
	out := []uint16{}
	for _, sl := range slots {
		if sl != nil && sl.status.Present {
			out = append(out, sl.status.Addr)
		}
	}
	return out
}

func slotStatuses(slots [2]*slot) []types.SlotStatus {
	out := make([]types.SlotStatus, 0, len(slots))
	for _, sl := range slots {
		if sl != nil {
			out = append(out, sl.status)
		}
	}
	return out
}
