// services/node/node.go
//
// The node service is the firmware engine: one cooperative loop owning
// every piece of mutable device state. All "concurrent" behaviour (two
// modem channels, sensor polling, telemetry, stimulus, indicator refresh)
// is interleaving via elapsed-time checks inside step(); nothing here
// blocks except the explicitly bounded beep call, and no locks exist
// because there is exactly one thread of control over this state.
package node

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"mycobrain-go/bus"
	"mycobrain-go/drivers/bsec"
	"mycobrain-go/types"
	"mycobrain-go/x/evring"
	"mycobrain-go/x/timex"
)

// Version reported by get_version.
const Version = "2.3.0"

// Options wires the engine to its platform. Everything nil-able has a
// degraded-but-total default: a missing I2C bus means both slots report
// absent, missing outputs become no-ops.
type Options struct {
	NodeID string

	I2C         drivers.I2C // may be nil
	AMB, ENV    bsec.Algorithm
	Calibration []byte // vendor state blob, best-effort
	Rate        types.SampleRate

	Pixel  Pixel
	Buzzer Buzzer

	// Restart is invoked by the reboot verb after the acknowledgement has
	// been flushed. On MCU builds it resets the chip; on host builds it
	// exits the process.
	Restart func()

	TickMs              int    // engine tick period, default 2
	TelemetryIntervalMs uint32 // default 5000
	TelemetryEnabled    bool
	StimulusLogDepth    int // default 32
	SkipBootAnimation   bool
}

type service struct {
	conn *bus.Connection
	opts Options

	fmtJSON   bool // false = key=value lines (boot default)
	replyJSON bool // transient: the command being handled arrived as JSON

	slots [2]*slot
	ind   indicator
	optx  modemSession
	aotx  modemSession
	pat   patternSession
	stim  stimulusEngine
	tele  telemetry

	ledOwner    owner
	buzzerOwner owner

	bootMs int64
}

func newService(conn *bus.Connection, opts Options) *service {
	if opts.Pixel == nil {
		opts.Pixel = nullPixel{}
	}
	if opts.Buzzer == nil {
		opts.Buzzer = nullBuzzer{}
	}
	if opts.TickMs <= 0 {
		opts.TickMs = 2
	}
	if opts.TelemetryIntervalMs == 0 {
		opts.TelemetryIntervalMs = 5000
	}
	if opts.StimulusLogDepth <= 0 {
		opts.StimulusLogDepth = 32
	}
	s := &service{
		conn:   conn,
		opts:   opts,
		bootMs: timex.NowMs(),
	}
	s.ind.mode = types.IndicatorStateDriven
	s.tele.enabled = opts.TelemetryEnabled
	s.tele.intervalMs = opts.TelemetryIntervalMs
	s.stim.log = evring.New(opts.StimulusLogDepth)
	return s
}

// Run boots the engine and blocks until ctx is cancelled. It is the only
// goroutine that ever touches device state.
func Run(ctx context.Context, conn *bus.Connection, opts Options) {
	s := newService(conn, opts)
	s.bootAnimation()
	s.initSlots()
	s.publishState("ready", "boot_complete")
	s.loop(ctx)
}

func (s *service) loop(ctx context.Context) {
	inSub := s.conn.Subscribe(bus.T("console", "in"))
	defer s.conn.Unsubscribe(inSub)

	tick := time.NewTicker(time.Duration(s.opts.TickMs) * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled")
			return
		case msg := <-inSub.Channel():
			line, ok := msg.Payload.(string)
			if !ok {
				continue
			}
			s.dispatchLine(line, timex.NowMs())
		case <-tick.C:
			s.step(timex.NowMs())
		}
	}
}

// step is one loop iteration: poll sensors, advance due modem and
// stimulus sessions, refresh the indicator, emit due telemetry. A failure
// in any one subsystem is local to it; the others still run.
func (s *service) step(nowMs int64) {
	s.pollSlots(nowMs)
	s.optx.tick(nowMs)
	s.aotx.tick(nowMs)
	s.tickPattern(nowMs)
	s.tickStimulus(nowMs)
	s.refreshIndicator(nowMs)
	s.tickTelemetry(nowMs)
}

// publishState mirrors engine lifecycle onto a retained bus topic.
func (s *service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(bus.T("node", "state"), map[string]any{
		"level":  level,
		"status": status,
		"ts_ms":  timex.NowMs(),
	}, true))
}

// rebootFlushTimeout bounds the wait for the console pump to drain. A
// node without an attached console must still restart.
const rebootFlushTimeout = 250 * time.Millisecond

// reboot flushes the acknowledgement then restarts. The console pump is
// handed a completion channel on {"console","flush"} and closes it once
// everything queued before it has been written; only then (or on
// timeout) does the restart hook run, so the acknowledgement is on the
// wire first. There is no graceful exit beyond that: the restart hook
// does not return on real hardware.
func (s *service) reboot(r response) {
	s.respond(r)
	s.publishState("stopped", "reboot_requested")
	flushed := make(chan struct{})
	s.conn.Publish(s.conn.NewMessage(bus.T("console", "flush"), flushed, false))
	select {
	case <-flushed:
	case <-time.After(rebootFlushTimeout):
	}
	if s.opts.Restart != nil {
		s.opts.Restart()
	}
}
