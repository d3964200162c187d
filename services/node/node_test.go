package node

import (
	"encoding/json"
	"strings"
	"testing"

	"mycobrain-go/bus"
	"mycobrain-go/drivers/bsec"
	"mycobrain-go/types"
)

type fakePixel struct {
	last types.Color
	lit  bool
	sets int
	offs int
}

func (p *fakePixel) Set(c types.Color) { p.last, p.lit = c, true; p.sets++ }
func (p *fakePixel) Off()              { p.lit = false; p.offs++ }

type fakeBuzzer struct {
	tone     uint16
	sounding bool
	noTones  int
	beeps    []uint16
}

func (b *fakeBuzzer) Tone(f uint16) { b.tone, b.sounding = f, true }
func (b *fakeBuzzer) NoTone()       { b.sounding = false; b.noTones++ }
func (b *fakeBuzzer) Beep(f uint16, ms uint32) {
	b.beeps = append(b.beeps, f)
}

// rig drives the engine with synthetic time: no ticker, no sleeping.
type rig struct {
	t   *testing.T
	s   *service
	out *bus.Subscription
	px  *fakePixel
	bz  *fakeBuzzer
	now int64
}

func newRig(t *testing.T, opts Options) *rig {
	t.Helper()
	b := bus.NewBus(256)
	conn := b.NewConnection("test")
	out := conn.Subscribe(bus.T("console", "out"))

	px := &fakePixel{}
	bz := &fakeBuzzer{}
	if opts.Pixel == nil {
		opts.Pixel = px
	}
	if opts.Buzzer == nil {
		opts.Buzzer = bz
	}
	if opts.NodeID == "" {
		opts.NodeID = "node-under-test"
	}
	opts.SkipBootAnimation = true

	s := newService(conn, opts)
	s.initSlots()
	return &rig{t: t, s: s, out: out, px: px, bz: bz, now: 1000}
}

func (r *rig) send(line string) { r.s.dispatchLine(line, r.now) }

// run advances synthetic time in 2 ms engine ticks.
func (r *rig) run(ms int64) {
	end := r.now + ms
	for r.now < end {
		r.now += 2
		r.s.step(r.now)
	}
}

func (r *rig) reply() string {
	r.t.Helper()
	select {
	case m := <-r.out.Channel():
		return m.Payload.(string)
	default:
		r.t.Fatal("no reply queued")
		return ""
	}
}

func (r *rig) jsonReply() map[string]any {
	r.t.Helper()
	line := r.reply()
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		r.t.Fatalf("reply is not JSON: %q", line)
	}
	return m
}

func (r *rig) drain() []string {
	var out []string
	for {
		select {
		case m := <-r.out.Channel():
			out = append(out, m.Payload.(string))
		default:
			return out
		}
	}
}

func TestPingJSONRoundTrip(t *testing.T) {
	r := newRig(t, Options{})
	r.send(`{"cmd":"ping","id":7}`)
	m := r.jsonReply()
	if m["ok"] != true || m["pong"] != true {
		t.Fatalf("unexpected ping reply: %v", m)
	}
	if m["id"] != float64(7) {
		t.Fatalf("id not echoed: %v", m["id"])
	}
}

func TestBadJSONLine(t *testing.T) {
	r := newRig(t, Options{})
	r.send(`{"cmd": nope}`)
	m := r.jsonReply()
	if m["ok"] != false || m["error"] != "bad_json" {
		t.Fatalf("expected bad_json, got %v", m)
	}
}

func TestUnknownCommand(t *testing.T) {
	r := newRig(t, Options{})
	r.send("frobnicate")
	if got := r.reply(); !strings.Contains(got, "unknown_cmd") {
		t.Fatalf("expected unknown_cmd, got %q", got)
	}
}

func TestUnknownJSONFieldsIgnored(t *testing.T) {
	r := newRig(t, Options{})
	r.send(`{"cmd":"ping","trace":"abc","hops":3}`)
	if m := r.jsonReply(); m["ok"] != true {
		t.Fatalf("extra fields must not fail a command: %v", m)
	}
}

func TestCLIAndJSONLedEquivalence(t *testing.T) {
	r := newRig(t, Options{})

	r.send("led rgb 10 20 30")
	r.reply()
	if r.s.ind.mode != types.IndicatorManual {
		t.Fatalf("led rgb must imply manual mode, got %v", r.s.ind.mode)
	}
	want := types.Color{R: 10, G: 20, B: 30}
	if r.s.ind.manual != want {
		t.Fatalf("manual colour = %v, want %v", r.s.ind.manual, want)
	}

	r.send(`{"cmd":"set_neopixel","r":40,"g":50,"b":60}`)
	r.reply()
	want = types.Color{R: 40, G: 50, B: 60}
	if r.s.ind.manual != want {
		t.Fatalf("set_neopixel colour = %v, want %v", r.s.ind.manual, want)
	}
}

func TestLedRGBOutOfRange(t *testing.T) {
	r := newRig(t, Options{})
	r.send("led rgb 300 0 0")
	got := r.reply()
	if !strings.Contains(got, "out_of_range") || !strings.Contains(got, "r must be 0-255") {
		t.Fatalf("expected named range violation, got %q", got)
	}
	if r.s.ind.mode == types.IndicatorManual {
		t.Fatal("rejected command must not change mode")
	}
}

func TestManualThenBackToStateDriven(t *testing.T) {
	r := newRig(t, Options{})
	r.send("led rgb 5 5 5")
	r.reply()
	r.send("led mode state")
	r.reply()
	if r.s.ind.mode != types.IndicatorStateDriven {
		t.Fatalf("mode = %v, want state-driven", r.s.ind.mode)
	}
}

func TestVerbAliases(t *testing.T) {
	r := newRig(t, Options{})

	r.send("identity")
	if got := r.reply(); !strings.Contains(got, "node-under-test") {
		t.Fatalf("identity should return the node id, got %q", got)
	}

	r.send("scan")
	if got := r.reply(); !strings.Contains(got, "count=0") {
		t.Fatalf("scan without a bus should report zero, got %q", got)
	}

	restarts := 0
	r2 := newRig(t, Options{Restart: func() { restarts++ }})
	r2.send("restart")
	if restarts != 1 {
		t.Fatalf("restart alias did not invoke reboot, restarts=%d", restarts)
	}
}

func TestBeepDefaults(t *testing.T) {
	r := newRig(t, Options{})
	r.send("beep")
	r.reply()
	if len(r.bz.beeps) != 1 || r.bz.beeps[0] != 1000 {
		t.Fatalf("beep defaults wrong: %v", r.bz.beeps)
	}

	r.send(`{"cmd":"set_buzzer","hz":2500,"ms":50}`)
	r.reply()
	if len(r.bz.beeps) != 2 || r.bz.beeps[1] != 2500 {
		t.Fatalf("set_buzzer did not beep: %v", r.bz.beeps)
	}

	r.send("beep 0")
	if got := r.reply(); !strings.Contains(got, "out_of_range") {
		t.Fatalf("zero frequency must be rejected, got %q", got)
	}
}

func TestFmtSwitch(t *testing.T) {
	r := newRig(t, Options{})

	r.send("fmt json")
	if m := r.jsonReply(); m["fmt"] != "json" {
		t.Fatalf("fmt ack wrong: %v", m)
	}

	r.send("ping")
	if m := r.jsonReply(); m["pong"] != true {
		t.Fatalf("json mode ping wrong: %v", m)
	}

	r.send("fmt lines")
	got := r.reply()
	if !strings.Contains(got, "ok=true") || !strings.Contains(got, "fmt=lines") {
		t.Fatalf("lines ack wrong: %q", got)
	}
}

func TestOptxStopIdempotent(t *testing.T) {
	r := newRig(t, Options{})
	for i := 0; i < 2; i++ {
		r.send("optx stop")
		if got := r.reply(); !strings.Contains(got, "ok=true") {
			t.Fatalf("stop %d should succeed, got %q", i, got)
		}
	}
	if r.s.optx.active {
		t.Fatal("channel must stay idle")
	}
}

func TestOpticalOOKSessionRunsToCompletion(t *testing.T) {
	r := newRig(t, Options{})

	// 0xAA raw (framing off), 8 alternating bits at 100 Hz = 10 ms/symbol.
	r.send("optx start qg== ook 100 0 0")
	r.reply()
	if !r.s.optx.active || r.s.ledOwner != ownerModem {
		t.Fatal("session did not take the LED")
	}

	r.run(150)
	if r.s.optx.active {
		t.Fatal("non-repeating session must auto-stop")
	}
	if r.s.ledOwner != ownerIndicator {
		t.Fatal("LED ownership must return to the indicator")
	}
	st := r.s.optx.status()
	if st.Active || st.BitsSent != 8 || st.BytesSent != 1 {
		t.Fatalf("post-mortem counters wrong: %+v", st)
	}
}

func TestManchesterDoublesSymbolRate(t *testing.T) {
	r := newRig(t, Options{})
	r.send("optx start qg== manchester 100 0 0")
	r.reply()
	if r.s.optx.periodMs != 5 {
		t.Fatalf("manchester period = %d ms, want 5", r.s.optx.periodMs)
	}
	r.run(150)
	if st := r.s.optx.status(); st.BitsSent != 8 {
		t.Fatalf("bits counted per symbol, not per half-symbol: %+v", st)
	}
}

func TestOpticalFramingDefault(t *testing.T) {
	r := newRig(t, Options{})
	r.send("optx start qg== ook 100")
	r.reply()
	// Preamble (2) + payload (1) + CRC16 (2).
	if got := len(r.s.optx.payload); got != 5 {
		t.Fatalf("framed payload length = %d, want 5", got)
	}
	if r.s.optx.payload[0] != 0xAA || r.s.optx.payload[1] != 0xAA {
		t.Fatalf("frame must open with the preamble: %x", r.s.optx.payload)
	}
}

func TestOpticalRejectsFSK(t *testing.T) {
	r := newRig(t, Options{})
	r.send("optx start qg== fsk 100")
	if got := r.reply(); !strings.Contains(got, "bad_arg") {
		t.Fatalf("fsk on the optical channel must be rejected, got %q", got)
	}
}

func TestAcousticFSKSession(t *testing.T) {
	r := newRig(t, Options{})
	r.send("aotx start qg== 10 1000 2000")
	r.reply()
	if !r.s.aotx.active || r.s.buzzerOwner != ownerModem {
		t.Fatal("session did not take the buzzer")
	}

	r.run(12)
	// First bit of 0xAA is 1: carrier at f1.
	if !r.bz.sounding || r.bz.tone != 2000 {
		t.Fatalf("first symbol should sound f1, tone=%d sounding=%v", r.bz.tone, r.bz.sounding)
	}

	r.run(150)
	if r.s.aotx.active || r.bz.sounding {
		t.Fatal("completed session must silence the buzzer")
	}
	if r.s.buzzerOwner != ownerIndicator {
		t.Fatal("buzzer ownership must return")
	}
}

func TestModemTakesLedFromStimulus(t *testing.T) {
	r := newRig(t, Options{})
	r.send(`{"cmd":"stim.light","on_ms":100,"off_ms":100}`)
	r.reply()
	if !r.s.stim.light.active || r.s.ledOwner != ownerStimulus {
		t.Fatal("stimulus did not take the LED")
	}

	r.send("optx start qg== ook 100")
	r.reply()
	if r.s.stim.light.active {
		t.Fatal("starting a modem session must end the light stimulus")
	}
	if r.s.ledOwner != ownerModem {
		t.Fatalf("LED owner = %v, want modem", r.s.ledOwner)
	}
}

func TestStimulusRepeatCountAndLog(t *testing.T) {
	r := newRig(t, Options{})
	r.send("stim logging on")
	r.reply()
	r.send(`{"cmd":"stim.light","on_ms":100,"off_ms":100,"repeat":2}`)
	r.reply()

	r.run(600)
	if r.s.stim.light.active {
		t.Fatal("repeat budget exhausted, stimulus must stop itself")
	}
	if r.px.lit {
		t.Fatal("pixel must be dark after the program ends")
	}

	tags := map[string]bool{}
	for _, e := range r.s.stim.log.Snapshot() {
		tags[e.Tag] = true
	}
	for _, want := range []string{"light_start", "light_on", "light_off", "light_stop"} {
		if !tags[want] {
			t.Fatalf("event log missing %q: %v", want, tags)
		}
	}
}

func TestStimulusStopIdempotent(t *testing.T) {
	r := newRig(t, Options{})
	for i := 0; i < 2; i++ {
		r.send("stim stop")
		if got := r.reply(); !strings.Contains(got, "ok=true") {
			t.Fatalf("stop %d should succeed, got %q", i, got)
		}
	}
}

func TestCombinedStimulusSharedStart(t *testing.T) {
	r := newRig(t, Options{})
	r.send(`{"cmd":"stim.combined","light":{"on_ms":100,"off_ms":100},"sound":{"hz":500,"on_ms":100,"off_ms":100}}`)
	r.reply()
	if !r.s.stim.light.active || !r.s.stim.sound.active {
		t.Fatal("both channels must run")
	}
	if r.s.stim.light.startMs != r.s.stim.sound.startMs {
		t.Fatal("sync start instants must coincide")
	}
}

func TestTelemetryPeriodBounds(t *testing.T) {
	r := newRig(t, Options{})
	cases := []struct {
		ms int64
		ok bool
	}{
		{199, false},
		{200, true},
		{60000, true},
		{60001, false},
	}
	for _, tc := range cases {
		if err := r.s.setTelemetryInterval(tc.ms); (err == nil) != tc.ok {
			t.Fatalf("period %d: ok=%v, want %v", tc.ms, err == nil, tc.ok)
		}
	}
	if r.s.tele.intervalMs != 60000 {
		t.Fatalf("last accepted period should stick, got %d", r.s.tele.intervalMs)
	}

	r.send("telemetry period 100")
	if got := r.reply(); !strings.Contains(got, "out_of_range") || !strings.Contains(got, "200-60000") {
		t.Fatalf("rejection must name the legal range, got %q", got)
	}
}

func TestTelemetrySeqStrictlyMonotonic(t *testing.T) {
	r := newRig(t, Options{TelemetryEnabled: true, TelemetryIntervalMs: 200})
	r.send("fmt json")
	r.jsonReply()

	r.run(1100)
	var seqs []float64
	for _, line := range r.drain() {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("frame not JSON: %q", line)
		}
		if m["type"] != "tele" {
			continue
		}
		seqs = append(seqs, m["seq"].(float64))
	}
	if len(seqs) < 4 {
		t.Fatalf("expected several frames, got %d", len(seqs))
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Fatalf("seq must advance by exactly one: %v", seqs)
		}
	}
}

func TestTelemetryAbsentSensorsAreNull(t *testing.T) {
	r := newRig(t, Options{TelemetryEnabled: true, TelemetryIntervalMs: 200})
	r.send("fmt json")
	r.jsonReply()

	r.run(250)
	frames := r.drain()
	if len(frames) == 0 {
		t.Fatal("no frame emitted")
	}
	if !strings.Contains(frames[0], `"temperature":null`) {
		t.Fatalf("missing reading must serialize as null: %s", frames[0])
	}
	if !strings.Contains(frames[0], `"i2c_addresses":[]`) {
		t.Fatalf("empty address list must not be omitted: %s", frames[0])
	}
}

func TestPressureMagnitudeHeuristic(t *testing.T) {
	cases := []struct {
		raw  float32
		want float32
	}{
		{101325, 1013.25}, // Pa
		{10132.5, 1013.25},
		{1013.25, 1013.25}, // already hPa
		{101.325, 1013.25},
		{1.01325, 1013.25}, // bar-like
	}
	for _, tc := range cases {
		got := normalizePressureHpa(tc.raw)
		if diff := got - tc.want; diff > 0.01 || diff < -0.01 {
			t.Fatalf("normalize(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNoSensorsMeansPulsingRed(t *testing.T) {
	r := newRig(t, Options{})
	for _, sl := range r.s.slots {
		if sl.status.Present {
			t.Fatal("no bus wired, slots must be absent")
		}
	}
	c := r.s.stateDrivenColor(r.s.bootMs + 500)
	if c.R == 0 || c.G != 0 || c.B != 0 {
		t.Fatalf("expected a red pulse, got %+v", c)
	}
}

func TestScanIdentifiesKnownParts(t *testing.T) {
	r := newRig(t, Options{
		I2C: &bsec.SimBus{Present: []uint16{0x76}},
		AMB: bsec.NewSim(),
		ENV: bsec.NewSim(),
	})
	r.send(`{"cmd":"i2c_scan"}`)
	m := r.jsonReply()
	devices, ok := m["devices"].([]any)
	if !ok || len(devices) != 1 {
		t.Fatalf("unexpected device list: %v", m["devices"])
	}
	d := devices[0].(map[string]any)
	if d["addr"] != "0x76" || d["part"] != "BME688" {
		t.Fatalf("identification wrong: %v", d)
	}
}

func TestSlotDegradedStatesAndIndicator(t *testing.T) {
	amb, env := bsec.NewSim(), bsec.NewSim()
	amb.IntervalMs, env.IntervalMs = 100, 100
	env.FailSubscribe = true
	r := newRig(t, Options{
		I2C: &bsec.SimBus{Present: []uint16{0x76, 0x77}},
		AMB: amb,
		ENV: env,
	})

	s0, s1 := r.s.slots[0].status, r.s.slots[1].status
	if !s0.Present || !s0.BeginOk || !s0.SubscriptionOk {
		t.Fatalf("primary slot should be healthy: %+v", s0)
	}
	if !s1.Present || !s1.BeginOk || s1.SubscriptionOk {
		t.Fatalf("secondary slot should be subscription-degraded: %+v", s1)
	}

	// Before any sample the begun slots pulse blue.
	c := r.s.stateDrivenColor(r.s.bootMs + 500)
	if c.B == 0 || c.R != 0 {
		t.Fatalf("expected a blue pulse while awaiting first reading, got %+v", c)
	}

	// Once readings flow, the failed subscription shows as solid amber.
	r.run(300)
	if !r.s.slots[0].reading.Valid {
		t.Fatal("simulated sample never arrived")
	}
	c = r.s.stateDrivenColor(r.now)
	if c.R != 255 || c.G == 0 || c.B != 0 {
		t.Fatalf("expected amber, got %+v", c)
	}
}

func TestStatusSnapshot(t *testing.T) {
	r := newRig(t, Options{})
	r.send(`{"cmd":"status"}`)
	m := r.jsonReply()
	if m["version"] != Version || m["node"] != "node-under-test" {
		t.Fatalf("status identity wrong: %v", m)
	}
	if _, ok := m["slots"].([]any); !ok {
		t.Fatalf("status must include slot list: %v", m["slots"])
	}
}

func TestJSONEmptyVerbIsRejected(t *testing.T) {
	r := newRig(t, Options{})
	// A cmd of only dots or whitespace tokenizes to nothing and must be
	// answered, not dispatched.
	for _, line := range []string{`{"cmd":"."}`, `{"cmd":"  "}`, `{"cmd":"..."}`} {
		r.send(line)
		m := r.jsonReply()
		if m["ok"] != false || m["error"] != "missing_arg" {
			t.Fatalf("%s: got %v", line, m)
		}
	}
}

func TestRebootAckFlushedBeforeRestart(t *testing.T) {
	r := newRig(t, Options{})
	ackQueued := make(chan bool, 1)
	restarted := false
	r.s.opts.Restart = func() { restarted = true }

	// Stand in for the console pump: on a flush request, report whether
	// the acknowledgement was already queued, then complete the flush.
	flushSub := r.s.conn.Subscribe(bus.T("console", "flush"))
	go func() {
		msg := <-flushSub.Channel()
		select {
		case <-r.out.Channel():
			ackQueued <- true
		default:
			ackQueued <- false
		}
		if done, ok := msg.Payload.(chan struct{}); ok {
			close(done)
		}
	}()

	r.send("reboot")
	if !restarted {
		t.Fatal("restart hook did not run")
	}
	if !<-ackQueued {
		t.Fatal("acknowledgement was not queued before the flush request")
	}
}

func TestOpticalPatternMode(t *testing.T) {
	r := newRig(t, Options{})

	r.send(`{"cmd":"optx.pattern","name":"pulse","rgb":[0,0,255]}`)
	if m := r.jsonReply(); m["ok"] != true || m["pattern"] != "pulse" {
		t.Fatalf("pattern start failed: %v", m)
	}
	r.run(450)
	if !r.s.pat.active {
		t.Fatal("pattern must run until stopped")
	}
	if r.px.sets == 0 || r.px.offs == 0 {
		t.Fatalf("pulse pattern never toggled the pixel: sets=%d offs=%d", r.px.sets, r.px.offs)
	}
	if r.px.last != (types.Color{B: 255}) {
		t.Fatalf("pattern ignored its colour: %+v", r.px.last)
	}

	r.send(`{"cmd":"optx.status"}`)
	if m := r.jsonReply(); m["pattern"] != "pulse" {
		t.Fatalf("status must name the running pattern: %v", m)
	}

	r.send("optx stop")
	r.reply()
	if r.s.pat.active || r.s.ledOwner != ownerIndicator {
		t.Fatal("stop must end the pattern and return the LED")
	}

	r.send("optx pattern blink")
	if got := r.reply(); !strings.Contains(got, "bad_arg") {
		t.Fatalf("unknown pattern accepted: %q", got)
	}
}

func TestLedPatternRainbow(t *testing.T) {
	r := newRig(t, Options{})
	r.send("led pattern rainbow")
	r.reply()
	r.run(450)
	if !r.s.pat.active || r.s.pat.name != "rainbow" {
		t.Fatal("rainbow pattern did not start")
	}
	if r.px.sets < 2 {
		t.Fatalf("hue sweep should keep driving the pixel, sets=%d", r.px.sets)
	}
	// A data session displaces the pattern on the shared channel.
	r.send("optx start qg== ook 100 0 0")
	r.reply()
	if r.s.pat.active {
		t.Fatal("starting a data session must end the pattern")
	}
}

func TestStimStatusReportsElapsed(t *testing.T) {
	r := newRig(t, Options{})
	r.send("stim light 200 200")
	r.reply()
	r.run(100)
	r.send(`{"cmd":"stim.status"}`)
	m := r.jsonReply()
	if got := m["light_elapsed_ms"]; got != float64(100) {
		t.Fatalf("light_elapsed_ms = %v, want 100", got)
	}
	if got := m["sound_elapsed_ms"]; got != float64(0) {
		t.Fatalf("idle channel must report 0 elapsed, got %v", got)
	}
}

func TestManualWriteReclaimsLed(t *testing.T) {
	r := newRig(t, Options{})
	r.send("optx start qg== ook 10 1")
	r.reply()
	if !r.s.optx.active {
		t.Fatal("session did not start")
	}

	// The output belongs to whichever writer wrote last: a manual write
	// ends the session and takes the pixel.
	r.send("led rgb 1 2 3")
	r.reply()
	if r.s.optx.active {
		t.Fatal("manual write must end the optical session")
	}
	if r.s.ledOwner != ownerIndicator {
		t.Fatal("manual write must reclaim the LED")
	}
	r.run(10)
	if r.px.last != (types.Color{R: 1, G: 2, B: 3}) {
		t.Fatalf("indicator did not drive the manual colour: %+v", r.px.last)
	}
}

func TestModemRejectsEmptyPayload(t *testing.T) {
	var m modemSession
	m.begin(nil, types.ProfileOOK, 10, true, 0)
	if m.active {
		t.Fatal("empty payload must not start a session")
	}
	m.tick(100) // must be a no-op on the refused session
	if m.bitsSent != 0 {
		t.Fatalf("refused session advanced: bits=%d", m.bitsSent)
	}
}
