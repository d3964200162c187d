// services/node/router.go
//
// Command dispatch. Every console line is either a CLI command (tokens,
// shell-style quoting) or a JSON command object (the line starts with
// '{'). Both forms resolve to the same handlers, so "led rgb 10 20 30"
// and {"cmd":"set_neopixel","r":10,"g":20,"b":30} are equivalent.
package node

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"mycobrain-go/drivers/bsec"
	"mycobrain-go/errcode"
	"mycobrain-go/types"
	"mycobrain-go/x/mathx"
)

// cmdReq is one parsed command. JSON commands keep the original object so
// named parameters stay available; CLI commands carry positional args.
type cmdReq struct {
	id   any
	args []string       // tokens after the primary verb
	obj  map[string]any // nil for CLI commands
}

// str reads a string parameter: the named JSON field first, then the
// positional token, then the default. Unknown JSON fields are ignored
// throughout, so senders may attach extra metadata freely.
func (r *cmdReq) str(i int, key, def string) string {
	if r.obj != nil {
		if v, ok := r.obj[key].(string); ok {
			return v
		}
	}
	if i >= 0 && i < len(r.args) {
		return r.args[i]
	}
	return def
}

func (r *cmdReq) num(i int, key string, def int64) (int64, error) {
	if r.obj != nil {
		if v, ok := r.obj[key]; ok {
			if f, ok := v.(float64); ok {
				return int64(f), nil
			}
			return 0, errcode.With(errcode.BadArg, key+" must be a number")
		}
	}
	if i >= 0 && i < len(r.args) {
		n, err := strconv.ParseInt(r.args[i], 10, 64)
		if err != nil {
			return 0, errcode.With(errcode.BadArg, key+" must be an integer")
		}
		return n, nil
	}
	return def, nil
}

func (r *cmdReq) boolArg(i int, key string, def bool) bool {
	if r.obj != nil {
		if v, ok := r.obj[key].(bool); ok {
			return v
		}
	}
	if i >= 0 && i < len(r.args) {
		switch r.args[i] {
		case "1", "true", "on", "yes":
			return true
		case "0", "false", "off", "no":
			return false
		}
	}
	return def
}

// channel reads one 8-bit colour channel, naming the constraint on
// rejection.
func (r *cmdReq) channel(i int, key string) (uint8, error) {
	n, err := r.num(i, key, 0)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, errcode.With(errcode.OutOfRange, key+" must be 0-255")
	}
	return uint8(n), nil
}

// rgbField reads an optional [r,g,b] array from a JSON object.
func rgbField(obj map[string]any, def types.Color) types.Color {
	if obj == nil {
		return def
	}
	arr, ok := obj["rgb"].([]any)
	if !ok || len(arr) != 3 {
		return def
	}
	var out [3]uint8
	for i, v := range arr {
		f, ok := v.(float64)
		if !ok {
			return def
		}
		out[i] = uint8(mathx.Clamp(int64(f), 0, 255))
	}
	return types.Color{R: out[0], G: out[1], B: out[2]}
}

// verbAliases map accepted spellings onto canonical verbs.
var verbAliases = map[string]string{
	"restart":  "reboot",
	"scan":     "i2c_scan",
	"identity": "get_mac",
}

func (s *service) dispatchLine(line string, nowMs int64) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if strings.HasPrefix(line, "{") {
		s.dispatchJSON(line, nowMs)
		return
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		s.respond(errResp(nil, errcode.With(errcode.BadArg, "unbalanced quotes")))
		return
	}
	if len(tokens) == 0 {
		return
	}
	s.dispatch(cmdReq{args: tokens}, nowMs)
}

func (s *service) dispatchJSON(line string, nowMs int64) {
	s.replyJSON = true
	defer func() { s.replyJSON = false }()

	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		s.respond(errResp(nil, errcode.BadJSON))
		return
	}
	id := obj["id"]
	name, _ := obj["cmd"].(string)
	if name == "" {
		s.respond(errResp(id, errcode.With(errcode.MissingArg, "cmd field required")))
		return
	}
	// Dotted verbs ("optx.start") and spaced verbs ("optx start") are the
	// same command. A cmd of only dots or whitespace tokenizes to
	// nothing and gets the same answer as a missing cmd.
	args := strings.Fields(strings.ReplaceAll(name, ".", " "))
	if len(args) == 0 {
		s.respond(errResp(id, errcode.With(errcode.MissingArg, "cmd field required")))
		return
	}
	s.dispatch(cmdReq{id: id, args: args, obj: obj}, nowMs)
}

func (s *service) dispatch(r cmdReq, nowMs int64) {
	verb := r.args[0]
	if canon, ok := verbAliases[verb]; ok {
		verb = canon
	}
	r.args = r.args[1:]

	switch verb {
	case "help":
		s.respond(okResp(r.id, map[string]any{
			"commands": "help status config ping get_mac get_version i2c_scan fmt led beep reboot telemetry optx aotx stim",
		}))
	case "status":
		s.cmdStatus(r, nowMs)
	case "config":
		s.cmdConfig(r)
	case "ping":
		s.respond(okResp(r.id, map[string]any{"pong": true}))
	case "get_mac":
		s.respond(okResp(r.id, map[string]any{"mac": s.opts.NodeID}))
	case "get_version":
		s.respond(okResp(r.id, map[string]any{"version": Version}))
	case "i2c_scan":
		s.cmdScan(r)
	case "fmt":
		s.cmdFmt(r)
	case "led":
		s.cmdLed(r, nowMs)
	case "set_neopixel":
		s.cmdLedRGB(r, 0, nowMs)
	case "beep", "set_buzzer":
		s.cmdBeep(r)
	case "set_mosfet":
		// Accepted for schema compatibility; no driver behind it yet.
		s.respond(okResp(r.id, map[string]any{"note": "not_implemented"}))
	case "reboot":
		s.reboot(okResp(r.id, map[string]any{"rebooting": true}))
	case "telemetry":
		s.cmdTelemetry(r)
	case "set_telemetry_interval":
		s.cmdTelemetryPeriod(r, 0)
	case "optx":
		s.cmdOptx(r, nowMs)
	case "aotx":
		s.cmdAotx(r, nowMs)
	case "stim":
		s.cmdStim(r, nowMs)
	default:
		s.respond(errResp(r.id, errcode.With(errcode.UnknownCmd, verb)))
	}
}

func fmtName(jsonMode bool) string {
	if jsonMode {
		return "json"
	}
	return "lines"
}

func (s *service) cmdStatus(r cmdReq, nowMs int64) {
	s.respond(okResp(r.id, map[string]any{
		"node":      s.opts.NodeID,
		"version":   Version,
		"uptime_ms": nowMs - s.bootMs,
		"fmt":       fmtName(s.fmtJSON),
		"slots":     slotStatuses(s.slots),
		"indicator": map[string]any{
			"mode":  s.ind.mode.String(),
			"color": s.ind.color,
		},
		"optx": modemStatusPayload(s.optx.status()),
		"aotx": modemStatusPayload(s.aotx.status()),
		"stim": map[string]any{
			"light_active": s.stim.light.active,
			"sound_active": s.stim.sound.active,
		},
		"telemetry": map[string]any{
			"enabled":   s.tele.enabled,
			"period_ms": s.tele.intervalMs,
			"seq":       s.tele.seq,
		},
	}))
}

func (s *service) cmdConfig(r cmdReq) {
	s.respond(okResp(r.id, map[string]any{
		"node":                s.opts.NodeID,
		"version":             Version,
		"rate":                s.opts.Rate.String(),
		"tick_ms":             s.opts.TickMs,
		"telemetry_enabled":   s.tele.enabled,
		"telemetry_period_ms": s.tele.intervalMs,
		"fmt":                 fmtName(s.fmtJSON),
	}))
}

func (s *service) cmdScan(r cmdReq) {
	addrs := s.scanBus()
	list := make([]string, 0, len(addrs))
	devices := make([]map[string]any, 0, len(addrs))
	for _, a := range addrs {
		hex := "0x" + strconv.FormatUint(uint64(a), 16)
		list = append(list, hex)
		d := map[string]any{"addr": hex}
		if name, ok := bsec.Identify(a); ok {
			d["part"] = name
		}
		devices = append(devices, d)
	}
	s.respond(okResp(r.id, map[string]any{
		"count":     len(list),
		"addresses": list,
		"devices":   devices,
	}))
}

func (s *service) cmdFmt(r cmdReq) {
	switch v := r.str(0, "fmt", ""); v {
	case "json":
		s.fmtJSON = true
	case "lines":
		s.fmtJSON = false
	default:
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "fmt must be json|lines")))
		return
	}
	// The acknowledgement already uses the newly selected format.
	s.respond(okResp(r.id, map[string]any{"fmt": fmtName(s.fmtJSON)}))
}

func (s *service) cmdLed(r cmdReq, nowMs int64) {
	sub := ""
	if len(r.args) > 0 {
		sub = r.args[0]
	}
	switch sub {
	case "mode":
		s.cmdLedMode(r)
	case "rgb":
		s.cmdLedRGB(r, 1, nowMs)
	case "pattern":
		s.cmdLedPattern(r, nowMs)
	default:
		s.respond(errResp(r.id, errcode.With(errcode.UnknownCmd, "led "+sub)))
	}
}

// cmdLedPattern runs a standalone pixel animation. rainbow is the hue
// sweep under its traditional name.
func (s *service) cmdLedPattern(r cmdReq, nowMs int64) {
	name := r.str(1, "name", "")
	switch name {
	case "rainbow", "pulse", "sweep", "beacon":
	default:
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "pattern must be rainbow|pulse|sweep|beacon")))
		return
	}
	c := rgbField(r.obj, types.Color{R: 255, G: 255, B: 255})
	s.startPattern(name, c, ledPatternPeriodMs, nowMs)
	s.respond(okResp(r.id, map[string]any{"pattern": name}))
}

func (s *service) cmdLedMode(r cmdReq) {
	v := r.str(1, "mode", "")
	var m types.IndicatorMode
	switch v {
	case "off":
		m = types.IndicatorOff
	case "state":
		m = types.IndicatorStateDriven
	case "manual":
		m = types.IndicatorManual
	default:
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "mode must be off|state|manual")))
		return
	}
	s.setIndicatorMode(m)
	s.respond(okResp(r.id, map[string]any{"mode": v}))
}

// cmdLedRGB handles both "led rgb R G B" (base 1) and the JSON-only
// set_neopixel form (base 0, fields r/g/b).
func (s *service) cmdLedRGB(r cmdReq, base int, nowMs int64) {
	red, err := r.channel(base, "r")
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	green, err := r.channel(base+1, "g")
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	blue, err := r.channel(base+2, "b")
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	s.setManualColor(types.Color{R: red, G: green, B: blue}, nowMs)
	s.respond(okResp(r.id, map[string]any{"r": red, "g": green, "b": blue}))
}

func (s *service) cmdBeep(r cmdReq) {
	freq, err := r.num(0, "hz", 1000)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	ms, err := r.num(1, "ms", 100)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	if freq < 1 || freq > 20000 {
		s.respond(errResp(r.id, errcode.With(errcode.OutOfRange, "hz must be 1-20000")))
		return
	}
	if ms < 1 || ms > 10000 {
		s.respond(errResp(r.id, errcode.With(errcode.OutOfRange, "ms must be 1-10000")))
		return
	}
	// The one deliberately blocking operation: the loop stalls for the
	// beep's bounded duration.
	s.opts.Buzzer.Beep(uint16(freq), uint32(ms))
	s.respond(okResp(r.id, map[string]any{"hz": freq, "ms": ms}))
}

func (s *service) cmdTelemetry(r cmdReq) {
	sub := ""
	if len(r.args) > 0 {
		sub = r.args[0]
	}
	switch sub {
	case "on":
		s.tele.enabled = true
		s.respond(okResp(r.id, map[string]any{"telemetry": "on"}))
	case "off":
		s.tele.enabled = false
		s.respond(okResp(r.id, map[string]any{"telemetry": "off"}))
	case "period":
		s.cmdTelemetryPeriod(r, 1)
	case "", "status":
		s.respond(okResp(r.id, map[string]any{
			"enabled":   s.tele.enabled,
			"period_ms": s.tele.intervalMs,
			"seq":       s.tele.seq,
		}))
	default:
		s.respond(errResp(r.id, errcode.With(errcode.UnknownCmd, "telemetry "+sub)))
	}
}

func (s *service) cmdTelemetryPeriod(r cmdReq, base int) {
	ms, err := r.num(base, "ms", -1)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	if ms < 0 {
		s.respond(errResp(r.id, errcode.With(errcode.MissingArg, "ms required")))
		return
	}
	if err := s.setTelemetryInterval(ms); err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	s.respond(okResp(r.id, map[string]any{"period_ms": ms}))
}

func modemStatusPayload(st types.ModemStatus) map[string]any {
	return map[string]any{
		"active":     st.Active,
		"profile":    st.Profile,
		"bits_sent":  st.BitsSent,
		"bytes_sent": st.BytesSent,
	}
}

func (s *service) cmdOptx(r cmdReq, nowMs int64) {
	sub := ""
	if len(r.args) > 0 {
		sub = r.args[0]
	}
	switch sub {
	case "start":
		s.cmdOptxStart(r, nowMs)
	case "pattern":
		s.cmdOptxPattern(r, nowMs)
	case "stop":
		// Idempotent: stopping an idle channel still succeeds.
		s.optx.stop()
		s.stopPattern()
		s.respond(okResp(r.id, map[string]any{"optx": "stopped"}))
	case "status":
		st := modemStatusPayload(s.optx.status())
		if s.pat.active {
			st["pattern"] = s.pat.name
		}
		s.respond(okResp(r.id, st))
	default:
		s.respond(errResp(r.id, errcode.With(errcode.UnknownCmd, "optx "+sub)))
	}
}

// cmdOptxPattern runs a repeating visual pattern on the optical channel
// instead of a data payload.
func (s *service) cmdOptxPattern(r cmdReq, nowMs int64) {
	name := r.str(1, "name", "")
	switch name {
	case "pulse", "sweep", "beacon":
	default:
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "pattern must be pulse|sweep|beacon")))
		return
	}
	c := rgbField(r.obj, types.Color{R: 255, G: 255, B: 255})
	s.startPattern(name, c, optxPatternPeriodMs, nowMs)
	s.respond(okResp(r.id, map[string]any{"optx": "pattern", "pattern": name}))
}

func (s *service) cmdOptxStart(r cmdReq, nowMs int64) {
	b64 := r.str(1, "payload_b64", "")
	if b64 == "" {
		s.respond(errResp(r.id, errcode.With(errcode.MissingArg, "payload_b64 required")))
		return
	}
	payload, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "payload_b64 must be base64")))
		return
	}
	profName := r.str(2, "profile", "ook")
	prof, ok := types.ModemProfileFromName(profName)
	if !ok || prof == types.ProfileFSK {
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "profile must be ook|manchester")))
		return
	}
	rate, err := r.num(3, "rate_hz", 10)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	if rate < 1 || rate > 100 {
		s.respond(errResp(r.id, errcode.With(errcode.OutOfRange, "rate_hz must be 1-100")))
		return
	}
	cfg := types.OpticalTxConfig{
		Payload: payload,
		Profile: prof,
		RateHz:  uint32(rate),
		Repeat:  r.boolArg(4, "repeat", false),
		Framed:  r.boolArg(5, "framed", true),
		On:      rgbField(r.obj, types.Color{R: 255, G: 255, B: 255}),
	}
	s.startOptical(cfg, nowMs)
	s.respond(okResp(r.id, map[string]any{
		"optx":    "started",
		"profile": prof.String(),
		"bytes":   len(payload),
	}))
}

func (s *service) cmdAotx(r cmdReq, nowMs int64) {
	sub := ""
	if len(r.args) > 0 {
		sub = r.args[0]
	}
	switch sub {
	case "start":
		s.cmdAotxStart(r, nowMs)
	case "stop":
		s.aotx.stop()
		s.respond(okResp(r.id, map[string]any{"aotx": "stopped"}))
	case "status":
		s.respond(okResp(r.id, modemStatusPayload(s.aotx.status())))
	default:
		s.respond(errResp(r.id, errcode.With(errcode.UnknownCmd, "aotx "+sub)))
	}
}

func (s *service) cmdAotxStart(r cmdReq, nowMs int64) {
	b64 := r.str(1, "payload_b64", "")
	if b64 == "" {
		s.respond(errResp(r.id, errcode.With(errcode.MissingArg, "payload_b64 required")))
		return
	}
	payload, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		s.respond(errResp(r.id, errcode.With(errcode.BadArg, "payload_b64 must be base64")))
		return
	}
	symbol, err := r.num(2, "symbol_ms", 30)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	if symbol < 1 || symbol > 1000 {
		s.respond(errResp(r.id, errcode.With(errcode.OutOfRange, "symbol_ms must be 1-1000")))
		return
	}
	f0, err := r.num(3, "f0", 1800)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	f1, err := r.num(4, "f1", 2400)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	if f0 < 1 || f0 > 20000 {
		s.respond(errResp(r.id, errcode.With(errcode.OutOfRange, "f0 must be 1-20000")))
		return
	}
	if f1 < 1 || f1 > 20000 {
		s.respond(errResp(r.id, errcode.With(errcode.OutOfRange, "f1 must be 1-20000")))
		return
	}
	cfg := types.AcousticTxConfig{
		Payload:  payload,
		SymbolMs: uint32(symbol),
		Repeat:   r.boolArg(5, "repeat", false),
		F0:       uint16(f0),
		F1:       uint16(f1),
	}
	s.startAcoustic(cfg, nowMs)
	s.respond(okResp(r.id, map[string]any{
		"aotx":  "started",
		"bytes": len(payload),
	}))
}

func (s *service) cmdStim(r cmdReq, nowMs int64) {
	sub := ""
	if len(r.args) > 0 {
		sub = r.args[0]
	}
	switch sub {
	case "light":
		cfg, err := lightProgram(&r, 1)
		if err != nil {
			s.respond(errResp(r.id, err))
			return
		}
		s.startLightStimulus(cfg, nowMs)
		s.respond(okResp(r.id, map[string]any{"stim": "light"}))
	case "sound":
		cfg, err := soundProgram(&r, 1)
		if err != nil {
			s.respond(errResp(r.id, err))
			return
		}
		s.startSoundStimulus(cfg, nowMs)
		s.respond(okResp(r.id, map[string]any{"stim": "sound"}))
	case "combined":
		s.cmdStimCombined(r, nowMs)
	case "stop":
		s.stopAllStimulus(nowMs)
		s.respond(okResp(r.id, map[string]any{"stim": "stopped"}))
	case "status":
		s.respond(okResp(r.id, map[string]any{
			"light_active":     s.stim.light.active,
			"sound_active":     s.stim.sound.active,
			"light_cycles":     s.stim.light.cycles,
			"sound_cycles":     s.stim.sound.cycles,
			"light_elapsed_ms": s.stim.light.elapsedMs(nowMs),
			"sound_elapsed_ms": s.stim.sound.elapsedMs(nowMs),
			"logging":          s.stim.logging,
		}))
	case "logging":
		on := r.boolArg(1, "on", true)
		s.stim.logging = on
		s.respond(okResp(r.id, map[string]any{"logging": on}))
	case "log":
		s.cmdStimLog(r)
	default:
		s.respond(errResp(r.id, errcode.With(errcode.UnknownCmd, "stim "+sub)))
	}
}

func (s *service) cmdStimCombined(r cmdReq, nowMs int64) {
	lightReq, soundReq := r, r
	if r.obj != nil {
		// JSON callers may nest per-channel parameter objects.
		if sub, ok := r.obj["light"].(map[string]any); ok {
			lightReq = cmdReq{obj: sub}
		}
		if sub, ok := r.obj["sound"].(map[string]any); ok {
			soundReq = cmdReq{obj: sub}
		}
	}
	light, err := lightProgram(&lightReq, -1)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	sound, err := soundProgram(&soundReq, -1)
	if err != nil {
		s.respond(errResp(r.id, err))
		return
	}
	sync := r.boolArg(1, "sync", true)
	s.startCombinedStimulus(light, sound, sync, nowMs)
	s.respond(okResp(r.id, map[string]any{"stim": "combined", "sync": sync}))
}

func (s *service) cmdStimLog(r cmdReq) {
	if r.str(1, "op", "") == "clear" {
		s.stim.log.Clear()
		s.respond(okResp(r.id, map[string]any{"cleared": true}))
		return
	}
	entries := s.stim.log.Snapshot()
	events := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		events = append(events, map[string]any{"t_ms": e.TsMs, "e": e.Tag})
	}
	s.respond(okResp(r.id, map[string]any{
		"count":  len(events),
		"events": events,
	}))
}

// stimField positions map CLI tokens onto the same names the JSON form
// uses; a negative base disables positional reading (combined channels).
func lightProgram(r *cmdReq, base int) (types.StimulusProgram, error) {
	pos := func(off int) int {
		if base < 0 {
			return -1
		}
		return base + off
	}
	on, err := r.num(pos(0), "on_ms", 500)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	off, err := r.num(pos(1), "off_ms", 500)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	ramp, err := r.num(pos(2), "ramp_ms", 0)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	repeat, err := r.num(pos(3), "repeat", 0)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	delay, err := r.num(pos(4), "delay_ms", 0)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	if err := checkSchedule(on, off, ramp, repeat, delay); err != nil {
		return types.StimulusProgram{}, err
	}
	return types.StimulusProgram{
		Kind:         types.StimulusLight,
		OnMs:         uint32(on),
		OffMs:        uint32(off),
		RampMs:       uint32(ramp),
		RepeatCount:  uint16(repeat),
		StartDelayMs: uint32(delay),
		Color:        rgbField(r.obj, types.Color{R: 255, G: 255, B: 255}),
	}, nil
}

func soundProgram(r *cmdReq, base int) (types.StimulusProgram, error) {
	pos := func(off int) int {
		if base < 0 {
			return -1
		}
		return base + off
	}
	hz, err := r.num(pos(0), "hz", 1000)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	if hz < 1 || hz > 20000 {
		return types.StimulusProgram{}, errcode.With(errcode.OutOfRange, "hz must be 1-20000")
	}
	on, err := r.num(pos(1), "on_ms", 200)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	off, err := r.num(pos(2), "off_ms", 200)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	sweep, err := r.num(pos(3), "sweep_hz", 0)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	if sweep < 0 || sweep > 20000 {
		return types.StimulusProgram{}, errcode.With(errcode.OutOfRange, "sweep_hz must be 0-20000")
	}
	repeat, err := r.num(pos(4), "repeat", 0)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	delay, err := r.num(pos(5), "delay_ms", 0)
	if err != nil {
		return types.StimulusProgram{}, err
	}
	if err := checkSchedule(on, off, 0, repeat, delay); err != nil {
		return types.StimulusProgram{}, err
	}
	return types.StimulusProgram{
		Kind:         types.StimulusSound,
		OnMs:         uint32(on),
		OffMs:        uint32(off),
		RepeatCount:  uint16(repeat),
		StartDelayMs: uint32(delay),
		FreqHz:       uint16(hz),
		SweepHz:      uint16(sweep),
	}, nil
}

func checkSchedule(on, off, ramp, repeat, delay int64) error {
	if on < 1 || on > 3600000 {
		return errcode.With(errcode.OutOfRange, "on_ms must be 1-3600000")
	}
	if off < 0 || off > 3600000 {
		return errcode.With(errcode.OutOfRange, "off_ms must be 0-3600000")
	}
	if ramp < 0 || ramp > on {
		return errcode.With(errcode.OutOfRange, "ramp_ms must be 0-on_ms")
	}
	if repeat < 0 || repeat > 65535 {
		return errcode.With(errcode.OutOfRange, "repeat must be 0-65535")
	}
	if delay < 0 || delay > 3600000 {
		return errcode.With(errcode.OutOfRange, "delay_ms must be 0-3600000")
	}
	return nil
}
