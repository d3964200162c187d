package node

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"mycobrain-go/bus"
	"mycobrain-go/errcode"
	"mycobrain-go/types"
)

// response is the single-line reply to one command.
type response struct {
	ok      bool
	id      any
	payload map[string]any
	err     error
}

func okResp(id any, payload map[string]any) response {
	return response{ok: true, id: id, payload: payload}
}

func errResp(id any, err error) response {
	return response{id: id, err: err}
}

// sendLine publishes one complete output line. The console writer emits
// each bus message as a unit, so a message is always flushed before the
// next; the single cooperative thread guarantees that, not a lock.
func (s *service) sendLine(line string) {
	s.conn.Publish(s.conn.NewMessage(bus.T("console", "out"), line, false))
}

// respond renders in the selected output format. A command that arrived
// as JSON is always answered in JSON so request/response stay symmetric.
func (s *service) respond(r response) {
	if s.fmtJSON || s.replyJSON {
		s.sendLine(renderJSON(r))
	} else {
		s.sendLine(renderLines(r))
	}
}

// renderJSON produces one self-contained NDJSON object. ok is always
// present; id is echoed when the request supplied one.
func renderJSON(r response) string {
	obj := map[string]any{"ok": r.ok}
	if r.id != nil {
		obj["id"] = r.id
	}
	if r.err != nil {
		obj["error"] = string(errcode.Of(r.err))
		if d := errcode.Detail(r.err); d != "" && d != string(errcode.Of(r.err)) {
			obj["detail"] = d
		}
	}
	for k, v := range r.payload {
		obj[k] = v
	}
	b, err := json.Marshal(obj)
	if err != nil {
		// Marshalling a map of plain values cannot realistically fail;
		// fall back to a bare error object rather than dropping output.
		return `{"ok":false,"error":"error"}`
	}
	return string(b)
}

// renderLines produces the key=value form, keys sorted for stable output.
func renderLines(r response) string {
	parts := []string{fmt.Sprintf("ok=%v", r.ok)}
	if r.id != nil {
		parts = append(parts, fmt.Sprintf("id=%v", r.id))
	}
	if r.err != nil {
		parts = append(parts, "error="+string(errcode.Of(r.err)))
		if d := errcode.Detail(r.err); d != "" && d != string(errcode.Of(r.err)) {
			parts = append(parts, "detail="+quoteIfSpaced(d))
		}
	}
	keys := make([]string, 0, len(r.payload))
	for k := range r.payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(r.payload[k]))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quoteIfSpaced(x)
	case float32:
		return fmt.Sprintf("%.2f", x)
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// emitFrame renders one telemetry frame in the selected format.
func (s *service) emitFrame(frame types.TelemetryFrame) {
	if s.fmtJSON {
		b, err := json.Marshal(frame)
		if err != nil {
			return
		}
		s.sendLine(string(b))
		return
	}
	s.sendLine(renderLines(response{
		ok: true,
		payload: map[string]any{
			"type":           "tele",
			"seq":            frame.Seq,
			"t_ms":           frame.TMs,
			"node":           frame.Node,
			"temperature":    derefOrNil(frame.Temperature),
			"humidity":       derefOrNil(frame.Humidity),
			"pressure":       derefOrNil(frame.Pressure),
			"gas_resistance": derefOrNil(frame.GasResistance),
		},
	}))
}

func derefOrNil(f *float32) any {
	if f == nil {
		return nil
	}
	return *f
}
