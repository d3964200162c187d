package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: board name (same value placed in ctx under CtxBoardKey)
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

const cfgHost = `{
  "node": {
      "tick_ms": 2,
      "rate": "lp"
  },
  "telemetry": {
      "enabled": true,
      "period_ms": 5000
  },
  "console": {
      "baud": 115200
  }
}`

const cfgPico = `{
  "node": {
      "tick_ms": 2,
      "rate": "lp"
  },
  "telemetry": {
      "enabled": true,
      "period_ms": 5000
  },
  "console": {
      "baud": 115200
  }
}`

var embeddedConfigs = map[string][]byte{
	"host": []byte(cfgHost),
	"pico": []byte(cfgPico),
}
