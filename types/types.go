package types

// ---- Indicator ----

// Color is the RGB output value of the single status pixel.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

type IndicatorMode uint8

const (
	IndicatorOff IndicatorMode = iota
	IndicatorStateDriven
	IndicatorManual
)

func (m IndicatorMode) String() string {
	switch m {
	case IndicatorOff:
		return "off"
	case IndicatorStateDriven:
		return "state"
	case IndicatorManual:
		return "manual"
	}
	return "unknown"
}

// IndicatorState is the device's single RGB output state. While the mode
// is state-driven, Color is recomputed every refresh tick and never cached
// across a mode change.
type IndicatorState struct {
	Mode  IndicatorMode `json:"-"`
	Color Color         `json:"color"`
}

// ---- Sensor slots ----

// SampleRate selects the vendor algorithm's output cadence.
type SampleRate uint8

const (
	RateLowPower      SampleRate = iota // ~1/3 Hz
	RateUltraLowPower                   // ~1/300 Hz
)

func (r SampleRate) String() string {
	if r == RateUltraLowPower {
		return "ulp"
	}
	return "lp"
}

// SlotStatus is the externally visible state of one fusion slot.
// The three degraded states (absent, begin-failed, subscription-failed)
// are ordinary fields here, never errors: partial sensor population is an
// expected operating mode.
type SlotStatus struct {
	Name           string `json:"name"`
	Addr           uint16 `json:"addr"`
	Present        bool   `json:"present"`
	BeginOk        bool   `json:"begin_ok"`
	SubscriptionOk bool   `json:"subscription_ok"`
	ConfigOk       bool   `json:"config_ok"`
	SampleRate     string `json:"sample_rate"`
}

// SensorReading is the last normalized reading of a slot. Valid is false
// until the first sample callback has fired. The air-quality block is only
// meaningful when HasAQ is set (subscription succeeded and the algorithm
// has produced derived outputs).
type SensorReading struct {
	Valid       bool
	TsMs        int64
	TempC       float32
	HumidityPct float32
	PressureRaw float32
	PressureHpa float32
	GasOhm      float32

	HasAQ       bool
	IAQ         float32
	IAQAccuracy uint8
	StaticIAQ   float32
	CO2Eq       float32
	BVOCEq      float32
}

// EnvReport is the telemetry rendering of a reading. Nil fields marshal as
// explicit JSON nulls so a consumer can tell "no sensor" from "stale
// sensor"; nothing is ever omitted.
type EnvReport struct {
	TempC       *float32 `json:"temp_c"`
	HumidityPct *float32 `json:"humidity_pct"`
	PressureHpa *float32 `json:"pressure_hpa"`
	GasOhm      *float32 `json:"gas_ohm"`
	IAQ         *float32 `json:"iaq"`
	IAQAccuracy *uint8   `json:"iaq_accuracy"`
	StaticIAQ   *float32 `json:"static_iaq"`
	CO2Eq       *float32 `json:"co2_eq"`
	BVOCEq      *float32 `json:"bvoc_eq"`
}

// Report converts a reading into its telemetry form.
func (r SensorReading) Report() EnvReport {
	var e EnvReport
	if !r.Valid {
		return e
	}
	t, h, p, g := r.TempC, r.HumidityPct, r.PressureHpa, r.GasOhm
	e.TempC, e.HumidityPct, e.PressureHpa, e.GasOhm = &t, &h, &p, &g
	if r.HasAQ {
		iaq, si, co2, voc, acc := r.IAQ, r.StaticIAQ, r.CO2Eq, r.BVOCEq, r.IAQAccuracy
		e.IAQ, e.StaticIAQ, e.CO2Eq, e.BVOCEq, e.IAQAccuracy = &iaq, &si, &co2, &voc, &acc
	}
	return e
}

// ---- Modems ----

type ModemProfile uint8

const (
	ProfileOOK ModemProfile = iota
	ProfileManchester
	ProfileFSK
)

func (p ModemProfile) String() string {
	switch p {
	case ProfileOOK:
		return "ook"
	case ProfileManchester:
		return "manchester"
	case ProfileFSK:
		return "fsk"
	}
	return "none"
}

// ModemProfileFromName resolves a profile tag, tolerating the historical
// camera_* spellings the host service sends.
func ModemProfileFromName(name string) (ModemProfile, bool) {
	switch name {
	case "ook", "camera_ook":
		return ProfileOOK, true
	case "manchester", "camera_manchester":
		return ProfileManchester, true
	case "fsk", "simple_fsk":
		return ProfileFSK, true
	}
	return ProfileOOK, false
}

// OpticalTxConfig starts an optical (LED) modem session. With Framed the
// encoder wraps Payload in the on-air frame (preamble + payload + CRC16);
// Raw senders carry their own framing.
type OpticalTxConfig struct {
	Payload []byte
	Profile ModemProfile // ProfileOOK or ProfileManchester
	RateHz  uint32       // bit rate; Manchester emits half-symbols at 2x
	Repeat  bool
	Framed  bool
	On      Color // carrier "on" colour
}

// AcousticTxConfig starts an acoustic (buzzer) modem session using simple
// FSK: bit 1 is a continuous tone at F1 for one symbol period, bit 0 at
// F0, no silence between symbols.
type AcousticTxConfig struct {
	Payload  []byte
	SymbolMs uint32
	Repeat   bool
	F0, F1   uint16
}

// ModemStatus is returned by optx/aotx status.
type ModemStatus struct {
	Active    bool   `json:"active"`
	Profile   string `json:"profile"`
	BitsSent  uint32 `json:"bits_sent"`
	BytesSent uint32 `json:"bytes_sent"`
}

// ---- Stimulus ----

type StimulusKind uint8

const (
	StimulusLight StimulusKind = iota
	StimulusSound
)

// StimulusProgram is one periodic pulse-train schedule. RepeatCount 0
// means run until stopped.
type StimulusProgram struct {
	Kind         StimulusKind
	OnMs         uint32
	OffMs        uint32
	RampMs       uint32
	RepeatCount  uint16
	StartDelayMs uint32

	// Light parameters.
	Color Color
	// Sound parameters. SweepHz bends the tone across the on-phase.
	FreqHz  uint16
	SweepHz uint16
}

// ---- Telemetry ----

// TelemetryFrame is one periodic snapshot. Seq is strictly monotonic for
// the process lifetime; it never decreases and never repeats absent a
// reboot.
type TelemetryFrame struct {
	Type string `json:"type"` // always "tele"
	Seq  uint32 `json:"seq"`
	TMs  int64  `json:"t_ms"`
	Node string `json:"node"`

	Env   EnvReport            `json:"env"` // primary ("AMB") slot
	Slots map[string]EnvReport `json:"slots"`

	I2CAddresses []uint16       `json:"i2c_addresses"`
	Health       map[string]any `json:"health"`

	// Flattened convenience fields, mirroring Env.
	Temperature   *float32 `json:"temperature"`
	Humidity      *float32 `json:"humidity"`
	Pressure      *float32 `json:"pressure"`
	GasResistance *float32 `json:"gas_resistance"`
}
