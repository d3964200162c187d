//go:build rp2040

// cmd/node-pico/main.go
//
// RP2040 build of the engine. Console over UART0, sensor slots on I2C0,
// status LED on a WS2812 pixel, buzzer on a PWM pin.
package main

import (
	"context"
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ws2812"

	"mycobrain-go/bus"
	"mycobrain-go/drivers/bsec"
	"mycobrain-go/services/config"
	"mycobrain-go/services/console"
	"mycobrain-go/services/node"
	"mycobrain-go/types"
)

// Board pinout.
const (
	pinNeopixel = machine.Pin(16)
	pinBuzzer   = machine.Pin(15)
	pinSDA      = machine.Pin(12)
	pinSCL      = machine.Pin(13)
	pinUARTTx   = machine.Pin(0)
	pinUARTRx   = machine.Pin(1)
)

func main() {
	// Allow USB CDC to enumerate before anything prints.
	time.Sleep(2 * time.Second)

	ctx := context.Background()
	b := bus.NewBus(32)

	cfgCtx := context.WithValue(ctx, config.CtxBoardKey, "pico")
	config.NewService().Start(cfgCtx, b.NewConnection("config"))

	cfg, err := config.Load("pico")
	if err != nil {
		println("config:", err.Error())
		cfg = map[string]any{}
	}
	nodeCfg := config.Section(cfg, "node")
	teleCfg := config.Section(cfg, "telemetry")
	consCfg := config.Section(cfg, "console")

	i2c := machine.I2C0
	_ = i2c.Configure(machine.I2CConfig{
		SDA:       pinSDA,
		SCL:       pinSCL,
		Frequency: 100_000,
	})

	rate := types.RateLowPower
	if config.Str(nodeCfg, "rate", "lp") == "ulp" {
		rate = types.RateUltraLowPower
	}

	// A typed nil must not reach the interface field, or the engine's
	// nil check cannot substitute the no-op buzzer.
	var buzzer node.Buzzer
	if bz := newBoardBuzzer(pinBuzzer); bz != nil {
		buzzer = bz
	}

	opts := node.Options{
		NodeID: "mycobrain-pico",
		I2C:    i2c,
		// TODO: swap the simulators for the vendor fusion binding once its
		// TinyGo port lands.
		AMB:                 bsec.NewSim(),
		ENV:                 bsec.NewSim(),
		Rate:                rate,
		Pixel:               newBoardPixel(pinNeopixel),
		Buzzer:              buzzer,
		Restart:             machine.CPUReset,
		TickMs:              int(config.Int(nodeCfg, "tick_ms", 2)),
		TelemetryIntervalMs: uint32(config.Int(teleCfg, "period_ms", 5000)),
		TelemetryEnabled:    config.Bool(teleCfg, "enabled", true),
	}

	go node.Run(ctx, b.NewConnection("node"), opts)

	uart := console.OpenUART0(uint32(config.Int(consCfg, "baud", 115200)), pinUARTTx, pinUARTRx)
	_ = console.Start(ctx, b.NewConnection("console"), uart)
}

// ---- WS2812 pixel ----

type boardPixel struct {
	dev ws2812.Device
}

func newBoardPixel(pin machine.Pin) *boardPixel {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &boardPixel{dev: ws2812.New(pin)}
}

func (p *boardPixel) Set(c types.Color) {
	_ = p.dev.WriteColors([]color.RGBA{{R: c.R, G: c.G, B: c.B, A: 255}})
}

func (p *boardPixel) Off() {
	_ = p.dev.WriteColors([]color.RGBA{{A: 255}})
}

// ---- PWM buzzer ----

// pwmCtrl matches the controller surface without naming the unexported
// machine type.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

type boardBuzzer struct {
	pin  machine.Pin
	ctrl pwmCtrl
	ch   uint8 // 0 => A, 1 => B, by pin parity
}

func newBoardBuzzer(pin machine.Pin) *boardBuzzer {
	slice, err := machine.PWMPeripheral(pin)
	if err != nil {
		return nil // engine substitutes a no-op buzzer
	}
	return &boardBuzzer{
		pin:  pin,
		ctrl: pwmGroupBySlice(slice),
		ch:   uint8(pin & 1),
	}
}

func (b *boardBuzzer) Tone(freqHz uint16) {
	if freqHz == 0 {
		b.NoTone()
		return
	}
	period := uint64(1_000_000_000) / uint64(freqHz)
	if err := b.ctrl.Configure(machine.PWMConfig{Period: period}); err != nil {
		return
	}
	b.pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	b.ctrl.Set(b.ch, b.ctrl.Top()/2)
}

func (b *boardBuzzer) NoTone() {
	b.ctrl.Set(b.ch, 0)
}

func (b *boardBuzzer) Beep(freqHz uint16, ms uint32) {
	b.Tone(freqHz)
	time.Sleep(time.Duration(ms) * time.Millisecond)
	b.NoTone()
}
