// cmd/node-host/main.go
//
// Host build of the engine: stdin/stdout console, simulated sensor slots,
// process exit on reboot. Useful for protocol and client work without a
// board attached.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/denisbrodbeck/machineid"

	"mycobrain-go/bus"
	"mycobrain-go/drivers/bsec"
	"mycobrain-go/services/config"
	"mycobrain-go/services/console"
	"mycobrain-go/services/node"
	"mycobrain-go/types"
)

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(64)

	cfgCtx := context.WithValue(ctx, config.CtxBoardKey, "host")
	config.NewService().Start(cfgCtx, b.NewConnection("config"))

	cfg, err := config.Load("host")
	if err != nil {
		println("config:", err.Error())
		os.Exit(1)
	}
	nodeCfg := config.Section(cfg, "node")
	teleCfg := config.Section(cfg, "telemetry")

	id, err := machineid.ID()
	if err != nil {
		id = "host-unknown"
	}

	rate := types.RateLowPower
	if config.Str(nodeCfg, "rate", "lp") == "ulp" {
		rate = types.RateUltraLowPower
	}

	opts := node.Options{
		NodeID: id,
		I2C:    &bsec.SimBus{Present: []uint16{0x76, 0x77}},
		AMB:    bsec.NewSim(),
		ENV:    bsec.NewSim(),
		Rate:   rate,
		Restart: func() {
			os.Exit(0)
		},
		TickMs:              int(config.Int(nodeCfg, "tick_ms", 2)),
		TelemetryIntervalMs: uint32(config.Int(teleCfg, "period_ms", 5000)),
		TelemetryEnabled:    config.Bool(teleCfg, "enabled", true),
		SkipBootAnimation:   true, // no LED on a host build
	}

	go node.Run(ctx, b.NewConnection("node"), opts)

	// The console pump owns this goroutine until stdin closes or ctx ends.
	_ = console.Start(ctx, b.NewConnection("console"), stdio{})
}
