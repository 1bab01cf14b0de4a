package cmd

import (
	"fmt"
	"time"

	"github.com/itory/itory/internal/adapters/devserver"
	"github.com/itory/itory/internal/logging"
)

// DevserverCmd runs a local simulator of the generation service
type DevserverCmd struct {
	Addr             string        `help:"Listen address" default:":8000"`
	FinalizeDuration time.Duration `help:"Simulated time to produce the final video" default:"8s"`
	NoOptions        bool          `help:"Return no options so clients fall back to their built-in ones"`
	StageDuration    time.Duration `help:"Simulated time to generate one stage" default:"6s"`
	TTL              time.Duration `name:"ttl" help:"Forget jobs idle for this long" default:"24h"`
}

// Run executes the devserver command
func (d *DevserverCmd) Run(cli *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	cfg := devserver.DefaultConfig()
	cfg.FinalizeDuration = d.FinalizeDuration
	cfg.JobTTL = d.TTL
	cfg.NoOptions = d.NoOptions
	cfg.StageDuration = d.StageDuration

	fmt.Printf("Generation simulator listening on %s (stage %s, finalize %s)\n", d.Addr, d.StageDuration, d.FinalizeDuration)
	logging.Logger.Info("Starting devserver", "addr", d.Addr)

	if err := devserver.New(cfg).Run(ctx, d.Addr); err != nil {
		return fmt.Errorf("devserver stopped: %w", err)
	}
	return nil
}
