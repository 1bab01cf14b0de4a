package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/itory/itory/internal/cmd"
	"github.com/itory/itory/internal/config"
	"github.com/itory/itory/internal/version"
)

// Build information injected at build time via ldflags
// Example: -ldflags="-X main.Version=v1.0.0 -X main.Commit=abc123 ..."
var (
	Commit    = "unknown"
	Date      = "unknown"
	GoVersion = "unknown"
	Version   = "dev"
)

func main() {
	version.Commit = Commit
	version.Date = Date
	version.GoVersion = GoVersion
	version.Version = Version

	// Load settings from ~/.itory/settings.json
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load settings: %v\n", err)
		settings = &config.Settings{}
	}

	// Container is created lazily by the commands that need a session
	var cli cmd.CLI
	cli.SetSettings(settings)
	ctx := kong.Parse(&cli,
		kong.Name("itory"),
		kong.Description(version.Tagline),
		kong.Vars{
			"version": version.Info(),
		},
		kong.UsageOnError(),
		kong.Bind(&cli),
	)
	defer cli.Close()

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cli.Close()
		os.Exit(1)
	}
}
