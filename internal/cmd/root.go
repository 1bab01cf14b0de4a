package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/itory/itory/internal/config"
	"github.com/itory/itory/internal/logging"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`

	APIURL       string        `name:"api-url" help:"Base URL of the story generation service" env:"ITORY_API_URL"`
	PollInterval time.Duration `help:"Delay between status checks" env:"ITORY_POLL_INTERVAL"`
	RedisAddr    string        `help:"Redis address for the redis store" env:"ITORY_REDIS_ADDR"`
	Slot         string        `help:"Session slot, one story in progress per slot" default:"default" env:"ITORY_SLOT"`
	Store        string        `help:"Snapshot store: sqlite, redis or memory" env:"ITORY_STORE"`

	Play      PlayCmd      `cmd:"" help:"Play a story interactively (default)" default:"1"`
	Start     StartCmd     `cmd:"start" help:"Start a new story"`
	Status    StatusCmd    `cmd:"status" help:"Show the story in progress"`
	Options   OptionsCmd   `cmd:"options" help:"List the choices for the current stage"`
	Choose    ChooseCmd    `cmd:"choose" help:"Submit a choice for the current stage"`
	Advance   AdvanceCmd   `cmd:"advance" help:"Move on to the next stage (finalizes after the ending)"`
	Redo      RedoCmd      `cmd:"redo" help:"Discard a stage and everything after it"`
	Wait      WaitCmd      `cmd:"wait" help:"Wait until the running generation finishes"`
	Reset     ResetCmd     `cmd:"reset" help:"Abandon the story in progress"`
	Open      OpenCmd      `cmd:"open" help:"Play a generated video"`
	Devserver DevserverCmd `cmd:"devserver" help:"Run a local simulator of the generation service"`
	Settings  SettingsCmd  `cmd:"settings" help:"Manage settings"`
	Info      VersionCmd   `cmd:"version" help:"Show version information"`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply() error {
	// Apply settings with proper precedence: CLI flags > env vars > settings.json > defaults
	if c.settings == nil {
		c.settings = &config.Settings{}
	}

	if c.MaxLogFiles == 1000 {
		if _, hasEnv := os.LookupEnv("ITORY_MAX_LOG_FILES"); !hasEnv {
			if c.settings.MaxLogFiles != nil {
				c.MaxLogFiles = *c.settings.MaxLogFiles
			}
		}
	}

	if !c.Debug {
		if _, hasEnv := os.LookupEnv("ITORY_DEBUG"); !hasEnv {
			if c.settings.Debug != nil && *c.settings.Debug {
				c.Debug = true
			}
		}
	}

	if c.APIURL == "" {
		c.APIURL = c.settings.APIURL
	}
	if c.APIURL == "" {
		c.APIURL = config.DefaultAPIURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = c.settings.PollInterval()
	}
	if c.Store == "" {
		c.Store = c.settings.Store
	}
	if c.Store == "" {
		c.Store = config.DefaultStore
	}
	if c.RedisAddr == "" {
		c.RedisAddr = c.settings.RedisAddr
	}
	resolved := config.Settings{Store: c.Store, RedisAddr: c.RedisAddr}
	if err := resolved.Validate(); err != nil {
		return err
	}

	logFilePath, err := logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles)
	if err != nil {
		return err
	}

	// Keep the same log file for anything this process spawns
	if c.Debug || c.DebugFile != "" {
		os.Setenv("ITORY_DEBUG", "1")
		if logFilePath != "" {
			os.Setenv("ITORY_DEBUG_FILE", logFilePath)
		}
	}

	logging.Logger.Debug("CLI configured",
		"api_url", c.APIURL,
		"poll_interval", c.PollInterval,
		"slot", c.Slot,
		"store", c.Store)
	return nil
}

// open creates the container on first use. Commands that never touch a
// session (devserver, settings, version) do not open a store.
func (c *CLI) open(ctx context.Context) (*Container, error) {
	if c.Container != nil {
		return c.Container, nil
	}
	container, err := NewContainer(ctx, ContainerOptions{
		APIURL:       c.APIURL,
		PollInterval: c.PollInterval,
		RedisAddr:    c.RedisAddr,
		SessionTTL:   c.settings.SessionTTL(),
		Slot:         c.Slot,
		Store:        c.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container
	return container, nil
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container == nil {
		return nil
	}
	container := c.Container
	c.Container = nil
	return container.Close()
}
