package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/itory/itory/internal/config"
)

// SettingsCmd manages settings
type SettingsCmd struct {
	Example SettingsExampleCmd `cmd:"example" help:"Show settings file location and available options"`
	Path    SettingsPathCmd    `cmd:"path" help:"Print the settings file path"`
	Show    SettingsShowCmd    `cmd:"show" help:"Show the settings in effect for this invocation" default:"1"`
}

// SettingsExampleCmd displays settings metadata
type SettingsExampleCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
}

// Run executes the example command
func (s *SettingsExampleCmd) Run(cli *CLI) error {
	settingsFile := config.GetSettingsPath()
	example := config.GetSettingsExample()

	if s.Format == "json" {
		output := map[string]any{
			"settings_file": settingsFile,
			"format":        example,
		}
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Settings file: %s\n\n", settingsFile)
	fmt.Println("Example settings.json:")
	fmt.Println()

	keys := make([]string, 0, len(example))
	for key := range example {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Key", "Example"})
	for _, key := range keys {
		tw.AppendRow(table.Row{key, fmt.Sprintf("%v", example[key])})
	}
	tw.Render()

	fmt.Println()
	fmt.Println("Create or edit this file to configure itory.")
	fmt.Println("All settings are optional and have sensible defaults.")

	return nil
}

// SettingsPathCmd prints the settings file location
type SettingsPathCmd struct{}

// Run executes the path command
func (s *SettingsPathCmd) Run(cli *CLI) error {
	fmt.Println(config.GetSettingsPath())
	return nil
}

// SettingsShowCmd prints the resolved configuration
type SettingsShowCmd struct{}

// Run executes the show command
func (s *SettingsShowCmd) Run(cli *CLI) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	tw.AppendRows([]table.Row{
		{"home", config.GetItoryHome()},
		{"api_url", cli.APIURL},
		{"poll_interval", cli.PollInterval},
		{"store", cli.Store},
		{"redis_addr", cli.RedisAddr},
		{"session_ttl", cli.settings.SessionTTL()},
		{"slot", cli.Slot},
		{"debug", cli.Debug},
	})
	tw.Render()
	return nil
}
