package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/foundry/settings"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage foundry tool settings",
	Long: `Display and scaffold foundry tool settings.

Configuration sources (in order of precedence):
1. Environment variables (FOUNDRY_* prefix)
2. Project config (./foundry.toml, searched upward)
3. User config (~/.foundry/foundry.toml)
4. Default values

Examples:
  foundry config show                 # Show effective configuration
  foundry config show --format json   # Show configuration as JSON
  foundry config init                 # Write a starter ~/.foundry/foundry.toml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the effective foundry configuration from all sources",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Long: `Write the built-in defaults to a configuration file as a starting
point for edits. Defaults to ~/.foundry/foundry.toml when no path is given.
Refuses to overwrite an existing file unless --force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var (
	configFormat string
	configForce  bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal settings to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal settings to YAML: %w", err)
		}
		fmt.Printf("# foundry tool configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal settings to TOML: %w", err)
		}
		fmt.Printf("# foundry tool configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := settings.DefaultUserConfigPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("could not determine home directory; pass an explicit path")
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := settings.Default().Save(path); err != nil {
		return err
	}

	pterm.Success.Printf("Wrote starter configuration to %s\n", path)
	return nil
}
