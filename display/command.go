package display

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ShouldOutputJSON decides whether a command should emit JSON instead of
// human-readable output. An explicit --json flag wins; otherwise the
// FOUNDRY_JSON environment variable opts machine consumers in globally.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return envJSON()
	}

	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return envJSON()
}

func envJSON() bool {
	switch os.Getenv("FOUNDRY_JSON") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
