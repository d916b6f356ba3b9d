package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/foundry/config"
	"github.com/teranos/foundry/display"
)

// ValidateCmd represents the validate command
var ValidateCmd = &cobra.Command{
	Use:   "validate <pipeline.yaml>",
	Short: "Parse and validate a pipeline document",
	Long: `Parse a pipeline document and check every structural constraint
without executing anything. All violations are reported at once.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	spec, err := config.Load(args[0])
	if err != nil {
		// cobra prints the returned error to stderr and exits non-zero.
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]any{
			"valid":    true,
			"pipeline": spec.Name,
			"stages":   len(spec.Stages),
		})
	}

	pterm.Success.Printf("Pipeline %q is valid (%d stages)\n", spec.Name, len(spec.Stages))
	return nil
}
