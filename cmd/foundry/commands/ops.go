package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/foundry/display"
	"github.com/teranos/foundry/operator"
	"github.com/teranos/foundry/operator/ops"
)

// OpsCmd represents the ops command
var OpsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List registered operators",
	Long:  `List every built-in operator with its implementation version and kind.`,
	RunE:  runOps,
}

func runOps(cmd *cobra.Command, args []string) error {
	reg := operator.NewRegistry()
	if err := ops.RegisterBuiltins(reg); err != nil {
		return err
	}

	regs := reg.All()

	if display.ShouldOutputJSON(cmd) {
		type opInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Kind    string `json:"kind"`
		}
		list := make([]opInfo, 0, len(regs))
		for _, r := range regs {
			list = append(list, opInfo{Name: r.Name, Version: r.Version, Kind: r.Kind})
		}
		return display.OutputJSON(list)
	}

	data := pterm.TableData{{"Name", "Version", "Kind"}}
	for _, r := range regs {
		data = append(data, []string{r.Name, r.Version, r.Kind})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
