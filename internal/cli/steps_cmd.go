package cli

import (
	"fmt"

	"github.com/alexanderramin/sitepilot/internal/console"
	"github.com/alexanderramin/sitepilot/internal/wizard"
	"github.com/spf13/cobra"
)

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the setup steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(wizard.Steps()))
			for _, s := range wizard.Steps() {
				after := "continue"
				switch {
				case s.Number == wizard.StepContentPlan:
					after = "dashboard"
				case s.AutoAdvance:
					after = "auto"
				}
				skip := ""
				if s.Skippable {
					skip = "yes"
				}
				rows = append(rows, []string{fmt.Sprint(s.Number), s.Flag, s.Label, after, skip})
			}
			fmt.Fprintln(cmd.OutOrStdout(), console.RenderTable([]string{"#", "FLAG", "STEP", "THEN", "SKIP"}, rows))
			return nil
		},
	}
}
