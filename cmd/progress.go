package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/actprep/internal/api"
	"github.com/abhisek/actprep/internal/ui/components"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show per-subject score progression",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		rows, _ := cmd.Flags().GetInt("rows")

		e, err := newEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		rep, err := e.app.Progress(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(api.NewProgressionResponse(rep))
		}

		view := components.ProgressView{
			Summaries: rep.Summaries,
			Stats:     rep.Stats,
			Rows:      rep.ChartRows,
			Strongest: rep.Strongest,
			Degraded:  rep.Degraded,
			MaxRows:   rows,
		}
		if rep.Previous != nil {
			view.SinceLast = rep.SinceLast()
			view.SinceAt = rep.Previous.At
		}
		fmt.Println(view.View())
		return nil
	},
}

func init() {
	progressCmd.Flags().Bool("json", false, "Print the report as JSON")
	progressCmd.Flags().Int("rows", 15, "Chart rows to show (0 for all)")
}
