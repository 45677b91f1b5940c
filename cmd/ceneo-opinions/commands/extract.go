package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ceneo-opinions/internal/app"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <product-id>",
	Short: "Extracts every review of a product and stores the result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := app.GracefulShutdown(rt.Logger, rt.Config.GetExtractionTimeout())
		defer cancel()

		summary, err := rt.Service.Extract(ctx, args[0])
		if err != nil {
			return err
		}

		t := newTable(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"Run", summary.RunID},
			{"Product", summary.ProductID},
			{"Name", summary.ProductName},
			{"Opinions", summary.Opinions},
			{"Pages", summary.Pages},
			{"Stop reason", summary.StopReason},
			{"Average stars", formatRating(summary.Stats.AverageStars)},
			{"Unchanged", summary.Unchanged},
			{"Duration", summary.Duration.Round(time.Millisecond).String()},
		})
		t.Render()
		return nil
	},
}
