package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ceneo-opinions/internal/stats"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <product-id>",
	Short: "Prints the stored statistics of a product.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		st, err := rt.Repo.Stats(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		summary := newTable(table.Row{st.ProductID, st.ProductName})
		summary.AppendRows([]table.Row{
			{"Opinions", st.OpinionsCount},
			{"With pros", st.ProsCount},
			{"With cons", st.ConsCount},
			{"With pros and cons", st.ProsConsCount},
			{"Average stars", formatRating(st.AverageStars)},
		})
		summary.Render()

		printFrequency("Recommendation", st.Recommendations)
		printFrequency("Pro", st.Pros)
		printFrequency("Con", st.Cons)
		return nil
	},
}

func printFrequency(title string, freq stats.Frequency) {
	if len(freq) == 0 {
		return
	}
	t := newTable(table.Row{title, "Count"})
	for _, b := range freq {
		t.AppendRow(table.Row{b.Label(), b.Count})
	}
	t.AppendFooter(table.Row{"Total", freq.Total()})
	t.Render()
}
