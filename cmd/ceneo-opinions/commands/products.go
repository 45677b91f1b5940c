package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(productsCmd)
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Lists every product that has been extracted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		all, err := rt.Repo.ListStats(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(table.Row{"Product", "Name", "Opinions", "Pros", "Cons", "Average"})
		for _, st := range all {
			t.AppendRow(table.Row{
				st.ProductID,
				st.ProductName,
				st.OpinionsCount,
				st.ProsCount,
				st.ConsCount,
				formatRating(st.AverageStars),
			})
		}
		t.Render()
		return nil
	},
}
