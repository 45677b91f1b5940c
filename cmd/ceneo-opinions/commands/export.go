package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ceneo-opinions/internal/export"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file. Defaults to product_<id>.<format>.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <product-id> <csv|xlsx|json>",
	Short: "Writes the stored reviews of a product to a file.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(args[1])
		if err != nil {
			return err
		}

		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		records, err := rt.Repo.Opinions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := export.Render(format, records, rt.Layout.Registry.Names())
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = format.Filename(args[0])
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %d opinions to %s\n", len(records), out)
		return nil
	},
}
