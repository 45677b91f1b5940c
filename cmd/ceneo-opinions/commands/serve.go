package commands

import (
	"github.com/spf13/cobra"

	"ceneo-opinions/internal/app"
	"ceneo-opinions/internal/web"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the web interface and JSON API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, cancel := app.GracefulShutdown(rt.Logger, 0)
		defer cancel()

		server := web.NewServer(rt.Service, rt.Repo, rt.Layout.Registry.Names(), rt.Normalizer, rt.Logger, rt.Metrics)
		return server.ListenAndServe(ctx, rt.Config.Server.Addr, rt.Config.GetShutdownTimeout())
	},
}
