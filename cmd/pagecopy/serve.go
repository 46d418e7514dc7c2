package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pagecopy/internal/gateway/app"
	"pagecopy/internal/gateway/config"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, lg, err := loadConfig()
		if err != nil {
			return err
		}
		defer lg.Sync()
		if servePort != "" {
			cfg.Port = config.NormalizePort(servePort)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		a, err := app.New(ctx, cfg, lg)
		if err != nil {
			return err
		}
		return a.Run(ctx, 5*time.Second)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "server port (overrides PORT)")
}
