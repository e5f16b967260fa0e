package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jenkins-mcp-integ/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildCore(os.Stdout)
		if err != nil {
			return err
		}

		apiKey := app.cfg.Server.ResolveAPIKey()
		if apiKey == "" {
			app.logger.Warn("no api key configured, rest api runs unauthenticated")
		}

		srv := server.New(app.cfg, apiKey, app.dispatcher, app.client, app.client,
			app.logger.With(slog.String("component", "http_server")))

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			app.logger.Error("server terminated with error", slog.String("error", err.Error()))
			return err
		}
		app.logger.Info("server stopped")
		return nil
	},
}
