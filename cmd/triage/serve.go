package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/triage/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Starts the HTTP front door. The server shuts down gracefully on
SIGINT or SIGTERM, letting in-flight runs finish within the shutdown timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := newServices(ctx, cfg, a.logger)
			if err != nil {
				return err
			}
			defer svc.close(context.Background())

			srv := server.New(svc.runner,
				server.WithChatClient(svc.chat),
				server.WithLogger(a.logger),
			)
			return srv.ListenAndServe(ctx, cfg.Server.Addr,
				cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")
	return cmd
}
