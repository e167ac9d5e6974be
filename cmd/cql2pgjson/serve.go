package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pthm/cql2pgjson/internal/server"
)

var (
	serveOpts translatorFlags
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translation HTTP API",
	Long: `Serve POST /api/v1/translate and GET /healthz.

The request body is {"query": "..."}; the response carries the WHERE and
ORDER BY clauses, the full statement when a table is configured, and any
missing-index advisories.`,
	Example: `  # Serve with settings from cql2pgjson.yaml
  cql2pgjson serve

  # Serve on another port
  cql2pgjson serve --addr :9090 -t users -f jsonb`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serveOpts.apply(cfg)
		addr := resolveString(serveAddr, cfg.Serve.Addr)

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		t, err := buildTranslator(ctx, cfg, &serveOpts, logger)
		if err != nil {
			return err
		}

		srv := server.New(t,
			server.WithLogger(logger),
			server.WithCORSOrigins(cfg.Serve.CORSOrigins...),
		)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveOpts.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}
