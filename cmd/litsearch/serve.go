package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/litsearch/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search HTTP API",
	Long: `Serve exposes POST /search, POST /compare, GET /health and GET /openapi.json.
Online search fuses sparse and dense rankings with the search.fusion policy
(reciprocal rank fusion, k=60, by default).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().StringSlice("allowed-origin", nil, "CORS allowed origin, repeatable (default from server.allowed_origins)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	srch, err := svc.newSearcher()
	if err != nil {
		return err
	}
	defer func() { _ = srch.Close() }()

	serverCfg := api.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		serverCfg.Addr = addr
	}
	if origins, _ := cmd.Flags().GetStringSlice("allowed-origin"); len(origins) > 0 {
		serverCfg.AllowedOrigins = origins
	}

	handler := api.NewHandler(srch, svc.index, logger)
	return api.NewServer(serverCfg, handler, logger).ListenAndServe(ctx)
}
