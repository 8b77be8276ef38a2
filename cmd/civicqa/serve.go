// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/civicqa/internal/server"
	"github.com/pdiddy/civicqa/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer pipeline over HTTP",
	Long: `Serve starts an HTTP API with POST /api/v1/search and GET /healthz.
Requests that carry an X-Session-ID header follow "latest query wins": a
request superseded by a newer one from the same session receives 409.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, cleanup, err := buildPipeline(ctx, appConfig, loadedSecrets, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if appConfig.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(pipeline, appConfig.Server, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", types.DefaultAppConfig().Server.Addr, "listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
