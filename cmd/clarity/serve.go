/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/

package clarity

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/clarity-app/clarity-api/internal/emulator"
	"github.com/clarity-app/clarity-api/internal/gateway"
	"github.com/clarity-app/clarity-api/internal/invoker"
	"github.com/spf13/cobra"
)

var serveInContainer bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the local api gateway",
	Long:  `Serve the function behind a local API Gateway (HTTP API) until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inv, err := newInvoker(serveInContainer)
		if err != nil {
			return err
		}

		shutdown, err := startFunction(sigCtx, inv)
		if err != nil {
			return err
		}
		defer shutdown()

		gw := gateway.NewAPIGateway(&cfg.APIGateway, inv, logger)
		return gw.Start(sigCtx)
	},
}

// startFunction brings a containerised function up before the gateway
// accepts traffic, so the image pull and health wait are not bounded by a
// request timeout. The returned func stops it again.
func startFunction(ctx context.Context, inv invoker.Invoker) (func(), error) {
	e, ok := inv.(emulator.EmulatorInterface)
	if !ok {
		return func() {}, nil
	}

	shutdown := func() {
		if err := e.Stop(context.Background()); err != nil {
			logger.WithError(err).Warn("failed to stop function container")
		}
	}

	if err := e.Start(ctx); err != nil {
		shutdown()
		return nil, err
	}
	return shutdown, nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveInContainer, "container", false, "route requests to the function inside the Lambda base image")
	rootCmd.AddCommand(serveCmd)
}
