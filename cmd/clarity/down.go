/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/

package clarity

import (
	"context"
	"fmt"

	"github.com/clarity-app/clarity-api/internal/emulator"
	"github.com/clarity-app/clarity-api/internal/registry"
	"github.com/clarity-app/clarity-api/internal/runtime"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "stop function containers",
	Long:  `Stop and remove every function container recorded in the local registry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entry := logger.WithField("mode", "container")

		reg, err := newFunctionRegistry()
		if err != nil {
			return err
		}

		rt, err := runtime.NewRuntime(entry)
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}

		return stopAll(cmd.Context(), reg, rt, entry)
	},
}

func stopAll(
	ctx context.Context,
	reg registry.FunctionRegistryInterface,
	rt runtime.RuntimeInterface,
	entry *logrus.Entry,
) error {
	for _, fn := range reg.ListFunctions(ctx) {
		if err := emulator.StopFunction(ctx, fn.Name, rt, reg, entry); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(downCmd)
}
