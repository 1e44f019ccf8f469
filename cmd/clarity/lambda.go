/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/

package clarity

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/clarity-app/clarity-api/internal/handler"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "serve Lambda invocations",
	Long:  `Start the Lambda runtime loop. This is what the deployed bootstrap binary runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startLambda()
	},
}

func startLambda() error {
	h := handler.New(logger.WithField("function", cfg.Function.Name))
	logger.WithField("function", cfg.Function.Name).Info("starting lambda runtime")
	lambda.StartWithOptions(h.Handle, lambda.WithContext(ctx))
	return nil
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}
