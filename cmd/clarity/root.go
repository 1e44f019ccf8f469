/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package clarity

import (
	"context"
	"os"

	"github.com/clarity-app/clarity-api/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config
var cfgFile string
var logger *logrus.Logger
var ctx = context.Background()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clarity",
	Short: "Clarity API function and local development tooling",
	Long: `clarity runs the Clarity API Lambda handler.

Deployed as a Lambda bootstrap binary it serves invocations directly. Locally it
can invoke the handler once, serve it behind an API Gateway style HTTP server,
or run it inside the AWS Lambda base image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if runningInLambda() {
			return startLambda()
		}
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.WithError(err).Fatal("error occurred while running clarity")
	}
}

func init() {
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.clarity.yaml)")
}

func loadConfig() error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	configureLogger(logger, cfg)
	return nil
}

func configureLogger(l *logrus.Logger, c *config.Config) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

// runningInLambda reports whether the process was started by the Lambda
// service, which always sets the runtime API address.
func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}
