/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/blackeyesartisan/shopkit/internal/app"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/service"
)

var metricsNamespace string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the edge HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsNamespace, "metrics-namespace", "shopedge", "namespace of the Prometheus metrics")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, closeLogger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer closeLogger()

	a, err := app.New(cfg, logger, app.Opts{MetricsNamespace: metricsNamespace})
	if err != nil {
		logger.Error("failed to create shopedge", log.Error(err))
		return err
	}
	logger.Info("starting shopedge",
		log.String("address", cfg.Server.Address),
		log.String("environment", string(cfg.Server.Environment)),
		log.String("version", cfg.Server.Version),
	)
	return service.New(logger, a).StartContext(cmd.Context())
}
