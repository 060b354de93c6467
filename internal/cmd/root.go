/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package cmd contains the commands of the shopedge CLI.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/blackeyesartisan/shopkit/internal/app"
	"github.com/blackeyesartisan/shopkit/internal/libinfo"
	"github.com/blackeyesartisan/shopkit/log"
)

var configPath string

// RootCmd is the shopedge command.
var RootCmd = &cobra.Command{
	Use:   "shopedge",
	Short: "shopedge is the HTTP edge of the shop: rate limiting, uploads, notifications",
	Long: `shopedge runs in front of the commerce API. It limits the storefront traffic,
stores uploaded files in Cloudinary (or on the local disk) and sends transactional emails via Resend.

Configuration is read from the file passed with --config and from SHOPKIT_* environment variables.`,
	Version:       libinfo.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the configuration file (YAML or JSON), only environment variables are used if empty")
	RootCmd.AddCommand(serveCmd, sendTestEmailCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.ExecuteContext(context.Background())
}

// loadConfigAndLogger is shared by the commands that need the whole configuration.
func loadConfigAndLogger() (*app.Config, log.FieldLogger, log.CloseFunc, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLogger := log.NewLogger(cfg.Log)
	return cfg, logger, closeLogger, nil
}
