/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackeyesartisan/shopkit/httpclient"
	"github.com/blackeyesartisan/shopkit/internal/libinfo"
	"github.com/blackeyesartisan/shopkit/notification"
)

var (
	testEmailTemplate string
	testEmailData     string
)

var sendTestEmailCmd = &cobra.Command{
	Use:   "send-test-email <to>",
	Short: "Render a template and send it to the given address",
	Long: `Render the email template with the data passed as JSON and send it via Resend.
The retry policy of the notification configuration is applied.`,
	Args: cobra.ExactArgs(1),
	RunE: runSendTestEmail,
}

func init() {
	sendTestEmailCmd.Flags().StringVarP(&testEmailTemplate, "template", "t", notification.TemplateOrderPlaced,
		"name of the email template")
	sendTestEmailCmd.Flags().StringVarP(&testEmailData, "data", "d", "{}", "template data as a JSON object")
}

func runSendTestEmail(cmd *cobra.Command, args []string) error {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(testEmailData), &data); err != nil {
		return fmt.Errorf("parse --data: %w", err)
	}

	cfg, logger, closeLogger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer closeLogger()

	sender, err := notification.NewSenderFromConfig(cfg.Notification, logger,
		httpclient.Opts{UserAgent: libinfo.UserAgent("cli")}, nil)
	if err != nil {
		return err
	}
	id, ok := sender.Send(cmd.Context(), notification.Notification{Template: testEmailTemplate, To: args[0], Data: data})
	if !ok {
		return errors.New("email was not sent, see the log for details (valid templates: " +
			strings.Join(sender.Templates(), ", ") + ")")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
	return err
}
