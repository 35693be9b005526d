package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rmtechsolution/valentine-backend/services/story-service/providers"
	"github.com/spf13/cobra"
)

func signWebhookCmd() *cobra.Command {
	var file, secret string

	cmd := &cobra.Command{
		Use:   "sign-webhook",
		Short: "Print the X-Razorpay-Signature for a webhook body",
		Long: `Print the X-Razorpay-Signature for a webhook body, for replaying
gateway webhooks against a local service.

Examples:
  storyctl sign-webhook --file captured.json --secret whsec
  cat captured.json | RAZORPAY_WEBHOOK_SECRET=whsec storyctl sign-webhook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("RAZORPAY_WEBHOOK_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("webhook secret required (--secret or RAZORPAY_WEBHOOK_SECRET)")
			}

			var body []byte
			var err error
			if file == "" || file == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), providers.Sign(body, secret))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "webhook body (default stdin)")
	cmd.Flags().StringVar(&secret, "secret", "", "webhook secret")
	return cmd
}
