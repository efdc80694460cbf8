package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/infrastructure/signature"
	"github.com/spf13/cobra"
)

func signCmd() *cobra.Command {
	var (
		secret string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the webhook signature of a request body",
		Long: `Print the hex HMAC-SHA256 a processor would send in the
x-processor-signature header, for replaying webhooks by hand.

Examples:
  gateway sign --secret whsec_123 --file payment.json
  cat payment.json | gateway sign --secret whsec_123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("GATEWAY_WEBHOOK__SECRET")
			}
			if secret == "" {
				return errors.New("a secret is required (--secret or GATEWAY_WEBHOOK__SECRET)")
			}

			body, err := readBody(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signature.Sign(body, []byte(secret)))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "webhook signing secret")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "body file, - for stdin")

	return cmd
}

func readBody(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(stdin)
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
