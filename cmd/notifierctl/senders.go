package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/mailer"
)

type verifier interface {
	Verify(ctx context.Context, sender domain.Sender) error
}

// newVerifier builds the SMTP checker. Tests replace it.
var newVerifier = func(timeout time.Duration) verifier {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return mailer.NewSMTPMailer(timeout, logger)
}

func sendersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "senders",
		Short: "Inspect SMTP senders",
	}
	cmd.AddCommand(sendersVerifyCmd())
	return cmd
}

// VerifyResult is the outcome of a senders verify command.
type VerifyResult struct {
	SenderID string `json:"sender_id"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

func sendersVerifyCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "verify <sender-id>",
		Short: "Open an SMTP session with a stored sender",
		Long: `Connect and authenticate to the sender's SMTP server without sending
anything. The command fails when the session cannot be established.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			sender, err := st.GetSender(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading sender: %w", err)
			}
			if sender == nil {
				return fmt.Errorf("sender %q not found", args[0])
			}

			result := VerifyResult{SenderID: sender.ID, Host: sender.Host, Port: sender.Port, Success: true}
			verr := newVerifier(timeout).Verify(cmd.Context(), *sender)
			if verr != nil {
				result.Success = false
				result.Error = verr.Error()
			}

			if err := outputResult(cmd.OutOrStdout(), result, outputFmt, func(tw *tabwriter.Writer) {
				status := "ok"
				if !result.Success {
					status = "failed: " + result.Error
				}
				fmt.Fprintf(tw, "%s\t%s:%d\t%s\n", result.SenderID, result.Host, result.Port, status)
			}); err != nil {
				return err
			}
			if verr != nil {
				return fmt.Errorf("verifying sender %s: %w", sender.ID, verr)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", mailer.DefaultDialTimeout, "SMTP dial timeout")
	return cmd
}
