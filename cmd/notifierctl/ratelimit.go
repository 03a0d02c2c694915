package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

func rateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate-limit",
		Short: "Show or change the ingestion rate limits",
	}
	cmd.AddCommand(rateLimitShowCmd())
	cmd.AddCommand(rateLimitSetCmd())
	return cmd
}

func rateLimitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the limit and window of each tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.GetSettings(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading settings: %w", err)
			}
			return printRateConfig(cmd, s.RateLimits)
		},
	}
}

func rateLimitSetCmd() *cobra.Command {
	var (
		sourceLimit, targetLimit, burstLimit          int
		sourceWindowMs, targetWindowMs, burstWindowMs int64
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more tiers",
		Long: `Change the limit or window of one or more tiers. Flags that are not
given keep their current value. A limit or window of 0 resets the tier
to its default.

Examples:
  # Allow 10 calls per 2 seconds across all webhooks
  notifierctl rate-limit set --burst-limit 10 --burst-window-ms 2000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.RateConfigPatch
			flags := cmd.Flags()
			if flags.Changed("source-limit") {
				patch.SourceLimit = &sourceLimit
			}
			if flags.Changed("source-window-ms") {
				patch.SourceWindowMs = &sourceWindowMs
			}
			if flags.Changed("target-limit") {
				patch.TargetLimit = &targetLimit
			}
			if flags.Changed("target-window-ms") {
				patch.TargetWindowMs = &targetWindowMs
			}
			if flags.Changed("burst-limit") {
				patch.BurstLimit = &burstLimit
			}
			if flags.Changed("burst-window-ms") {
				patch.BurstWindowMs = &burstWindowMs
			}
			if patch == (domain.RateConfigPatch{}) {
				return fmt.Errorf("nothing to change: pass at least one limit or window flag")
			}
			for _, v := range []int{sourceLimit, targetLimit, burstLimit} {
				if v < 0 {
					return fmt.Errorf("limits must not be negative")
				}
			}
			for _, v := range []int64{sourceWindowMs, targetWindowMs, burstWindowMs} {
				if v < 0 {
					return fmt.Errorf("windows must not be negative")
				}
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.GetSettings(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading settings: %w", err)
			}
			s.RateLimits = s.RateLimits.Merge(patch)
			if err := st.PutSettings(cmd.Context(), s); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			return printRateConfig(cmd, s.RateLimits)
		},
	}

	cmd.Flags().IntVar(&sourceLimit, "source-limit", 0, "Calls allowed per source address per window")
	cmd.Flags().Int64Var(&sourceWindowMs, "source-window-ms", 0, "Source window in milliseconds")
	cmd.Flags().IntVar(&targetLimit, "target-limit", 0, "Calls allowed per webhook per window")
	cmd.Flags().Int64Var(&targetWindowMs, "target-window-ms", 0, "Webhook window in milliseconds")
	cmd.Flags().IntVar(&burstLimit, "burst-limit", 0, "Calls allowed across all webhooks per window")
	cmd.Flags().Int64Var(&burstWindowMs, "burst-window-ms", 0, "Burst window in milliseconds")
	return cmd
}

func printRateConfig(cmd *cobra.Command, cfg domain.RateConfig) error {
	cfg = cfg.Effective()
	return outputResult(cmd.OutOrStdout(), cfg, outputFmt, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "TIER\tLIMIT\tWINDOW")
		for _, tier := range []domain.Tier{domain.TierSource, domain.TierTarget, domain.TierBurst} {
			limit, window := cfg.Tier(tier)
			fmt.Fprintf(tw, "%s\t%d\t%s\n", tier, limit, window)
		}
	})
}
