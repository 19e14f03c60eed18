package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"romdex/internal/library"
	"romdex/internal/romfile"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the current library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := library.Open(cfg)
			if err != nil {
				return fmt.Errorf("open library store: %w", err)
			}
			defer func() { _ = store.Close() }()

			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return fmt.Errorf("summarize library: %w", err)
			}

			out := cmd.OutOrStdout()
			if summary.TotalRecords == 0 && summary.TotalUnmatched == 0 {
				fmt.Fprintln(out, "Library is empty; run `romdex scan` first.")
				return nil
			}

			rows := make([][]string, 0, len(summary.Platforms))
			for _, platform := range summary.Platforms {
				rows = append(rows, []string{
					romfile.DisplayTitle(platform.PlatformKey),
					fmt.Sprintf("%d", platform.Records),
					formatSize(platform.SizeBytes),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Platform", "Records", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))

			fmt.Fprintf(out, "Total: %d records, %d unmatched\n", summary.TotalRecords, summary.TotalUnmatched)
			if summary.LastRunID != "" {
				fmt.Fprintf(out, "Last checkpoint: %s (run %s)\n",
					summary.LastCheckpoint.Local().Format("2006-01-02 15:04:05"), summary.LastRunID)
			}
			return nil
		},
	}
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
