package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"romdex/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set gamedb client_id and client_secret (or export GAMEDB_CLIENT_ID / GAMEDB_CLIENT_SECRET).")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Show the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "ROM directory:    %s\n", cfg.Paths.RomDir)
			fmt.Fprintf(out, "Output directory: %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Image directory:  %s\n", cfg.Paths.ImageDir)
			fmt.Fprintf(out, "API base URL:     %s\n", cfg.GameDB.BaseURL)
			fmt.Fprintf(out, "Credentials set:  %s\n", yesNo(cfg.GameDB.ClientID != "" && cfg.GameDB.ClientSecret != ""))
			fmt.Fprintf(out, "Redis cache:      %s\n", orNone(cfg.Cache.RedisAddr))
			fmt.Fprintf(out, "Rate limit:       %d req / %d ms, concurrency %d, adaptive %s\n",
				cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.RefillIntervalMS,
				cfg.RateLimit.MaxConcurrency, yesNo(cfg.RateLimit.Adaptive))
			fmt.Fprintf(out, "Batch size:       %d (checkpoint every %d)\n",
				cfg.Pipeline.BatchSize, cfg.Pipeline.CheckpointThreshold)
			fmt.Fprintf(out, "Fuzzy threshold:  %.2f\n", cfg.Matching.FuzzyThreshold)
			fmt.Fprintf(out, "Lazy images:      %s\n", yesNo(cfg.Pipeline.LazyDownload))
			fmt.Fprintf(out, "Offline mode:     %s\n", yesNo(cfg.Pipeline.Offline))
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(none)"
	}
	return value
}
