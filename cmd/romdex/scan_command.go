package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"romdex/internal/cache"
	"romdex/internal/config"
	"romdex/internal/gamedb"
	"romdex/internal/images"
	"romdex/internal/library"
	"romdex/internal/logging"
	"romdex/internal/matching"
	"romdex/internal/pipeline"
	"romdex/internal/rategate"
)

func newScanCommand(cctx *commandContext) *cobra.Command {
	var offlineFlag bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the ROM directory and catalog matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			if offlineFlag {
				cfg.Pipeline.Offline = true
			}
			return runScan(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&offlineFlag, "offline", false, "Serve lookups from cache only, never calling the metadata API")
	return cmd
}

func runScan(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.OutputDir, "romdex.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return errors.New("another romdex run is already writing to this output directory")
	}
	defer func() { _ = lock.Unlock() }()

	store, err := library.Open(cfg)
	if err != nil {
		return fmt.Errorf("open library store: %w", err)
	}
	defer func() { _ = store.Close() }()

	responseCache := cache.New(cache.Options{
		RedisAddr: cfg.Cache.RedisAddr,
		TTL:       time.Duration(cfg.Cache.TTLHours) * time.Hour,
		MaxItems:  cfg.Cache.LocalMaxItems,
		MaxBytes:  int64(cfg.Cache.LocalMaxMiB) * 1024 * 1024,
	}, logger)
	defer responseCache.Close()

	var searcher matching.Searcher
	var gate *rategate.Gate
	if !cfg.Pipeline.Offline {
		client, err := gamedb.New(cfg.GameDB.ClientID, cfg.GameDB.ClientSecret, cfg.GameDB.BaseURL, cfg.GameDB.AuthURL,
			gamedb.WithTimeout(time.Duration(cfg.GameDB.TimeoutSecs)*time.Second))
		if err != nil {
			return fmt.Errorf("configure metadata client: %w", err)
		}
		gate = rategate.New(client, rategate.Options{
			Capacity:       cfg.RateLimit.RequestsPerSecond,
			RefillInterval: time.Duration(cfg.RateLimit.RefillIntervalMS) * time.Millisecond,
			MaxConcurrency: cfg.RateLimit.MaxConcurrency,
			Adaptive:       cfg.RateLimit.Adaptive,
		}, logger)
		defer gate.Close()
		searcher = gate
	}

	engine := matching.NewEngine(searcher, responseCache, logger, matching.EngineOptions{
		FuzzyThreshold: cfg.Matching.FuzzyThreshold,
		Offline:        cfg.Pipeline.Offline,
	})

	downloader := images.New(cfg.Paths.ImageDir, cfg.Pipeline.LazyDownload, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := pipeline.New(cfg, store, engine, downloader, logger)
	progress, runErr := orch.Run(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "State", "Total", "Skipped", "Matched", "Merged", "Unmatched", "Cache Hits", "Checkpoints"},
		[][]string{{
			progress.RunID,
			string(progress.State),
			fmt.Sprintf("%d", progress.Total),
			fmt.Sprintf("%d", progress.Skipped),
			fmt.Sprintf("%d", progress.Matched),
			fmt.Sprintf("%d", progress.Merged),
			fmt.Sprintf("%d", progress.Unmatched),
			fmt.Sprintf("%d", progress.CacheHits),
			fmt.Sprintf("%d", progress.Checkpoints),
		}},
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if runErr != nil {
		return fmt.Errorf("scan run %s: %w", progress.RunID, runErr)
	}
	return nil
}
