package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"romdex/internal/config"
	"romdex/internal/library"
	"romdex/internal/logging"
	"romdex/internal/matching"
	"romdex/internal/romfile"
	"romdex/internal/services"
)

// State is the orchestrator lifecycle phase.
type State string

const (
	StateIdle            State = "idle"
	StateScanning        State = "scanning"
	StateBatchProcessing State = "batch_processing"
	StateSaving          State = "saving"
	StateDone            State = "done"
	StateInterrupted     State = "interrupted"
)

// interruptFlushTimeout bounds the best-effort checkpoint taken when a run
// is cancelled or aborts.
const interruptFlushTimeout = 10 * time.Second

// Matcher resolves metadata for one scanned entry.
type Matcher interface {
	Match(ctx context.Context, entry romfile.Entry) (matching.Outcome, error)
}

// ImageFetcher retrieves artwork for a matched record.
type ImageFetcher interface {
	Fetch(ctx context.Context, rec library.Record)
}

// Progress is a snapshot of run counters.
type Progress struct {
	State       State
	RunID       string
	Total       int
	Skipped     int
	Processed   int
	Matched     int
	Merged      int
	Unmatched   int
	CacheHits   int
	Checkpoints int
}

// Orchestrator drives one catalog run: scan, batch matching, incremental
// checkpoints, final save. The library store is the durability mechanism;
// an interrupted run resumes by skipping keys the store already holds.
type Orchestrator struct {
	cfg     *config.Config
	store   *library.Store
	matcher Matcher
	images  ImageFetcher
	logger  *slog.Logger
	runID   string

	mu               sync.Mutex
	state            State
	progress         Progress
	pendingRecords   map[string]*library.Record
	pendingUnmatched []library.Unmatched
	sinceCheckpoint  int
}

// New constructs an orchestrator with a fresh run ID.
func New(cfg *config.Config, store *library.Store, matcher Matcher, images ImageFetcher, logger *slog.Logger) *Orchestrator {
	runID := uuid.NewString()
	return &Orchestrator{
		cfg:            cfg,
		store:          store,
		matcher:        matcher,
		images:         images,
		logger:         logging.NewComponentLogger(logger, "pipeline"),
		runID:          runID,
		state:          StateIdle,
		progress:       Progress{State: StateIdle, RunID: runID},
		pendingRecords: make(map[string]*library.Record),
	}
}

// RunID returns the identifier stamped on this run's checkpoints.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Snapshot returns the current progress counters.
func (o *Orchestrator) Snapshot() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.progress.State = state
	o.mu.Unlock()
	o.logger.Info("state change", logging.String("state", string(state)), logging.String(logging.FieldRunID, o.runID))
}

// Run executes the full pipeline. A returned error means the run aborted;
// pending results are flushed best-effort before returning either way.
func (o *Orchestrator) Run(ctx context.Context) (Progress, error) {
	o.setState(StateScanning)

	scanner := romfile.NewScanner(o.cfg.Paths.RomDir, o.cfg.Platforms, o.logger)
	entries, err := scanner.Scan()
	if err != nil {
		o.setState(StateInterrupted)
		return o.Snapshot(), services.Wrap(services.ErrConfiguration, "pipeline", "scan", "scan rom directory", err)
	}

	existing, err := o.store.ExistingKeys(ctx)
	if err != nil {
		o.setState(StateInterrupted)
		return o.Snapshot(), err
	}

	work := make([]romfile.Entry, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		key := library.RecordKey(entry.PlatformKey, romfile.Normalize(entry.Title).Clean)
		if existing[key] {
			skipped++
			continue
		}
		work = append(work, entry)
	}

	o.mu.Lock()
	o.progress.Total = len(entries)
	o.progress.Skipped = skipped
	o.mu.Unlock()

	o.logger.Info("scan complete",
		logging.Int("entries", len(entries)),
		logging.Int("skipped", skipped),
		logging.Int("to_process", len(work)))

	o.setState(StateBatchProcessing)

	batchSize := o.cfg.Pipeline.BatchSize
	if batchSize <= 0 {
		batchSize = len(work)
	}
	for start := 0; start < len(work); start += batchSize {
		end := start + batchSize
		if end > len(work) {
			end = len(work)
		}
		if err := o.processBatch(ctx, work[start:end]); err != nil {
			return o.interrupt(err)
		}
	}

	o.setState(StateSaving)
	if err := o.SaveNow(ctx); err != nil {
		return o.interrupt(err)
	}
	o.verifyConservation(len(work))

	o.setState(StateDone)
	return o.Snapshot(), nil
}

func (o *Orchestrator) processBatch(ctx context.Context, batch []romfile.Entry) error {
	for _, entry := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := o.matcher.Match(ctx, entry)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return services.Wrap(services.ErrTransient, "pipeline", "match", "match entry", err)
		}

		o.recordOutcome(ctx, outcome)

		if o.checkpointDue() {
			if err := o.SaveNow(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) recordOutcome(ctx context.Context, outcome matching.Outcome) {
	o.mu.Lock()
	o.progress.Processed++
	o.sinceCheckpoint++
	if outcome.FromCache {
		o.progress.CacheHits++
	}

	if !outcome.Matched {
		// The normalized title goes into the log so the stored key lines up
		// with the skip key computed on the next run.
		title := outcome.Title
		if title == "" {
			title = outcome.Entry.Title
		}
		o.pendingUnmatched = append(o.pendingUnmatched, library.Unmatched{
			PlatformKey: outcome.Entry.PlatformKey,
			Title:       title,
			Path:        outcome.Entry.Path,
			Reason:      outcome.Reason,
			Attempted:   outcome.Attempted,
		})
		o.progress.Unmatched++
		o.mu.Unlock()

		o.logger.Warn("no match",
			logging.String(logging.FieldTitle, outcome.Entry.Title),
			logging.String(logging.FieldPlatform, outcome.Entry.PlatformKey),
			logging.String("reason", outcome.Reason))
		return
	}

	rec := library.NewRecord(outcome.Entry.PlatformKey, outcome.Title, outcome.Game, string(outcome.Type), outcome.Score)
	rec.AddFile(outcome.Entry.Path, outcome.Entry.SizeBytes)

	if existing, ok := o.pendingRecords[rec.Key]; ok {
		existing.Merge(rec)
		o.progress.Merged++
		rec = *existing
	} else {
		o.pendingRecords[rec.Key] = &rec
		o.progress.Matched++
	}
	o.mu.Unlock()

	if o.images != nil {
		o.images.Fetch(ctx, rec)
	}

	o.logger.Info("matched",
		logging.String(logging.FieldTitle, rec.Title),
		logging.String(logging.FieldPlatform, rec.PlatformKey),
		logging.String("match_type", rec.MatchType),
		logging.Float64("score", rec.Score))
}

func (o *Orchestrator) checkpointDue() bool {
	threshold := o.cfg.Pipeline.CheckpointThreshold
	if threshold <= 0 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sinceCheckpoint >= threshold
}

// SaveNow flushes pending results to the store in one transaction and
// regenerates the export files. Safe to call at any time, including with
// nothing pending.
func (o *Orchestrator) SaveNow(ctx context.Context) error {
	o.mu.Lock()
	records := make([]library.Record, 0, len(o.pendingRecords))
	for _, rec := range o.pendingRecords {
		records = append(records, *rec)
	}
	unmatched := append([]library.Unmatched(nil), o.pendingUnmatched...)
	o.mu.Unlock()

	if err := o.store.Checkpoint(ctx, o.runID, records, unmatched); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if _, err := o.store.Export(ctx, o.cfg.Paths.OutputDir, o.runID); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	o.mu.Lock()
	o.pendingRecords = make(map[string]*library.Record)
	o.pendingUnmatched = nil
	o.sinceCheckpoint = 0
	o.progress.Checkpoints++
	o.mu.Unlock()

	o.logger.Info("checkpoint flushed",
		logging.Int("records", len(records)),
		logging.Int("unmatched", len(unmatched)),
		logging.String(logging.FieldRunID, o.runID))
	return nil
}

// interrupt flushes pending state best-effort and reports the cause.
func (o *Orchestrator) interrupt(cause error) (Progress, error) {
	flushCtx, cancel := context.WithTimeout(context.Background(), interruptFlushTimeout)
	defer cancel()
	if err := o.SaveNow(flushCtx); err != nil {
		o.logger.Error("final checkpoint failed",
			logging.Error(err),
			logging.String(logging.FieldRunID, o.runID))
	}
	o.setState(StateInterrupted)
	return o.Snapshot(), cause
}

// verifyConservation checks that every processed entry landed in exactly
// one bucket.
func (o *Orchestrator) verifyConservation(input int) {
	o.mu.Lock()
	matched := o.progress.Matched
	merged := o.progress.Merged
	unmatched := o.progress.Unmatched
	o.mu.Unlock()

	if matched+merged+unmatched != input {
		o.logger.Error("entry accounting mismatch",
			logging.Int("input", input),
			logging.Int("matched", matched),
			logging.Int("merged", merged),
			logging.Int("unmatched", unmatched),
			logging.Alert("entries lost or double-counted"))
	}
}
