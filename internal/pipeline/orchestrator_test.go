package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"romdex/internal/gamedb"
	"romdex/internal/library"
	"romdex/internal/matching"
	"romdex/internal/pipeline"
	"romdex/internal/romfile"
	"romdex/internal/testsupport"
)

// stubMatcher matches titles present in its games map and reports everything
// else unmatched.
type stubMatcher struct {
	mu      sync.Mutex
	games   map[string]gamedb.Game
	calls   int
	failOn  string
	failErr error
	blockOn string
	cancel  context.CancelFunc
}

func (m *stubMatcher) Match(ctx context.Context, entry romfile.Entry) (matching.Outcome, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	norm := romfile.Normalize(entry.Title)
	outcome := matching.Outcome{Entry: entry, Title: norm.Clean, Type: matching.MatchNone}

	if m.failOn != "" && strings.Contains(entry.Title, m.failOn) {
		return outcome, m.failErr
	}
	if m.blockOn != "" && strings.Contains(entry.Title, m.blockOn) {
		m.cancel()
		return outcome, ctx.Err()
	}

	if game, ok := m.games[norm.Clean]; ok {
		outcome.Matched = true
		outcome.Game = game
		outcome.Score = 120
		outcome.Type = matching.MatchExact
		return outcome, nil
	}
	outcome.Reason = "no candidates returned"
	outcome.Attempted = romfile.Variants(norm.Clean)
	return outcome, nil
}

func TestRunCatalogsAndExports(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(2), testsupport.WithCheckpointThreshold(2))
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Chrono Trigger (USA).sfc", 100)
	testsupport.WriteROM(t, cfg, "Earthbound (USA).sfc", 200)
	testsupport.WriteROM(t, cfg, "Mystery Dump.sfc", 50)

	matcher := &stubMatcher{games: map[string]gamedb.Game{
		"Chrono Trigger": {ID: 1, Name: "Chrono Trigger"},
		"Earthbound":     {ID: 2, Name: "Earthbound"},
	}}

	orch := pipeline.New(cfg, store, matcher, nil, nil)
	progress, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if progress.State != pipeline.StateDone {
		t.Errorf("state = %q, want %q", progress.State, pipeline.StateDone)
	}
	if progress.Total != 3 || progress.Processed != 3 {
		t.Errorf("total/processed = %d/%d, want 3/3", progress.Total, progress.Processed)
	}
	if progress.Matched != 2 || progress.Unmatched != 1 {
		t.Errorf("matched/unmatched = %d/%d, want 2/1", progress.Matched, progress.Unmatched)
	}
	if progress.Matched+progress.Merged+progress.Unmatched != progress.Processed {
		t.Errorf("entry accounting violated: %+v", progress)
	}

	ctx := context.Background()
	rec, err := store.GetRecord(ctx, library.RecordKey("snes", "Chrono Trigger"))
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec == nil || rec.GameID != 1 {
		t.Fatalf("record not persisted: %+v", rec)
	}
	if rec.SizeBytes() != 100 {
		t.Errorf("record size = %d, want 100", rec.SizeBytes())
	}

	unmatched, err := store.AllUnmatched(ctx)
	if err != nil {
		t.Fatalf("AllUnmatched: %v", err)
	}
	if len(unmatched) != 1 || unmatched[0].Title != "Mystery Dump" {
		t.Fatalf("unmatched = %+v", unmatched)
	}
	if len(unmatched[0].Attempted) == 0 {
		t.Error("attempted variations not recorded")
	}
}

func TestRunMergesMultiFileDumps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Final Fantasy VII (Disc 1).cue", 10)
	testsupport.WriteROM(t, cfg, "Final Fantasy VII (Disc 2).cue", 20)

	matcher := &stubMatcher{games: map[string]gamedb.Game{
		"Final Fantasy VII": {ID: 7, Name: "Final Fantasy VII"},
	}}

	orch := pipeline.New(cfg, store, matcher, nil, nil)
	progress, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if progress.Matched != 1 || progress.Merged != 1 {
		t.Errorf("matched/merged = %d/%d, want 1/1", progress.Matched, progress.Merged)
	}

	rec, err := store.GetRecord(context.Background(), library.RecordKey("psx", "Final Fantasy VII"))
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec == nil {
		t.Fatal("merged record missing")
	}
	if len(rec.Files) != 2 || rec.SizeBytes() != 30 {
		t.Errorf("merged record files=%d size=%d, want 2/30", len(rec.Files), rec.SizeBytes())
	}
}

func TestRunSkipsExistingKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	existing := library.NewRecord("snes", "Chrono Trigger", gamedb.Game{ID: 1, Name: "Chrono Trigger"}, "exact", 120)
	existing.AddFile("/old/ct.sfc", 10)
	if err := store.Checkpoint(ctx, "earlier-run", []library.Record{existing}, nil); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	testsupport.WriteROM(t, cfg, "Chrono Trigger (USA).sfc", 100)
	testsupport.WriteROM(t, cfg, "Earthbound (USA).sfc", 200)

	matcher := &stubMatcher{games: map[string]gamedb.Game{
		"Chrono Trigger": {ID: 1, Name: "Chrono Trigger"},
		"Earthbound":     {ID: 2, Name: "Earthbound"},
	}}

	orch := pipeline.New(cfg, store, matcher, nil, nil)
	progress, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if progress.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", progress.Skipped)
	}
	if matcher.calls != 1 {
		t.Errorf("matcher calls = %d, want 1 (existing key skipped)", matcher.calls)
	}
}

func TestRerunSkipsUnmatchedEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Obscure Homebrew (USA).sfc", 10)

	first := pipeline.New(cfg, store, &stubMatcher{}, nil, nil)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &stubMatcher{}
	progress, err := pipeline.New(cfg, store, second, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if progress.Processed != 0 || progress.Skipped != 1 {
		t.Errorf("second run processed=%d skipped=%d, want 0/1", progress.Processed, progress.Skipped)
	}
	if second.calls != 0 {
		t.Errorf("second run issued %d matcher calls, want 0", second.calls)
	}

	unmatched, err := store.AllUnmatched(context.Background())
	if err != nil {
		t.Fatalf("AllUnmatched: %v", err)
	}
	if len(unmatched) != 1 {
		t.Errorf("unmatched rows = %d after two runs, want 1", len(unmatched))
	}
}

func TestRunCheckpointsIncrementally(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1), testsupport.WithCheckpointThreshold(1))
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Chrono Trigger.sfc", 10)
	testsupport.WriteROM(t, cfg, "Earthbound.sfc", 10)
	testsupport.WriteROM(t, cfg, "Metroid.nes", 10)

	matcher := &stubMatcher{games: map[string]gamedb.Game{
		"Chrono Trigger": {ID: 1, Name: "Chrono Trigger"},
		"Earthbound":     {ID: 2, Name: "Earthbound"},
		"Metroid":        {ID: 3, Name: "Metroid"},
	}}

	orch := pipeline.New(cfg, store, matcher, nil, nil)
	progress, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One checkpoint per entry plus the final save.
	if progress.Checkpoints < 3 {
		t.Errorf("checkpoints = %d, want at least 3", progress.Checkpoints)
	}
}

func TestRunInterruptFlushesPendingState(t *testing.T) {
	// Threshold high enough that nothing would flush without the
	// best-effort interrupt checkpoint.
	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(10), testsupport.WithCheckpointThreshold(100))
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Chrono Trigger.sfc", 10)
	testsupport.WriteROM(t, cfg, "Zzz Cancel Here.sfc", 10)

	ctx, cancel := context.WithCancel(context.Background())
	matcher := &stubMatcher{
		games: map[string]gamedb.Game{
			"Chrono Trigger": {ID: 1, Name: "Chrono Trigger"},
		},
		blockOn: "Cancel Here",
		cancel:  cancel,
	}

	orch := pipeline.New(cfg, store, matcher, nil, nil)
	progress, err := orch.Run(ctx)
	if err == nil {
		t.Fatal("cancelled run reported success")
	}
	if progress.State != pipeline.StateInterrupted {
		t.Errorf("state = %q, want %q", progress.State, pipeline.StateInterrupted)
	}

	rec, err := store.GetRecord(context.Background(), library.RecordKey("snes", "Chrono Trigger"))
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec == nil {
		t.Fatal("pending record lost on interrupt")
	}
}

func TestRunMatcherFailureAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Broken Entry.sfc", 10)

	matcher := &stubMatcher{
		failOn:  "Broken",
		failErr: errors.New("metadata service unusable"),
	}

	orch := pipeline.New(cfg, store, matcher, nil, nil)
	progress, err := orch.Run(context.Background())
	if err == nil {
		t.Fatal("expected abort error")
	}
	if progress.State != pipeline.StateInterrupted {
		t.Errorf("state = %q, want %q", progress.State, pipeline.StateInterrupted)
	}
}

func TestSaveNowIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	orch := pipeline.New(cfg, store, &stubMatcher{}, nil, nil)
	ctx := context.Background()
	if err := orch.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow on empty state: %v", err)
	}
	if err := orch.SaveNow(ctx); err != nil {
		t.Fatalf("repeat SaveNow: %v", err)
	}
}

func TestRerunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.WriteROM(t, cfg, "Chrono Trigger.sfc", 100)

	games := map[string]gamedb.Game{"Chrono Trigger": {ID: 1, Name: "Chrono Trigger"}}

	first := pipeline.New(cfg, store, &stubMatcher{games: games}, nil, nil)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := pipeline.New(cfg, store, &stubMatcher{games: games}, nil, nil)
	progress, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if progress.Processed != 0 || progress.Skipped != 1 {
		t.Errorf("second run processed=%d skipped=%d, want 0/1", progress.Processed, progress.Skipped)
	}

	rec, err := store.GetRecord(context.Background(), library.RecordKey("snes", "Chrono Trigger"))
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.SizeBytes() != 100 {
		t.Errorf("size changed on re-run: %d", rec.SizeBytes())
	}
}
