package library_test

import (
	"context"
	"testing"

	"romdex/internal/gamedb"
	"romdex/internal/library"
	"romdex/internal/testsupport"
)

func sampleRecord(platform, title string, gameID int64, path string, size int64) library.Record {
	rec := library.NewRecord(platform, title, gamedb.Game{ID: gameID, Name: title}, "exact", 100)
	rec.AddFile(path, size)
	return rec
}

func TestCheckpointPersistsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := sampleRecord("snes", "Chrono Trigger", 1, "/roms/ct.sfc", 4096)
	un := library.Unmatched{
		PlatformKey: "snes",
		Title:       "Obscure Homebrew",
		Path:        "/roms/oh.sfc",
		Reason:      "no candidates returned",
		Attempted:   []string{"Obscure Homebrew"},
	}

	if err := store.Checkpoint(ctx, "run-1", []library.Record{rec}, []library.Unmatched{un}); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	fetched, err := store.GetRecord(ctx, rec.Key)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if fetched == nil {
		t.Fatal("record not persisted")
	}
	if fetched.Name != "Chrono Trigger" || fetched.GameID != 1 {
		t.Errorf("unexpected record: %+v", fetched)
	}
	if len(fetched.Files) != 1 || fetched.Files[0].Path != "/roms/ct.sfc" {
		t.Errorf("files not persisted: %+v", fetched.Files)
	}
	if fetched.SizeBytes() != 4096 {
		t.Errorf("size = %d, want 4096", fetched.SizeBytes())
	}

	unmatched, err := store.AllUnmatched(ctx)
	if err != nil {
		t.Fatalf("AllUnmatched: %v", err)
	}
	if len(unmatched) != 1 {
		t.Fatalf("unmatched count = %d, want 1", len(unmatched))
	}
	if unmatched[0].Reason != "no candidates returned" {
		t.Errorf("reason = %q", unmatched[0].Reason)
	}
	if len(unmatched[0].Attempted) != 1 {
		t.Errorf("attempted variations lost: %+v", unmatched[0].Attempted)
	}
}

func TestCheckpointMergesDuplicateKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := sampleRecord("snes", "Chrono Trigger", 1, "/roms/ct-disc1.sfc", 1000)
	if err := store.Checkpoint(ctx, "run-1", []library.Record{first}, nil); err != nil {
		t.Fatalf("first checkpoint: %v", err)
	}

	second := sampleRecord("snes", "Chrono Trigger", 1, "/roms/ct-disc2.sfc", 2000)
	if err := store.Checkpoint(ctx, "run-2", []library.Record{second}, nil); err != nil {
		t.Fatalf("second checkpoint: %v", err)
	}

	fetched, err := store.GetRecord(ctx, first.Key)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if fetched == nil {
		t.Fatal("record missing after merge")
	}
	if len(fetched.Files) != 2 {
		t.Fatalf("files = %d, want 2 (paths merged)", len(fetched.Files))
	}
	if fetched.SizeBytes() != 3000 {
		t.Errorf("size = %d, want 3000", fetched.SizeBytes())
	}

	grouped, err := store.RecordsByPlatform(ctx)
	if err != nil {
		t.Fatalf("RecordsByPlatform: %v", err)
	}
	if len(grouped["snes"]) != 1 {
		t.Errorf("snes records = %d, want 1 (no duplicate row)", len(grouped["snes"]))
	}
}

func TestCheckpointDuplicatePathNotDoubleCounted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := sampleRecord("nes", "Metroid", 3, "/roms/metroid.nes", 512)
	if err := store.Checkpoint(ctx, "run-1", []library.Record{rec}, nil); err != nil {
		t.Fatalf("first checkpoint: %v", err)
	}
	if err := store.Checkpoint(ctx, "run-1", []library.Record{rec}, nil); err != nil {
		t.Fatalf("repeat checkpoint: %v", err)
	}

	fetched, err := store.GetRecord(ctx, rec.Key)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if len(fetched.Files) != 1 || fetched.SizeBytes() != 512 {
		t.Errorf("repeat flush changed record: files=%d size=%d", len(fetched.Files), fetched.SizeBytes())
	}
}

func TestExistingKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	keys, err := store.ExistingKeys(ctx)
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("fresh store has %d keys", len(keys))
	}

	rec := sampleRecord("snes", "Chrono Trigger", 1, "/roms/ct.sfc", 10)
	if err := store.Checkpoint(ctx, "run-1", []library.Record{rec}, nil); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	keys, err = store.ExistingKeys(ctx)
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if !keys[library.RecordKey("snes", "Chrono Trigger")] {
		t.Errorf("persisted key missing from %v", keys)
	}

	un := library.Unmatched{
		PlatformKey: "snes",
		Title:       "Obscure Homebrew",
		Path:        "/roms/oh.sfc",
		Reason:      "no candidates returned",
	}
	if err := store.Checkpoint(ctx, "run-2", nil, []library.Unmatched{un}); err != nil {
		t.Fatalf("Checkpoint unmatched: %v", err)
	}

	keys, err = store.ExistingKeys(ctx)
	if err != nil {
		t.Fatalf("ExistingKeys: %v", err)
	}
	if !keys[library.RecordKey("snes", "Obscure Homebrew")] {
		t.Errorf("unmatched key missing from %v", keys)
	}
}

func TestSummarize(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	records := []library.Record{
		sampleRecord("snes", "Chrono Trigger", 1, "/roms/ct.sfc", 100),
		sampleRecord("snes", "Earthbound", 2, "/roms/eb.sfc", 200),
		sampleRecord("nes", "Metroid", 3, "/roms/m.nes", 50),
	}
	un := library.Unmatched{PlatformKey: "nes", Title: "Mystery", Path: "/roms/x.nes", Reason: "no candidates returned"}

	if err := store.Checkpoint(ctx, "run-9", records, []library.Unmatched{un}); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.TotalRecords != 3 {
		t.Errorf("total records = %d, want 3", summary.TotalRecords)
	}
	if summary.TotalUnmatched != 1 {
		t.Errorf("total unmatched = %d, want 1", summary.TotalUnmatched)
	}
	if summary.LastRunID != "run-9" {
		t.Errorf("last run = %q, want run-9", summary.LastRunID)
	}
	if len(summary.Platforms) != 2 {
		t.Fatalf("platforms = %d, want 2", len(summary.Platforms))
	}
	if summary.Platforms[0].PlatformKey != "nes" || summary.Platforms[1].PlatformKey != "snes" {
		t.Errorf("platforms not sorted: %+v", summary.Platforms)
	}
	if summary.Platforms[1].Records != 2 || summary.Platforms[1].SizeBytes != 300 {
		t.Errorf("snes summary = %+v", summary.Platforms[1])
	}
}

func TestRecordKeyNormalization(t *testing.T) {
	a := library.RecordKey("SNES", " Chrono Trigger ")
	b := library.RecordKey("snes", "chrono trigger")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestMergePrefersHigherScore(t *testing.T) {
	base := library.NewRecord("snes", "Chrono Trigger", gamedb.Game{ID: 1, Name: "Chrono Trigger"}, "fuzzy", 0.6)
	base.AddFile("/roms/a.sfc", 10)

	better := library.NewRecord("snes", "Chrono Trigger", gamedb.Game{ID: 2, Name: "Chrono Trigger", Summary: "rpg"}, "exact", 120)
	better.AddFile("/roms/b.sfc", 20)

	base.Merge(better)
	if base.GameID != 2 || base.MatchType != "exact" {
		t.Errorf("higher-scoring metadata did not win: %+v", base)
	}
	if len(base.Files) != 2 || base.SizeBytes() != 30 {
		t.Errorf("files not merged: %+v", base.Files)
	}
}
