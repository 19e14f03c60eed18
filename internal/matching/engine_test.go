package matching

import (
	"context"
	"errors"
	"testing"

	"romdex/internal/gamedb"
	"romdex/internal/romfile"
	"romdex/internal/services"
)

type fakeSearcher struct {
	results map[gamedb.QueryKind][]gamedb.Game
	errs    map[gamedb.QueryKind]error
	calls   []gamedb.SearchQuery
}

func (f *fakeSearcher) Search(_ context.Context, query gamedb.SearchQuery) ([]gamedb.Game, error) {
	f.calls = append(f.calls, query)
	if err := f.errs[query.Kind]; err != nil {
		return nil, err
	}
	return f.results[query.Kind], nil
}

type fakeCache struct {
	entries map[string][]gamedb.Game
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]gamedb.Game)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]gamedb.Game, bool) {
	games, ok := f.entries[key]
	return games, ok
}

func (f *fakeCache) Set(_ context.Context, key string, games []gamedb.Game) {
	f.sets++
	f.entries[key] = games
}

func entry(title, platform string) romfile.Entry {
	return romfile.Entry{Title: title, PlatformKey: platform, Path: "/roms/" + title}
}

func TestMatchExactShortCircuits(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[gamedb.QueryKind][]gamedb.Game{
			gamedb.QueryExact: {{ID: 1, Name: "Chrono Trigger", Platforms: []int64{19}}},
			gamedb.QueryFuzzy: {{ID: 2, Name: "Chrono Cross"}},
		},
	}
	engine := NewEngine(searcher, newFakeCache(), nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("Chrono Trigger", "snes"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !outcome.Matched {
		t.Fatalf("expected match, got reason %q", outcome.Reason)
	}
	if outcome.Game.ID != 1 {
		t.Errorf("matched game ID = %d, want 1", outcome.Game.ID)
	}
	if outcome.Type != MatchExact {
		t.Errorf("match type = %q, want %q", outcome.Type, MatchExact)
	}
	if len(searcher.calls) != 1 {
		t.Errorf("search calls = %d, want 1 (high confidence short-circuit)", len(searcher.calls))
	}
}

func TestMatchRegionTagReachesScoring(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[gamedb.QueryKind][]gamedb.Game{
			gamedb.QueryExact: {{
				ID:   1,
				Name: "Chrono Trigger",
				AlternativeNames: []gamedb.AlternativeName{
					{Name: "Chrono Trigger (USA)"},
				},
			}},
		},
	}
	engine := NewEngine(searcher, newFakeCache(), nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("Chrono Trigger (USA)", "unknown-platform"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !outcome.Matched {
		t.Fatalf("expected match, got reason %q", outcome.Reason)
	}
	want := exactTitleBonus + tokenOverlapScale + regionBonus
	if outcome.Score != want {
		t.Errorf("score = %v, want %v (region bonus included)", outcome.Score, want)
	}
	if len(searcher.calls) != 1 {
		t.Errorf("search calls = %d, want 1 (high confidence short-circuit)", len(searcher.calls))
	}
}

func TestMatchServedEntirelyFromCache(t *testing.T) {
	cache := newFakeCache()
	game := gamedb.Game{ID: 7, Name: "Chrono Trigger"}
	for _, q := range BuildQueries("Chrono Trigger", romfile.PlatformID("snes")) {
		cache.entries[q.Fingerprint()] = []gamedb.Game{game}
	}
	searcher := &fakeSearcher{}
	engine := NewEngine(searcher, cache, nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("Chrono Trigger", "snes"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !outcome.Matched || outcome.Game.ID != 7 {
		t.Fatalf("expected cached match, got %+v", outcome)
	}
	if !outcome.FromCache {
		t.Error("outcome not flagged as cache-served")
	}
	if len(searcher.calls) != 0 {
		t.Errorf("search calls = %d, want 0", len(searcher.calls))
	}
}

func TestMatchCachesSearchResults(t *testing.T) {
	cache := newFakeCache()
	searcher := &fakeSearcher{
		results: map[gamedb.QueryKind][]gamedb.Game{
			gamedb.QueryExact: {{ID: 1, Name: "Chrono Trigger"}},
		},
	}
	engine := NewEngine(searcher, cache, nil, EngineOptions{})

	if _, err := engine.Match(context.Background(), entry("Chrono Trigger", "snes")); err != nil {
		t.Fatalf("match: %v", err)
	}
	if cache.sets == 0 {
		t.Error("search results were not written to the cache")
	}
}

func TestMatchOfflineCacheMiss(t *testing.T) {
	engine := NewEngine(nil, newFakeCache(), nil, EngineOptions{Offline: true})

	outcome, err := engine.Match(context.Background(), entry("Chrono Trigger", "snes"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if outcome.Matched {
		t.Error("offline miss should not match")
	}
	if outcome.Reason == "" {
		t.Error("unmatched outcome missing reason")
	}
}

func TestMatchFatalErrorStopsRun(t *testing.T) {
	fatal := services.Wrap(services.ErrPayloadTooLarge, "gamedb", "search", "body too large", nil)
	searcher := &fakeSearcher{
		errs: map[gamedb.QueryKind]error{
			gamedb.QueryExact: fatal,
			gamedb.QueryFuzzy: fatal,
		},
	}
	engine := NewEngine(searcher, newFakeCache(), nil, EngineOptions{})

	_, err := engine.Match(context.Background(), entry("Chrono Trigger", "snes"))
	if err == nil {
		t.Fatal("fatal search error did not surface")
	}
	if !errors.Is(err, services.ErrPayloadTooLarge) {
		t.Errorf("error = %v, want payload-too-large marker", err)
	}
}

func TestMatchTransientFailureFallsThrough(t *testing.T) {
	searcher := &fakeSearcher{
		errs: map[gamedb.QueryKind]error{
			gamedb.QueryExact: services.Wrap(services.ErrTransient, "gamedb", "search", "boom", nil),
		},
		results: map[gamedb.QueryKind][]gamedb.Game{
			gamedb.QueryFuzzy: {{ID: 9, Name: "Chrono Trigger"}},
		},
	}
	engine := NewEngine(searcher, newFakeCache(), nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("Chrono Trigger", "snes"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !outcome.Matched || outcome.Game.ID != 9 {
		t.Fatalf("expected match from later strategy, got %+v", outcome)
	}
}

func TestMatchEmptyTitle(t *testing.T) {
	engine := NewEngine(&fakeSearcher{}, newFakeCache(), nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("()", "snes"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if outcome.Matched {
		t.Error("empty normalized title must not match")
	}
	if outcome.Reason == "" {
		t.Error("unmatched outcome missing reason")
	}
}

func TestMatchFuzzyFallback(t *testing.T) {
	// No exact name, composite stays below its threshold, but the
	// standalone fuzzy path clears the default 0.4 threshold.
	searcher := &fakeSearcher{
		results: map[gamedb.QueryKind][]gamedb.Game{
			gamedb.QueryExact: {{ID: 5, Name: "Super Mario World 2"}},
		},
	}
	engine := NewEngine(searcher, newFakeCache(), nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("Super Mario World", "unknown-platform"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !outcome.Matched {
		t.Fatalf("expected fuzzy fallback match, got reason %q", outcome.Reason)
	}
	if outcome.Type != MatchFuzzy {
		t.Errorf("match type = %q, want %q", outcome.Type, MatchFuzzy)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	engine := NewEngine(&fakeSearcher{}, newFakeCache(), nil, EngineOptions{})

	outcome, err := engine.Match(context.Background(), entry("Obscure Homebrew", "snes"))
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if outcome.Matched {
		t.Error("empty pool must not match")
	}
	if len(outcome.Attempted) == 0 {
		t.Error("attempted variations not recorded")
	}
}
