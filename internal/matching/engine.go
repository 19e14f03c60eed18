package matching

import (
	"context"
	"fmt"
	"log/slog"

	"romdex/internal/gamedb"
	"romdex/internal/logging"
	"romdex/internal/romfile"
	"romdex/internal/services"
)

// Searcher issues one metadata search. The rate gate satisfies this.
type Searcher interface {
	Search(ctx context.Context, query gamedb.SearchQuery) ([]gamedb.Game, error)
}

// ResponseCache stores search results keyed by query fingerprint.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]gamedb.Game, bool)
	Set(ctx context.Context, key string, games []gamedb.Game)
}

// Outcome is the result of matching one library entry.
type Outcome struct {
	Entry     romfile.Entry
	Title     string
	Matched   bool
	Game      gamedb.Game
	Score     float64
	Type      MatchType
	Reason    string
	Attempted []string
	FromCache bool
}

// Engine runs the query strategies for one entry, accumulates a deduplicated
// candidate pool, and resolves the best match. Offline mode never touches
// the searcher and works entirely from cached responses.
type Engine struct {
	searcher Searcher
	cache    ResponseCache
	resolver Resolver
	logger   *slog.Logger

	fuzzyThreshold float64
	offline        bool
}

// EngineOptions configures a matching engine.
type EngineOptions struct {
	FuzzyThreshold float64
	Offline        bool
	Resolver       Resolver
}

func NewEngine(searcher Searcher, cache ResponseCache, logger *slog.Logger, opts EngineOptions) *Engine {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = 0.4
	}
	if opts.Resolver == nil {
		opts.Resolver = AutoResolver{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		searcher:       searcher,
		cache:          cache,
		resolver:       opts.Resolver,
		logger:         logging.NewComponentLogger(logger, "matcher"),
		fuzzyThreshold: opts.FuzzyThreshold,
		offline:        opts.Offline,
	}
}

// Match resolves metadata for one scanned entry. A non-nil error means the
// run cannot continue; recoverable lookup failures surface as unmatched
// outcomes instead.
func (e *Engine) Match(ctx context.Context, entry romfile.Entry) (Outcome, error) {
	norm := romfile.Normalize(entry.Title)
	outcome := Outcome{Entry: entry, Type: MatchNone}
	outcome.Title = norm.Clean
	if norm.Clean == "" {
		outcome.Reason = "title empty after normalization"
		return outcome, nil
	}

	input := NewScoreInput(norm, romfile.PlatformID(entry.PlatformKey))
	outcome.Attempted = input.Variants

	pool, fromCache, err := e.gatherCandidates(ctx, norm.Clean, input)
	if err != nil {
		return outcome, err
	}
	outcome.FromCache = fromCache
	if len(pool) == 0 {
		outcome.Reason = "no candidates returned"
		return outcome, nil
	}

	scored := ScorePool(input, pool)
	if best, ok := e.resolver.Resolve(scored); ok {
		outcome.Matched = true
		outcome.Game = best.Game
		outcome.Score = best.Score
		outcome.Type = best.Type
		return outcome, nil
	}

	if best, ok := FuzzyMatch(input.Variants, pool, e.fuzzyThreshold); ok {
		outcome.Matched = true
		outcome.Game = best.Game
		outcome.Score = best.Score
		outcome.Type = best.Type
		return outcome, nil
	}

	outcome.Reason = fmt.Sprintf("no candidate above threshold among %d", len(pool))
	return outcome, nil
}

// gatherCandidates runs the ordered strategies, deduplicating candidates by
// ID. It stops early once any candidate reaches the high-confidence score,
// judged with the same scoring context the final ranking uses.
func (e *Engine) gatherCandidates(ctx context.Context, title string, input ScoreInput) ([]gamedb.Game, bool, error) {
	queries := BuildQueries(title, input.PlatformID)
	pool := make([]gamedb.Game, 0, len(queries)*4)
	seen := make(map[int64]bool)
	allCached := true

	for _, query := range queries {
		games, cached, err := e.execute(ctx, query)
		if err != nil {
			if services.Classify(err) == services.DispositionFatal {
				return nil, false, err
			}
			e.logger.Warn("query failed",
				logging.String("kind", string(query.Kind)),
				logging.Error(err))
			continue
		}
		if !cached {
			allCached = false
		}

		shortCircuit := false
		for _, game := range games {
			if seen[game.ID] {
				continue
			}
			seen[game.ID] = true
			pool = append(pool, game)
			if ScoreCandidate(input, game).Score >= highConfidenceScore {
				shortCircuit = true
			}
		}
		if shortCircuit {
			break
		}
	}

	return pool, allCached && len(pool) > 0, nil
}

// execute serves one query from cache when possible, falling back to the
// searcher. Offline mode treats a cache miss as an empty result.
func (e *Engine) execute(ctx context.Context, query gamedb.SearchQuery) ([]gamedb.Game, bool, error) {
	key := query.Fingerprint()
	if e.cache != nil {
		if games, ok := e.cache.Get(ctx, key); ok {
			return games, true, nil
		}
	}
	if e.offline {
		return nil, false, nil
	}
	if e.searcher == nil {
		return nil, false, services.Wrap(services.ErrConfiguration, "matcher", "search", "no searcher configured", nil)
	}

	games, err := e.searcher.Search(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if e.cache != nil {
		e.cache.Set(ctx, key, games)
	}
	return games, false, nil
}
