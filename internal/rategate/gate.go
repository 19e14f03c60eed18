package rategate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"romdex/internal/gamedb"
	"romdex/internal/logging"
	"romdex/internal/services"
)

const (
	// rateLimitWindow is how recently a prior upstream rejection must have
	// occurred for another rejection to halve the concurrency ceiling.
	rateLimitWindow = 30 * time.Second
	// backoffBase is the initial retry delay after an upstream rejection.
	backoffBase = 2 * time.Second
	// maxRetries bounds retry attempts before a call degrades to an empty
	// result.
	maxRetries = 5
)

// Options configures gate admission control.
type Options struct {
	// Capacity is the number of tokens granted per refill interval.
	Capacity int
	// RefillInterval is the wall-clock period between hard token resets.
	RefillInterval time.Duration
	// MaxConcurrency caps simultaneously in-flight calls.
	MaxConcurrency int
	// Adaptive enables ceiling halving on repeated upstream rejections.
	Adaptive bool
}

// Gate serializes outbound API calls behind a token bucket and a concurrency
// ceiling. Requests that cannot be admitted park in FIFO order; admission is
// re-evaluated whenever a slot frees or the refill timer fires.
type Gate struct {
	client gamedb.Searcher
	logger *slog.Logger
	opts   Options

	requests  chan *request
	slotFreed chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup

	mu            sync.Mutex
	tokens        int
	ceiling       int
	inflight      int
	lastRateLimit time.Time

	// sleep is stubbed in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

type request struct {
	grant     chan struct{}
	abandoned atomic.Bool
}

// New constructs a running gate. Callers must Close it to stop the
// dispatcher.
func New(client gamedb.Searcher, opts Options, logger *slog.Logger) *Gate {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	if opts.RefillInterval <= 0 {
		opts.RefillInterval = time.Second
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	g := &Gate{
		client:    client,
		logger:    logging.NewComponentLogger(logger, "rategate"),
		opts:      opts,
		requests:  make(chan *request, 256),
		slotFreed: make(chan struct{}, 1),
		done:      make(chan struct{}),
		tokens:    opts.Capacity,
		ceiling:   opts.MaxConcurrency,
		sleep:     sleepContext,
	}
	g.wg.Add(1)
	go g.dispatch()
	return g
}

// Close stops the dispatcher. In-flight calls finish; parked requests are
// released with a cancellation error the next time their context is checked.
func (g *Gate) Close() {
	select {
	case <-g.done:
	default:
		close(g.done)
	}
	g.wg.Wait()
}

// Ceiling reports the current concurrency ceiling (reduced under adaptive
// rate control).
func (g *Gate) Ceiling() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ceiling
}

// dispatch is the single admission loop: it parks incoming requests in FIFO
// order and grants slots whenever tokens and concurrency allow.
func (g *Gate) dispatch() {
	defer g.wg.Done()
	ticker := time.NewTicker(g.opts.RefillInterval)
	defer ticker.Stop()

	var parked []*request
	for {
		g.admit(&parked)
		select {
		case <-g.done:
			return
		case req := <-g.requests:
			parked = append(parked, req)
		case <-g.slotFreed:
		case <-ticker.C:
			// Hard reset to capacity, not an additive trickle.
			g.mu.Lock()
			g.tokens = g.opts.Capacity
			g.mu.Unlock()
		}
	}
}

func (g *Gate) admit(parked *[]*request) {
	for len(*parked) > 0 {
		g.mu.Lock()
		ok := g.tokens > 0 && g.inflight < g.ceiling
		if ok {
			g.tokens--
			g.inflight++
		}
		g.mu.Unlock()
		if !ok {
			return
		}

		req := (*parked)[0]
		*parked = (*parked)[1:]
		if req.abandoned.Load() {
			// Caller gave up while parked; return the slot.
			g.release()
			continue
		}
		req.grant <- struct{}{}
	}
}

// acquire parks until a slot is granted or ctx is done.
func (g *Gate) acquire(ctx context.Context) error {
	req := &request{grant: make(chan struct{}, 1)}
	select {
	case g.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return errors.New("rategate: closed")
	}

	select {
	case <-req.grant:
		return nil
	case <-ctx.Done():
		req.abandoned.Store(true)
		// The dispatcher may have granted concurrently; drain and return the
		// slot if so.
		select {
		case <-req.grant:
			g.release()
		default:
		}
		return ctx.Err()
	case <-g.done:
		req.abandoned.Store(true)
		return errors.New("rategate: closed")
	}
}

func (g *Gate) release() {
	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()
	select {
	case g.slotFreed <- struct{}{}:
	default:
	}
}

// recordRateLimit applies adaptive ceiling reduction: a rejection within the
// window of the previous one halves the ceiling (floor of 1).
func (g *Gate) recordRateLimit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if g.opts.Adaptive && !g.lastRateLimit.IsZero() && now.Sub(g.lastRateLimit) <= rateLimitWindow {
		if g.ceiling > 1 {
			g.ceiling /= 2
			if g.ceiling < 1 {
				g.ceiling = 1
			}
			g.logger.Warn("upstream throttling persists, halving concurrency ceiling",
				logging.Int("ceiling", g.ceiling))
		}
	}
	g.lastRateLimit = now
}

// Search executes one metadata query through admission control.
//
// Rate-limit rejections retry with exponential backoff up to maxRetries, then
// degrade to an empty result. An expired token triggers one transparent
// re-authentication that does not count against the retry budget. Malformed
// queries and missing records degrade to empty results immediately. Oversized
// payloads and configuration failures surface to the caller.
func (g *Gate) Search(ctx context.Context, query gamedb.SearchQuery) ([]gamedb.Game, error) {
	backoff := backoffBase
	reauthed := false

	for attempt := 0; ; attempt++ {
		if err := g.acquire(ctx); err != nil {
			return nil, err
		}
		games, err := g.client.SearchGames(ctx, query)
		g.release()

		if err == nil {
			return games, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if errors.Is(err, services.ErrAuthExpired) && !reauthed {
			reauthed = true
			g.logger.Info("token expired, re-authenticating", logging.String("query", string(query.Kind)))
			if authErr := g.client.Authenticate(ctx); authErr != nil {
				return nil, authErr
			}
			// The re-auth retry does not count against the retry budget.
			attempt--
			continue
		}

		switch services.Classify(err) {
		case services.DispositionFatal:
			return nil, err
		case services.DispositionEmpty:
			g.logger.Warn("query degraded to empty result",
				logging.String("query_text", query.Text),
				logging.Error(err))
			return nil, nil
		}

		if errors.Is(err, services.ErrRateLimited) {
			g.recordRateLimit()
		}

		if attempt >= maxRetries {
			g.logger.Warn("retry budget exhausted, returning empty result",
				logging.String("query_text", query.Text),
				logging.Int("attempts", attempt+1),
				logging.Error(err))
			return nil, nil
		}

		g.logger.Warn("retrying after upstream failure",
			logging.String("query_text", query.Text),
			logging.Duration("backoff", backoff),
			logging.Error(err))
		if sleepErr := g.sleep(ctx, backoff); sleepErr != nil {
			return nil, sleepErr
		}
		backoff *= 2
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
