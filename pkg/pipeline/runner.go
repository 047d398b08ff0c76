package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/camml/pkg/cache"
	"github.com/matzehuels/camml/pkg/learner"
	"github.com/matzehuels/camml/pkg/observability"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
)

// Runner executes searches with caching and run storage. Both CLI and API
// use it so that a result computed by one is found by the other.
//
// The Runner keeps no per-search state; several goroutines may share one.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store // optional
	TTL    time.Duration
	Logger *log.Logger
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
// A nil store disables run storage.
func NewRunner(c cache.Cache, keyer cache.Keyer, runs store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Store:  runs,
		TTL:    cache.TTLResult,
		Logger: logger,
	}
}

// Prepared is a search ready to run, or already answered from the cache.
type Prepared struct {
	Options  Options
	Key      string
	Searcher *search.Searcher
	Cached   *search.Result // set on a cache hit
}

// Prepare validates opts, builds the learner and searcher, and looks the
// result up in the cache unless opts.Refresh is set.
func (r *Runner) Prepare(ctx context.Context, opts Options) (*Prepared, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	l, err := learner.New(opts.Learner, opts.MaxCombinations)
	if err != nil {
		return nil, err
	}
	s, err := search.New(opts.Data, l, opts.Search, r.Logger)
	if err != nil {
		return nil, err
	}

	p := &Prepared{
		Options:  opts,
		Searcher: s,
		Key: r.Keyer.ResultKey(opts.Data.Hash(), cache.ResultKeyOpts{
			Learner:         opts.Learner,
			MaxCombinations: opts.MaxCombinations,
			Exhaustive:      opts.Exhaustive,
			Options:         opts.Search,
		}),
	}
	if !opts.Refresh {
		p.Cached = r.lookup(ctx, p.Key)
	}
	return p, nil
}

func (r *Runner) lookup(ctx context.Context, key string) *search.Result {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache lookup failed", "error", err)
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "result")
		return nil
	}
	var res search.Result
	if err := json.Unmarshal(data, &res); err != nil {
		r.Logger.Debug("discarding unreadable cache entry", "key", key, "error", err)
		observability.Cache().OnCacheMiss(ctx, "result")
		return nil
	}
	observability.Cache().OnCacheHit(ctx, "result")
	return &res
}

// Finish caches a completed result and saves it as a run. Interrupted
// results are stored but not cached, so the next request searches again.
func (r *Runner) Finish(ctx context.Context, p *Prepared, res *search.Result) (*store.Run, error) {
	if !res.Interrupted {
		if data, err := json.Marshal(res); err != nil {
			r.Logger.Warn("result not cached", "error", err)
		} else if err := r.Cache.Set(ctx, p.Key, data, r.TTL); err != nil {
			r.Logger.Warn("result not cached", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "result", len(data))
		}
	}
	if r.Store == nil {
		return nil, nil
	}
	ds := p.Options.Data
	run := store.NewRun(p.Options.Name, ds.Hash(), ds.Len(), p.Options.Search, res)
	run.Exhaustive = p.Options.Exhaustive
	if err := r.Store.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	r.Logger.Debug("stored run", "id", run.ID)
	return run, nil
}

// Execute runs a search to completion, reusing a cached result when one
// exists.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Output, error) {
	p, err := r.Prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	if p.Cached != nil {
		r.Logger.Info("using cached result", "mmlecs", len(p.Cached.MMLECs))
		return &Output{Result: p.Cached, Key: p.Key, Stats: Stats{CacheHit: true}}, nil
	}

	start := time.Now()
	var res *search.Result
	if p.Options.Exhaustive {
		res, err = p.Searcher.Exhaustive(ctx)
	} else {
		res, err = p.Searcher.Run(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	run, err := r.Finish(ctx, p, res)
	if err != nil {
		return nil, err
	}
	return &Output{
		Result: res,
		Run:    run,
		Key:    p.Key,
		Stats:  Stats{SearchTime: time.Since(start)},
	}, nil
}

// Close releases the cache and store.
func (r *Runner) Close() error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(); err == nil {
			err = serr
		}
	}
	return err
}
