package search

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/camml/pkg/bitgraph"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/extension"
	"github.com/matzehuels/camml/pkg/observability"
	"github.com/matzehuels/camml/pkg/tom"
)

// Searcher samples structures over one dataset. A Searcher holds no run
// state and may be used for several runs, also concurrently.
type Searcher struct {
	data    tom.Dataset
	learner tom.ModelLearner
	opts    Options
	logger  *log.Logger
	counter *extension.DynamicCounter
	cons    *constraints
}

// New validates opts against data and returns a Searcher.
// If logger is nil, log.Default() is used.
func New(data tom.Dataset, l tom.ModelLearner, opts Options, logger *log.Logger) (*Searcher, error) {
	n := data.NumVars()
	if n > bitgraph.MaxNodes {
		return nil, errors.New(errors.ErrCodeCapacity, "%d variables exceed search limit of %d", n, bitgraph.MaxNodes)
	}
	if l == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no model learner")
	}
	if err := opts.Validate(n); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Searcher{
		data:    data,
		learner: l,
		opts:    opts,
		logger:  logger,
		counter: extension.NewDynamicCounter(),
		cons:    opts.Prior.compile(n),
	}, nil
}

// Options returns the options the Searcher was built with.
func (s *Searcher) Options() Options { return s.opts }

// Run searches to completion or until ctx is cancelled.
func (s *Searcher) Run(ctx context.Context) (*Result, error) {
	return s.run(ctx, newRunState())
}

type chainStats struct {
	accepted, rejected, constrained int
	hits, misses, fails             int
}

func (s *Searcher) run(ctx context.Context, st *runState) (*Result, error) {
	start := time.Now()
	n := s.data.NumVars()
	epochs := s.opts.EpochBudget(n)
	chains := s.opts.Chains
	st.total.Store(int64(chains * (s.opts.AnnealEpochs + epochs)))

	hooks := observability.Search()
	hooks.OnSearchStart(ctx, n, int(st.total.Load()))
	s.logger.Debug("starting search",
		"nodes", n,
		"records", s.data.Len(),
		"learner", s.learner.Name(),
		"chains", chains,
		"epochs", epochs,
		"anneal", s.opts.AnnealEpochs)

	collectors := make([]*collector, chains)
	stats := make([]chainStats, chains)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < chains; i++ {
		g.Go(func() error {
			chainStart := time.Now()
			prior := NewStructurePrior(n, s.opts.ArcProb, s.counter)
			c, err := newChain(i, s.data, s.learner, &s.opts, prior, s.cons)
			if err != nil {
				return err
			}
			if s.opts.AnnealEpochs > 0 {
				sched := Anneal{Start: s.opts.StartTemperature, Cooling: s.opts.Cooling}
				if err := c.anneal(gctx, sched, s.opts.AnnealEpochs, st); err != nil {
					return err
				}
				s.logger.Debug("annealing finished", "chain", i, "cost", c.cost())
			}
			rec := newCollector(s.opts.MergeThreshold, prior)
			if err := c.sample(gctx, Metropolis{T: s.opts.Temperature}, epochs, rec, st); err != nil {
				return err
			}
			collectors[i] = rec
			hits, misses, fails := c.cache.Stats()
			stats[i] = chainStats{c.accepted, c.rejected, c.constrained, hits, misses, fails}
			hooks.OnChainComplete(gctx, i, c.accepted, c.rejected+c.constrained, time.Since(chainStart))
			s.logger.Debug("chain finished",
				"chain", i,
				"accepted", c.accepted,
				"rejected", c.rejected,
				"constrained", c.constrained,
				"cache_hits", hits,
				"cache_misses", misses,
				"cached_costs", c.cache.Len(),
				"learner_failures", fails)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		hooks.OnSearchComplete(ctx, 0, time.Since(start), err)
		return nil, err
	}

	merged := collectors[0]
	for _, c := range collectors[1:] {
		merged.merge(c)
	}
	res := s.report(merged, epochs)
	res.Interrupted = st.stopped()
	for _, cs := range stats {
		res.Accepted += cs.accepted
		res.Rejected += cs.rejected + cs.constrained
	}
	res.Duration = time.Since(start)

	hooks.OnSearchComplete(ctx, len(res.MMLECs), res.Duration, nil)
	s.logger.Info("search complete",
		"mmlecs", len(res.MMLECs),
		"secs", res.SECs,
		"samples", res.Samples,
		"interrupted", res.Interrupted,
		"duration", res.Duration)
	return res, nil
}
