package pipeline

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/cache"
	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/observability"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
)

type countingHooks struct {
	mu                sync.Mutex
	hits, misses, set map[string]int
}

func newCountingHooks() *countingHooks {
	return &countingHooks{hits: map[string]int{}, misses: map[string]int{}, set: map[string]int{}}
}

func (h *countingHooks) OnCacheHit(_ context.Context, k string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits[k]++
}

func (h *countingHooks) OnCacheMiss(_ context.Context, k string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses[k]++
}

func (h *countingHooks) OnCacheSet(_ context.Context, k string, _ int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.set[k]++
}

func testOptions(t *testing.T) Options {
	t.Helper()
	ds, err := data.Simulate(rand.New(rand.NewPCG(1, 2)), []int{2, 2, 2}, [][]int{{}, {0}, {1}}, 300)
	require.NoError(t, err)
	so := search.DefaultOptions()
	so.Epochs = 300
	return Options{Name: "chain", Data: ds, Learner: "cpt", Search: so}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, store.NewMemoryStore(), nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	require.True(t, errors.Is(opts.Validate(), errors.ErrCodeInvalidInput))

	opts = testOptions(t)
	opts.Learner = ""
	opts.Name = ""
	require.NoError(t, opts.Validate())
	require.Equal(t, DefaultLearner, opts.Learner)
	require.Equal(t, "dataset", opts.Name)
	require.Positive(t, opts.MaxCombinations)
}

func TestExecuteCachesAndStores(t *testing.T) {
	defer observability.Reset()
	hooks := newCountingHooks()
	observability.SetCacheHooks(hooks)

	ctx := context.Background()
	r := newTestRunner(t)

	first, err := r.Execute(ctx, testOptions(t))
	require.NoError(t, err)
	require.False(t, first.Stats.CacheHit)
	require.NotNil(t, first.Run)
	require.NotEmpty(t, first.Result.MMLECs)
	require.Equal(t, 1, hooks.misses["result"])
	require.Equal(t, 1, hooks.set["result"])

	stored, err := r.Store.Get(ctx, first.Run.ID)
	require.NoError(t, err)
	require.Equal(t, "chain", stored.Dataset)
	require.Equal(t, 300, stored.Records)

	second, err := r.Execute(ctx, testOptions(t))
	require.NoError(t, err)
	require.True(t, second.Stats.CacheHit)
	require.Nil(t, second.Run, "cache hits are not stored again")
	require.Equal(t, first.Key, second.Key)
	require.Equal(t, len(first.Result.MMLECs), len(second.Result.MMLECs))
	require.InDelta(t, first.Result.MMLECs[0].BestMML, second.Result.MMLECs[0].BestMML, 1e-9)
	require.Equal(t, 1, hooks.hits["result"])

	refreshed := testOptions(t)
	refreshed.Refresh = true
	third, err := r.Execute(ctx, refreshed)
	require.NoError(t, err)
	require.False(t, third.Stats.CacheHit)

	runs, err := r.Store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestExecuteKeyDependsOnOptions(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)

	a, err := r.Execute(ctx, testOptions(t))
	require.NoError(t, err)

	opts := testOptions(t)
	opts.Search.Seed = 99
	b, err := r.Execute(ctx, opts)
	require.NoError(t, err)
	require.NotEqual(t, a.Key, b.Key)
	require.False(t, b.Stats.CacheHit)
}

func TestExecuteExhaustive(t *testing.T) {
	opts := testOptions(t)
	opts.Exhaustive = true
	out, err := newTestRunner(t).Execute(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, out.Run.Exhaustive)
	require.NotEmpty(t, out.Result.MMLECs)
}

func TestExecuteRejectsBadLearner(t *testing.T) {
	opts := testOptions(t)
	opts.Learner = "bayes"
	_, err := newTestRunner(t).Execute(context.Background(), opts)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestInterruptedResultsAreNotCached(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)

	opts := testOptions(t)
	opts.Search.Epochs = 1 << 30
	p, err := r.Prepare(ctx, opts)
	require.NoError(t, err)
	require.Nil(t, p.Cached)

	job := p.Searcher.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	job.Stop()
	res, err := job.Wait()
	require.NoError(t, err)
	require.True(t, res.Interrupted)

	run, err := r.Finish(ctx, p, res)
	require.NoError(t, err)
	require.True(t, run.Summary.Interrupted)

	again, err := r.Prepare(ctx, opts)
	require.NoError(t, err)
	require.Nil(t, again.Cached)
}

func TestRender(t *testing.T) {
	defer observability.Reset()
	hooks := newCountingHooks()
	observability.SetCacheHooks(hooks)

	ctx := context.Background()
	r := newTestRunner(t)
	out, err := r.Execute(ctx, testOptions(t))
	require.NoError(t, err)

	dot, err := r.Render(ctx, out.Result, out.Key, RenderOptions{Format: "dot"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(dot), "digraph G {"))
	require.Contains(t, string(dot), `label="X1"`)
	require.Equal(t, 1, hooks.misses["artifact"])

	again, err := r.Render(ctx, out.Result, out.Key, RenderOptions{Format: "dot"})
	require.NoError(t, err)
	require.Equal(t, dot, again)
	require.Equal(t, 1, hooks.hits["artifact"])

	_, err = r.Render(ctx, out.Result, "", RenderOptions{Format: "gif"})
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = r.Render(ctx, out.Result, "", RenderOptions{Format: "dot", MMLEC: len(out.Result.MMLECs)})
	require.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
