package search

import (
	"context"
	"math"
	"sync/atomic"
)

// Progress is a snapshot of a running search.
type Progress struct {
	Epoch    int64   `json:"epoch"`     // epochs completed across all chains
	Total    int64   `json:"total"`     // epochs planned across all chains
	BestCost float64 `json:"best_cost"` // cheapest state seen so far, +Inf before the first epoch
	Stopping bool    `json:"stopping"`  // Stop has been requested
	Done     bool    `json:"done"`
}

// Fraction returns the completed share of the planned epochs.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Epoch) / float64(p.Total)
}

// runState is shared by the chains of one search. Chains only touch it
// through atomics.
type runState struct {
	total  atomic.Int64
	epochs atomic.Int64
	best   atomic.Uint64 // math.Float64bits
	stop   atomic.Bool
	done   atomic.Bool
}

func newRunState() *runState {
	st := &runState{}
	st.best.Store(math.Float64bits(math.Inf(1)))
	return st
}

func (st *runState) epoch(cost float64) {
	st.epochs.Add(1)
	for {
		old := st.best.Load()
		if cost >= math.Float64frombits(old) || st.best.CompareAndSwap(old, math.Float64bits(cost)) {
			return
		}
	}
}

func (st *runState) stopped() bool { return st.stop.Load() }

func (st *runState) progress() Progress {
	return Progress{
		Epoch:    st.epochs.Load(),
		Total:    st.total.Load(),
		BestCost: math.Float64frombits(st.best.Load()),
		Stopping: st.stop.Load(),
		Done:     st.done.Load(),
	}
}

// Job is a search running in the background.
//
// Stop asks the chains to finish at their next epoch boundary; Wait then
// returns the result built from the samples drawn so far, marked
// Interrupted. Cancelling the context passed to Start aborts the search
// with the context's error instead.
type Job struct {
	state  *runState
	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	err    error
}

// Start runs the search in a new goroutine.
func (s *Searcher) Start(ctx context.Context) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{state: newRunState(), cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(j.done)
		defer cancel()
		j.result, j.err = s.run(ctx, j.state)
		j.state.done.Store(true)
	}()
	return j
}

// Progress returns a snapshot of the job. Safe to call at any time.
func (j *Job) Progress() Progress { return j.state.progress() }

// Stop requests a cooperative stop. It does not wait.
func (j *Job) Stop() { j.state.stop.Store(true) }

// Done is closed when the search has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the search finishes and returns its outcome.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	return j.result, j.err
}
