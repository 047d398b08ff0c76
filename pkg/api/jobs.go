package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/camml/pkg/pipeline"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
)

// Job states reported to clients.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// job is one submitted search.
type job struct {
	id      string
	name    string
	created time.Time
	search  *search.Job // nil when answered from the cache
	cached  bool

	mu       sync.Mutex
	finished time.Time
	result   *search.Result
	run      *store.Run
	err      error
}

func (j *job) finish(res *search.Result, run *store.Run, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result, j.run, j.err = res, run, err
	j.finished = time.Now()
}

// JobStatus is the JSON view of a job.
type JobStatus struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Status      string           `json:"status"`
	Cached      bool             `json:"cached,omitempty"`
	Progress    *search.Progress `json:"progress,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	Interrupted bool             `json:"interrupted,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (j *job) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JobStatus{ID: j.id, Name: j.name, Cached: j.cached, CreatedAt: j.created}
	if j.search != nil {
		p := j.search.Progress()
		if p.Epoch == 0 {
			p.BestCost = 0 // +Inf is not valid JSON
		}
		st.Progress = &p
	}
	switch {
	case j.finished.IsZero():
		st.Status = StatusRunning
	case j.err != nil:
		st.Status = StatusFailed
		st.Error = j.err.Error()
	default:
		st.Status = StatusDone
		st.Interrupted = j.result.Interrupted
		if j.run != nil {
			st.RunID = j.run.ID
		}
	}
	return st
}

type jobs struct {
	mu   sync.RWMutex
	byID map[string]*job
}

func newJobs() *jobs {
	return &jobs{byID: make(map[string]*job)}
}

func (js *jobs) add(j *job) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.byID[j.id] = j
}

func (js *jobs) get(id string) (*job, bool) {
	js.mu.RLock()
	defer js.mu.RUnlock()
	j, ok := js.byID[id]
	return j, ok
}

func (js *jobs) stopAll() {
	js.mu.RLock()
	defer js.mu.RUnlock()
	for _, j := range js.byID {
		if j.search != nil {
			j.search.Stop()
		}
	}
}

// prune removes jobs that finished before cutoff and returns how many.
func (js *jobs) prune(cutoff time.Time) int {
	js.mu.Lock()
	defer js.mu.Unlock()
	n := 0
	for id, j := range js.byID {
		j.mu.Lock()
		old := !j.finished.IsZero() && j.finished.Before(cutoff)
		j.mu.Unlock()
		if old {
			delete(js.byID, id)
			n++
		}
	}
	return n
}

// submit starts p in the background, or records a finished job when p was
// answered from the cache.
func (s *Server) submit(p *pipeline.Prepared) *job {
	j := &job{id: uuid.NewString(), name: p.Options.Name, created: time.Now()}
	if p.Cached != nil {
		j.cached = true
		j.finish(p.Cached, nil, nil)
		s.jobs.add(j)
		return j
	}

	// Jobs outlive the request that submitted them.
	ctx := context.Background()
	if p.Options.Exhaustive {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			res, err := p.Searcher.Exhaustive(ctx)
			s.complete(ctx, j, p, res, err)
		}()
	} else {
		j.search = p.Searcher.Start(ctx)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			res, err := j.search.Wait()
			s.complete(ctx, j, p, res, err)
		}()
	}
	s.jobs.add(j)
	s.logger.Info("search submitted", "job", j.id, "name", j.name, "exhaustive", p.Options.Exhaustive)
	return j
}

func (s *Server) complete(ctx context.Context, j *job, p *pipeline.Prepared, res *search.Result, err error) {
	if err != nil {
		s.logger.Warn("search failed", "job", j.id, "error", err)
		j.finish(nil, nil, err)
		return
	}
	run, err := s.runner.Finish(ctx, p, res)
	if err != nil {
		s.logger.Warn("storing run failed", "job", j.id, "error", err)
	}
	j.finish(res, run, nil)
	s.logger.Info("search finished", "job", j.id, "mmlecs", len(res.MMLECs), "interrupted", res.Interrupted)
}
