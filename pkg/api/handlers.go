package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/camml/pkg/bitgraph"
	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/extension"
	"github.com/matzehuels/camml/pkg/pipeline"
	"github.com/matzehuels/camml/pkg/render"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
)

// =============================================================================
// Searches
// =============================================================================

// SearchRequest submits a search. Search options not given keep their
// defaults.
type SearchRequest struct {
	Name            string          `json:"name"`
	CSV             string          `json:"csv"`
	Learner         string          `json:"learner,omitempty"`
	MaxCombinations int             `json:"max_combinations,omitempty"`
	Search          json.RawMessage `json:"search,omitempty"`
	Exhaustive      bool            `json:"exhaustive,omitempty"`
	Refresh         bool            `json:"refresh,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ds, err := data.ReadCSV(strings.NewReader(req.CSV))
	if err != nil {
		writeError(w, err)
		return
	}
	so := search.DefaultOptions()
	if len(req.Search) > 0 {
		if err := json.Unmarshal(req.Search, &so); err != nil {
			writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode search options"))
			return
		}
	}

	p, err := s.runner.Prepare(r.Context(), pipeline.Options{
		Name:            req.Name,
		Data:            ds,
		Learner:         req.Learner,
		MaxCombinations: req.MaxCombinations,
		Search:          so,
		Exhaustive:      req.Exhaustive,
		Refresh:         req.Refresh,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	j := s.submit(p)
	status := http.StatusAccepted
	if j.cached {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/v1/searches/"+j.id)
	writeJSON(w, status, j.status())
}

func (s *Server) job(w http.ResponseWriter, r *http.Request) (*job, bool) {
	id := chi.URLParam(r, "id")
	j, ok := s.jobs.get(id)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "job %q not found", id))
	}
	return j, ok
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if j, ok := s.job(w, r); ok {
		writeJSON(w, http.StatusOK, j.status())
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	if j.search != nil {
		j.search.Stop()
	}
	writeJSON(w, http.StatusAccepted, j.status())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	j.mu.Lock()
	res, err, finished := j.result, j.err, !j.finished.IsZero()
	j.mu.Unlock()
	switch {
	case !finished:
		writeJSON(w, http.StatusConflict, errorBody{Code: "RUNNING", Error: "search still running"})
	case err != nil:
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// =============================================================================
// Runs
// =============================================================================

func (s *Server) store(w http.ResponseWriter) (store.Store, bool) {
	if s.runner.Store == nil {
		writeError(w, errors.New(errors.ErrCodeUnsupported, "run storage is disabled"))
		return nil, false
	}
	return s.runner.Store, true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := st.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	run, err := st.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	if err := st.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var contentTypes = map[string]string{
	render.FormatDOT: "text/vnd.graphviz",
	render.FormatSVG: "image/svg+xml",
	render.FormatPDF: "application/pdf",
	render.FormatPNG: "image/png",
}

func (s *Server) handleRenderRun(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w)
	if !ok {
		return
	}
	run, err := st.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if run.Result == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "run %q has no result", run.ID))
		return
	}

	q := r.URL.Query()
	opts := pipeline.RenderOptions{Format: q.Get("format"), Detailed: q.Get("detailed") == "true"}
	if opts.Format == "" {
		opts.Format = render.FormatSVG
	}
	if v := q.Get("mmlec"); v != "" {
		if opts.MMLEC, err = strconv.Atoi(v); err != nil {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid mmlec %q", v))
			return
		}
	}

	out, err := s.runner.Render(r.Context(), run.Result, "run:"+run.ID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[opts.Format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// =============================================================================
// Counting
// =============================================================================

func (s *Server) handleInterleave(w http.ResponseWriter, r *http.Request) {
	a, errA := strconv.Atoi(r.URL.Query().Get("a"))
	b, errB := strconv.Atoi(r.URL.Query().Get("b"))
	if errA != nil || errB != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "a and b must be integers"))
		return
	}
	n, err := extension.Interleave(a, b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"a": a, "b": b, "count": n})
}

func (s *Server) handleNumDAGs(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 || n > bitgraph.MaxNodes {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "n must be an integer in [0, %d]", bitgraph.MaxNodes))
		return
	}
	// The exact count is a decimal string since it outgrows every JSON number.
	writeJSON(w, http.StatusOK, map[string]any{"n": n, "count": extension.NumDAGsBig(n).String()})
}

// ExtensionsRequest describes a DAG by node count and [from, to] arcs.
type ExtensionsRequest struct {
	Nodes int      `json:"nodes"`
	Arcs  [][2]int `json:"arcs"`
}

func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	var req ExtensionsRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	g, err := bitgraph.FromArcs(req.Nodes, req.Arcs)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := extension.NewDynamicCounter().CountPerms(g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": req.Nodes, "arcs": len(req.Arcs), "extensions": count})
}
