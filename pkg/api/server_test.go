package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/cache"
	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/observability"
	"github.com/matzehuels/camml/pkg/pipeline"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
)

func chainCSV(t *testing.T) string {
	t.Helper()
	ds, err := data.Simulate(rand.New(rand.NewPCG(3, 4)), []int{2, 2, 2}, [][]int{{}, {0}, {1}}, 200)
	require.NoError(t, err)
	var sb strings.Builder
	sb.WriteString(strings.Join(ds.Names(), ",") + "\n")
	for r := 0; r < ds.Len(); r++ {
		row := make([]string, ds.NumVars())
		for v := range row {
			row[v] = ds.States(v)[ds.Value(r, v)]
		}
		sb.WriteString(strings.Join(row, ",") + "\n")
	}
	return sb.String()
}

func newTestServer(t *testing.T, runs store.Store) *httptest.Server {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	s := New(pipeline.NewRunner(c, nil, runs, nil), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeAs[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func waitDone(t *testing.T, ts *httptest.Server, id string) JobStatus {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		_, body := do(t, http.MethodGet, ts.URL+"/v1/searches/"+id, nil)
		st := decodeAs[JobStatus](t, body)
		if st.Status != StatusRunning {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobStatus{}
}

func smallSearch() SearchRequest {
	return SearchRequest{Name: "chain", Learner: "cpt", Search: json.RawMessage(`{"epochs": 300}`)}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestSearchLifecycle(t *testing.T) {
	ts := newTestServer(t, store.NewMemoryStore())

	req := smallSearch()
	req.CSV = chainCSV(t)
	resp, body := do(t, http.MethodPost, ts.URL+"/v1/searches", req)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	submitted := decodeAs[JobStatus](t, body)
	require.Equal(t, "/v1/searches/"+submitted.ID, resp.Header.Get("Location"))

	st := waitDone(t, ts, submitted.ID)
	require.Equal(t, StatusDone, st.Status, st.Error)
	require.NotEmpty(t, st.RunID)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/searches/"+submitted.ID+"/result", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeAs[search.Result](t, body)
	require.Equal(t, 3, res.Nodes)
	require.NotEmpty(t, res.MMLECs)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/runs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runs := decodeAs[[]store.Run](t, body)
	require.Len(t, runs, 1)
	require.Equal(t, st.RunID, runs[0].ID)
	require.Nil(t, runs[0].Result)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/runs/"+st.RunID+"/render?format=dot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))
	require.True(t, strings.HasPrefix(string(body), "digraph G {"))

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/runs/"+st.RunID+"/render?format=gif", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The same request is now answered from the cache.
	resp, body = do(t, http.MethodPost, ts.URL+"/v1/searches", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decodeAs[JobStatus](t, body).Cached)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/v1/runs/"+st.RunID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = do(t, http.MethodGet, ts.URL+"/v1/runs/"+st.RunID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", decodeAs[errorBody](t, body).Code)
}

func TestSearchStop(t *testing.T) {
	ts := newTestServer(t, store.NewMemoryStore())

	req := smallSearch()
	req.CSV = chainCSV(t)
	req.Search = json.RawMessage(`{"epochs": 1000000000}`)
	resp, body := do(t, http.MethodPost, ts.URL+"/v1/searches", req)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	id := decodeAs[JobStatus](t, body).ID

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/searches/"+id+"/result", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/searches/"+id+"/stop", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	st := waitDone(t, ts, id)
	require.Equal(t, StatusDone, st.Status)
	require.True(t, st.Interrupted)
	require.NotNil(t, st.Progress)
}

func TestSearchRejects(t *testing.T) {
	ts := newTestServer(t, nil)
	csv := chainCSV(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"learner", SearchRequest{CSV: csv, Learner: "bayes"}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"options", SearchRequest{CSV: csv, Search: json.RawMessage(`{"chains": 0}`)}, http.StatusBadRequest, "INVALID_CONFIG"},
		{"unknown field", map[string]any{"csv": csv, "colour": "red"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty csv", SearchRequest{}, http.StatusBadRequest, "INVALID_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, ts.URL+"/v1/searches", tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			require.Equal(t, tt.code, decodeAs[errorBody](t, body).Code)
		})
	}

	resp, _ := do(t, http.MethodGet, ts.URL+"/v1/searches/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, http.MethodGet, ts.URL+"/v1/runs", nil)
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode, "runs need a store")
	require.Equal(t, "UNSUPPORTED", decodeAs[errorBody](t, body).Code)
}

func TestCounting(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/v1/interleave?a=43&b=26", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Positive(t, decodeAs[map[string]float64](t, body)["count"])

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/interleave?a=43&b=27", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "OVERFLOW", decodeAs[errorBody](t, body).Code)

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/interleave?a=x&b=1", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/dags/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"n":3,"count":"25"}`, string(body))

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/dags/65", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/extensions", ExtensionsRequest{Nodes: 3, Arcs: [][2]int{{0, 1}}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, 3.0, decodeAs[map[string]float64](t, body)["extensions"])

	resp, body = do(t, http.MethodPost, ts.URL+"/v1/extensions", ExtensionsRequest{Nodes: 3, Arcs: [][2]int{{0, 1}, {1, 2}, {2, 0}}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "INVALID_ARC", decodeAs[errorBody](t, body).Code)
}

type recordingHooks struct {
	mu     sync.Mutex
	routes []string
}

func (h *recordingHooks) OnRequest(context.Context, string, string) {}

func (h *recordingHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, fmt.Sprintf("%s %s %d", method, route, status))
}

func TestServerHooks(t *testing.T) {
	defer observability.Reset()
	hooks := &recordingHooks{}
	observability.SetServerHooks(hooks)

	ts := newTestServer(t, nil)
	do(t, http.MethodGet, ts.URL+"/v1/dags/2", nil)
	do(t, http.MethodGet, ts.URL+"/healthz", nil)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	require.Equal(t, []string{"GET /v1/dags/{n} 200", "GET /healthz 200"}, hooks.routes)
}
