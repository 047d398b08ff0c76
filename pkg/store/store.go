// Package store persists completed searches so they can be listed, reloaded
// and rendered later.
//
// Backends implement [Store]:
//   - [MemoryStore]: in-process, for tests and a standalone API server
//   - [FileStore]: JSON files, for the CLI (~/.local/share/camml/runs/)
//   - [MongoStore]: MongoDB, shared by API instances
//
// Runs are identified by random UUIDs assigned by [NewRun].
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/search"
)

// Run is one stored search.
type Run struct {
	ID          string         `json:"id" bson:"_id"`
	Dataset     string         `json:"dataset" bson:"dataset"`
	DatasetHash string         `json:"dataset_hash" bson:"dataset_hash"`
	Records     int            `json:"records" bson:"records"`
	Learner     string         `json:"learner" bson:"learner"`
	Exhaustive  bool           `json:"exhaustive,omitempty" bson:"exhaustive,omitempty"`
	Options     search.Options `json:"options" bson:"options"`
	Summary     Summary        `json:"summary" bson:"summary"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`

	// Result is omitted by List.
	Result *search.Result `json:"result,omitempty" bson:"result,omitempty"`
}

// Summary is the part of a result shown in run listings.
type Summary struct {
	Nodes         int     `json:"nodes" bson:"nodes"`
	MMLECs        int     `json:"mmlecs" bson:"mmlecs"`
	BestMML       float64 `json:"best_mml" bson:"best_mml"`
	BestPosterior float64 `json:"best_posterior" bson:"best_posterior"`
	Interrupted   bool    `json:"interrupted,omitempty" bson:"interrupted,omitempty"`
}

// NewRun wraps a finished search in a Run with a fresh ID.
func NewRun(dataset, datasetHash string, records int, opts search.Options, res *search.Result) *Run {
	r := &Run{
		ID:          uuid.NewString(),
		Dataset:     dataset,
		DatasetHash: datasetHash,
		Records:     records,
		Learner:     res.Learner,
		Options:     opts,
		CreatedAt:   time.Now().UTC(),
		Result:      res,
		Summary: Summary{
			Nodes:       res.Nodes,
			MMLECs:      len(res.MMLECs),
			Interrupted: res.Interrupted,
		},
	}
	if best := res.Best(); best != nil {
		r.Summary.BestMML = best.BestMML
		r.Summary.BestPosterior = best.Posterior
	}
	return r
}

// header returns a copy of r without its result.
func (r *Run) header() *Run {
	h := *r
	h.Result = nil
	return &h
}

// Store is the interface for run storage backends.
type Store interface {
	// Save stores r, replacing any run with the same ID.
	Save(ctx context.Context, r *Run) error

	// Get returns the run with the given ID, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first, without results.
	// A limit of zero or less lists every run.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// DefaultListLimit bounds listings when the caller does not choose.
const DefaultListLimit = 50

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "run %q not found", id)
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "invalid run id %q", id)
	}
	return nil
}
