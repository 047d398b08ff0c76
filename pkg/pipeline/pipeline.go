// Package pipeline runs structure searches the same way for the CLI and the
// API server: look the result up in the cache, otherwise search, then cache
// and store what was found.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, runs, logger)
//	out, err := runner.Execute(ctx, pipeline.Options{
//	    Name:    "asia.csv",
//	    Data:    ds,
//	    Learner: "dual",
//	    Search:  search.DefaultOptions(),
//	})
//	best := out.Result.Best()
//
// Long searches go through [Runner.Prepare], which returns either a cached
// result or a Searcher to [search.Searcher.Start] in the background, and
// [Runner.Finish] once the job is done.
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/learner"
	"github.com/matzehuels/camml/pkg/render"
	"github.com/matzehuels/camml/pkg/search"
	"github.com/matzehuels/camml/pkg/store"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultLearner is the learner used when Options.Learner is empty.
const DefaultLearner = "dual"

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	render.FormatDOT: true,
	render.FormatSVG: true,
	render.FormatPDF: true,
	render.FormatPNG: true,
}

// =============================================================================
// Options
// =============================================================================

// Options describes one search.
type Options struct {
	Name            string         `json:"name"` // dataset label shown in run listings
	Learner         string         `json:"learner,omitempty"`
	MaxCombinations int            `json:"max_combinations,omitempty"`
	Search          search.Options `json:"search"`
	Exhaustive      bool           `json:"exhaustive,omitempty"` // score every DAG instead of sampling
	Refresh         bool           `json:"refresh,omitempty"`    // ignore cached results

	// Runtime options (not serialized)
	Data *data.Dataset `json:"-"`
}

// Validate checks required fields and applies defaults.
func (o *Options) Validate() error {
	if o.Data == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no dataset")
	}
	if o.Learner == "" {
		o.Learner = DefaultLearner
	}
	if o.MaxCombinations == 0 {
		o.MaxCombinations = learner.DefaultMaxCombinations
	}
	if o.Name == "" {
		o.Name = "dataset"
	}
	return nil
}

// ValidateFormat checks that a render format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, pdf, png)", format)
	}
	return nil
}

// =============================================================================
// Output
// =============================================================================

// Output is what a pipeline run produced.
type Output struct {
	Result *search.Result
	Run    *store.Run // nil when the runner has no store or the result came from cache
	Key    string     // result cache key
	Stats  Stats
}

// Stats records where the result came from and how long it took.
type Stats struct {
	CacheHit   bool
	SearchTime time.Duration
}
