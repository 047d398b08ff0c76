// Package pkg provides the libraries behind camml, a Minimum Message Length
// learner of causal structure.
//
// # Overview
//
// Given a table of discrete data, camml samples directed acyclic graphs over
// the columns, prices each one by the length of a two-part message (structure
// plus data given structure), and reports the most probable groups of
// structures together with their posterior weight.
//
// # Architecture
//
//	CSV file
//	    ↓
//	[data] Dataset (discrete columns)
//	    ↓
//	[search] Metropolis sampling over [tom] totally ordered models,
//	         priced by a [learner] and the [extension]-count structure prior
//	    ↓
//	SECs grouped into MMLECs, best first
//	    ↓
//	[render] DOT / SVG / PDF / PNG
//
// [pipeline] wraps a search with the result [cache] and the run [store] so
// that the CLI and the [api] server share results.
//
// # Main Packages
//
// ## Engine
//
//   - [bitgraph]: DAGs of up to 64 nodes as parent and child bitmasks
//   - [extension]: linear extension counting and interleavings
//   - [enumerate]: every DAG over fewer than six nodes
//   - [perm]: permutation helpers
//   - [tom]: the totally ordered model the search mutates
//   - [learner]: local model learners (CPT, Wallace multistate, dual)
//   - [search]: the sampler, structure prior, and class reporting
//
// ## Services
//
//   - [data]: datasets and the CSV loader
//   - [cache]: result cache backends (file, Redis)
//   - [store]: persisted runs (memory, file, MongoDB)
//   - [config]: camml.toml
//   - [pipeline]: cached search execution
//   - [api]: HTTP API
//   - [observability]: hooks for search, cache, and server events
//   - [errors]: coded errors
//
// [bitgraph]: github.com/matzehuels/camml/pkg/bitgraph
// [extension]: github.com/matzehuels/camml/pkg/extension
// [enumerate]: github.com/matzehuels/camml/pkg/enumerate
// [perm]: github.com/matzehuels/camml/pkg/perm
// [tom]: github.com/matzehuels/camml/pkg/tom
// [learner]: github.com/matzehuels/camml/pkg/learner
// [search]: github.com/matzehuels/camml/pkg/search
// [data]: github.com/matzehuels/camml/pkg/data
// [cache]: github.com/matzehuels/camml/pkg/cache
// [store]: github.com/matzehuels/camml/pkg/store
// [config]: github.com/matzehuels/camml/pkg/config
// [pipeline]: github.com/matzehuels/camml/pkg/pipeline
// [api]: github.com/matzehuels/camml/pkg/api
// [render]: github.com/matzehuels/camml/pkg/render
// [observability]: github.com/matzehuels/camml/pkg/observability
// [errors]: github.com/matzehuels/camml/pkg/errors
package pkg
