package cache

// Keyer derives cache keys. Implementations must be deterministic: equal
// inputs always give equal keys.
type Keyer interface {
	// ResultKey identifies a search result for a dataset.
	ResultKey(datasetHash string, opts ResultKeyOpts) string

	// ArtifactKey identifies a rendering of a cached result.
	ArtifactKey(resultKey string, opts ArtifactKeyOpts) string
}

// ResultKeyOpts holds everything besides the data that changes a result.
type ResultKeyOpts struct {
	Learner         string `json:"learner"`
	MaxCombinations int    `json:"max_combinations"`
	Exhaustive      bool   `json:"exhaustive,omitempty"`

	// Options is the search configuration. It is hashed through its JSON
	// encoding, so any JSON-serializable options type works.
	Options any `json:"options"`
}

// ArtifactKeyOpts describes one rendering of a result.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	MMLEC    int    `json:"mmlec"`
	Detailed bool   `json:"detailed,omitempty"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey returns "result:<hash>".
func (DefaultKeyer) ResultKey(datasetHash string, opts ResultKeyOpts) string {
	return hashKey("result", datasetHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(resultKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", resultKey, opts)
}
