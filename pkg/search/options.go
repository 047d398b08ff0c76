package search

import (
	"math"

	"github.com/matzehuels/camml/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultSeed seeds the first chain. Chain i uses stream i of this seed.
	DefaultSeed = uint64(42)

	// DefaultSearchFactor scales the epoch budget derived from the number of
	// variables.
	DefaultSearchFactor = 1.0

	// DefaultChains is the number of independent chains.
	DefaultChains = 1

	// DefaultStartTemperature is the initial annealing temperature.
	DefaultStartTemperature = 20.0

	// DefaultCooling is the per-epoch annealing multiplier.
	DefaultCooling = 0.995

	// DefaultTemperature is the sampling temperature. At 1 the chain samples
	// the MML posterior.
	DefaultTemperature = 1.0

	// DefaultArcProb is the prior probability of an arc between two
	// variables.
	DefaultArcProb = 0.5

	// DefaultMaxMMLECs caps the number of reported MMLECs.
	DefaultMaxMMLECs = 30

	// DefaultMinTotalPosterior is the cumulative posterior at which reporting
	// stops.
	DefaultMinTotalPosterior = 0.999

	// DefaultMergeThreshold is the cost gap in nats under which neighbouring
	// SECs share an MMLEC.
	DefaultMergeThreshold = 1.0

	// epochsPerNode sets the epoch budget: SearchFactor * epochsPerNode *
	// n * max(1, ln n).
	epochsPerNode = 200
)

// =============================================================================
// Options
// =============================================================================

// Options configures a search. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Seed         uint64  `json:"seed" toml:"seed"`
	SearchFactor float64 `json:"search_factor" toml:"search_factor"`
	Epochs       int     `json:"epochs,omitempty" toml:"epochs"` // overrides SearchFactor when > 0
	Chains       int     `json:"chains" toml:"chains"`

	// Annealing phase, skipped when AnnealEpochs is 0.
	AnnealEpochs     int     `json:"anneal_epochs,omitempty" toml:"anneal_epochs"`
	StartTemperature float64 `json:"start_temperature" toml:"start_temperature"`
	Cooling          float64 `json:"cooling" toml:"cooling"`

	Temperature float64 `json:"temperature" toml:"temperature"`
	ArcProb     float64 `json:"arc_prob" toml:"arc_prob"`

	// Reporting
	MaxMMLECs         int     `json:"max_mmlecs" toml:"max_mmlecs"`
	MinTotalPosterior float64 `json:"min_total_posterior" toml:"min_total_posterior"`
	MergeThreshold    float64 `json:"merge_threshold" toml:"merge_threshold"`

	Policy Policy `json:"policy" toml:"policy"`
	Prior  Prior  `json:"prior" toml:"prior"`
}

// DefaultOptions returns the built-in search configuration.
func DefaultOptions() Options {
	return Options{
		Seed:              DefaultSeed,
		SearchFactor:      DefaultSearchFactor,
		Chains:            DefaultChains,
		StartTemperature:  DefaultStartTemperature,
		Cooling:           DefaultCooling,
		Temperature:       DefaultTemperature,
		ArcProb:           DefaultArcProb,
		MaxMMLECs:         DefaultMaxMMLECs,
		MinTotalPosterior: DefaultMinTotalPosterior,
		MergeThreshold:    DefaultMergeThreshold,
		Policy:            DefaultPolicy(),
	}
}

// Validate checks the options for n variables.
// Returns INVALID_CONFIG describing the first problem found.
func (o *Options) Validate(n int) error {
	switch {
	case o.SearchFactor <= 0 && o.Epochs <= 0:
		return invalid("search_factor must be positive")
	case o.Epochs < 0:
		return invalid("epochs must not be negative")
	case o.Chains < 1:
		return invalid("chains must be at least 1")
	case o.AnnealEpochs < 0:
		return invalid("anneal_epochs must not be negative")
	case o.AnnealEpochs > 0 && !(o.StartTemperature > 0):
		return invalid("start_temperature must be positive")
	case o.AnnealEpochs > 0 && !(o.Cooling > 0 && o.Cooling <= 1):
		return invalid("cooling must be in (0, 1]")
	case !(o.Temperature > 0) || math.IsInf(o.Temperature, 0):
		return invalid("temperature must be positive")
	case !(o.ArcProb > 0 && o.ArcProb < 1):
		return invalid("arc_prob must be in (0, 1)")
	case o.MaxMMLECs < 1:
		return invalid("max_mmlecs must be at least 1")
	case !(o.MinTotalPosterior > 0 && o.MinTotalPosterior <= 1):
		return invalid("min_total_posterior must be in (0, 1]")
	case o.MergeThreshold < 0:
		return invalid("merge_threshold must not be negative")
	}
	if err := o.Policy.Validate(); err != nil {
		return err
	}
	return o.Prior.Validate(n)
}

// EpochBudget returns the number of sampling epochs per chain for n
// variables.
func (o *Options) EpochBudget(n int) int {
	if o.Epochs > 0 {
		return o.Epochs
	}
	scale := math.Max(1, math.Log(float64(n)))
	return max(1, int(math.Ceil(o.SearchFactor*epochsPerNode*float64(n)*scale)))
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}
