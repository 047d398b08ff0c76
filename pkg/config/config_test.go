package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/search"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, search.DefaultOptions(), cfg.SearchOptions())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camml.toml")
	text := `
[search]
seed = 7
chains = 4
anneal_epochs = 2000

[policy]
arc_weight = 0.5
swap_weight = 0.5
reverse_weight = 0.0
adjacent_swaps = false

[prior]
tiers = [[0, 1], [2, 3]]
required = [[0, 2]]
forbidden = [[3, 1]]

[learner]
kind = "wallace"
max_combinations = 256

[cache]
backend = "redis"
ttl = "72h"
prefix = "staging:"

[cache.redis]
addr = "localhost:6379"
db = 2

[store]
backend = "mongo"

[store.mongo]
uri = "mongodb://localhost:27017"
`
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	o := cfg.SearchOptions()
	require.Equal(t, uint64(7), o.Seed)
	require.Equal(t, 4, o.Chains)
	require.Equal(t, 2000, o.AnnealEpochs)
	require.Equal(t, search.DefaultCooling, o.Cooling, "absent keys keep defaults")
	require.False(t, o.Policy.AdjacentSwaps)
	require.Equal(t, [][]int{{0, 1}, {2, 3}}, o.Prior.Tiers)
	require.Equal(t, [][2]int{{0, 2}}, o.Prior.Required)
	require.Equal(t, [][2]int{{3, 1}}, o.Prior.Forbidden)

	require.Equal(t, "wallace", cfg.Learner.Kind)
	require.Equal(t, 256, cfg.Learner.MaxCombinations)
	l, err := cfg.NewLearner()
	require.NoError(t, err)
	require.Equal(t, "wallace", l.Name())

	require.Equal(t, 72*time.Hour, cfg.Cache.TTL.Duration)
	require.Equal(t, "staging:", cfg.Cache.Prefix)
	require.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, "mongodb://localhost:27017", cfg.Store.Mongo.URI)
	require.Equal(t, DefaultAddr, cfg.Server.Addr)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax", "[search\nseed = 1"},
		{"unknown key", "[search]\nsead = 1"},
		{"unknown section", "[searhc]\nseed = 1"},
		{"learner", "[learner]\nkind = \"bayes\""},
		{"temperature", "[search]\ntemperature = 0.0"},
		{"policy", "[policy]\narc_weight = 0.0\nswap_weight = 0.0\nreverse_weight = 0.0"},
		{"cache backend", "[cache]\nbackend = \"memcached\""},
		{"redis addr", "[cache]\nbackend = \"redis\""},
		{"mongo uri", "[store]\nbackend = \"mongo\""},
		{"ttl", "[cache]\nttl = \"soon\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.ErrCodeInvalidConfig), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
