package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/camml/pkg/cache"
	"github.com/matzehuels/camml/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.CacheConfig
		noCache bool
		file    bool
	}{
		{"file", config.CacheConfig{Backend: config.CacheFile, Dir: dir}, false, true},
		{"none", config.CacheConfig{Backend: config.CacheNone}, false, false},
		{"disabled by flag", config.CacheConfig{Backend: config.CacheFile, Dir: dir}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newCache(ctx, tt.cfg, tt.noCache)
			if err != nil {
				t.Fatalf("newCache() error: %v", err)
			}
			defer c.Close()

			_, isFile := c.(*cache.FileCache)
			if isFile != tt.file {
				t.Errorf("file cache = %v, want %v", isFile, tt.file)
			}
		})
	}
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(context.Background(), "result:abc", []byte("{}"), time.Hour); err != nil {
		t.Fatal(err)
	}

	cfgPath := writeConfig(t, "[cache]\nbackend = \"file\"\ndir = \""+filepath.ToSlash(dir)+"\"\n")
	if err := execute(t, "--config", cfgPath, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, hit, _ := fc.Get(context.Background(), "result:abc"); hit {
		t.Error("entry survived cache clear")
	}
}

func TestNewRunnerCachePrefix(t *testing.T) {
	c := New(io.Discard, LogInfo)
	for _, prefix := range []string{"", "staging:"} {
		cfg := config.Default()
		cfg.Cache = config.CacheConfig{Backend: config.CacheNone, Prefix: prefix}
		cfg.Store = config.StoreConfig{Backend: config.StoreNone}

		r, err := c.newRunner(context.Background(), cfg, false)
		if err != nil {
			t.Fatalf("newRunner(prefix %q) error: %v", prefix, err)
		}
		key := r.Keyer.ResultKey("h", cache.ResultKeyOpts{Learner: "dual"})
		if !strings.HasPrefix(key, prefix+"result:") {
			t.Errorf("prefix %q: result key = %q", prefix, key)
		}
		art := r.Keyer.ArtifactKey(key, cache.ArtifactKeyOpts{Format: "svg"})
		if !strings.HasPrefix(art, prefix+"artifact:") {
			t.Errorf("prefix %q: artifact key = %q", prefix, art)
		}
		r.Close()
	}
}
