package pipeline

import (
	"context"

	"github.com/matzehuels/camml/pkg/cache"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/observability"
	"github.com/matzehuels/camml/pkg/render"
	"github.com/matzehuels/camml/pkg/search"
)

// RenderOptions selects what to draw from a result.
type RenderOptions struct {
	Format   string `json:"format"`
	MMLEC    int    `json:"mmlec"` // index into Result.MMLECs, 0 is the best
	Detailed bool   `json:"detailed,omitempty"`
}

// Render draws the representative of one MMLEC. When key is non-empty the
// artifact is cached under it.
func (r *Runner) Render(ctx context.Context, res *search.Result, key string, opts RenderOptions) ([]byte, error) {
	if opts.Format == "" {
		opts.Format = render.FormatSVG
	}
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "render")
	}
	if opts.MMLEC < 0 || opts.MMLEC >= len(res.MMLECs) {
		return nil, errors.New(errors.ErrCodeNotFound, "MMLEC %d not in result (%d reported)", opts.MMLEC, len(res.MMLECs))
	}
	rep := res.MMLECs[opts.MMLEC].Representative
	if rep == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "MMLEC %d has no representative", opts.MMLEC)
	}

	var artifactKey string
	if key != "" {
		artifactKey = r.Keyer.ArtifactKey(key, cache.ArtifactKeyOpts{
			Format:   opts.Format,
			MMLEC:    opts.MMLEC,
			Detailed: opts.Detailed,
		})
		if data, hit, err := r.Cache.Get(ctx, artifactKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	out, err := render.Render(rep, opts.Format, render.Options{Names: res.Names, Detailed: opts.Detailed})
	if err != nil {
		return nil, err
	}
	if artifactKey != "" {
		if err := r.Cache.Set(ctx, artifactKey, out, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(out))
		}
	}
	return out, nil
}
