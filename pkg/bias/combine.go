package bias

import(
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/openastro/masterbias/pkg/fgrid"
)

// Combine reduces a stack of same-dimension grids into one grid using
// the configured reducer. Every pixel position's reduction is
// independent of every other, so rows are farmed out to a worker per
// core. The engine knows nothing about files or groups.
func Combine(grids []*fgrid.Grid, cfg CombineConfig) (*fgrid.Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("combine: %w", ErrEmptyInput)
	}
	if cfg.Reducer == nil {
		return nil, fmt.Errorf("combine: no reducer configured")
	}
	for i, g := range grids {
		if !g.SameSize(grids[0]) {
			return nil, fmt.Errorf("combine: frame %d is %dx%d, want %dx%d: %w",
				i, g.Dx(), g.Dy(), grids[0].Dx(), grids[0].Dy(), ErrDimensionMismatch)
		}
	}

	w, h := grids[0].Dx(), grids[0].Dy()
	out := fgrid.New(w, h)

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for y := 0; y < h; y++ {
		y := y
		eg.Go(func() error {
			samples := make([]float64, len(grids))
			for x := 0; x < w; x++ {
				for i, g := range grids {
					samples[i] = g.Get(x, y)
				}
				out.Set(x, y, cfg.Reducer(samples, cfg))
			}
			return nil
		})
	}

	// The row workers never fail; Wait is for completion only.
	_ = eg.Wait()
	return out, nil
}
