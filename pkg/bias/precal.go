package bias

import(
	"fmt"

	"github.com/openastro/masterbias/pkg/fgrid"
	"github.com/openastro/masterbias/pkg/fits"
)

// Raw sensor samples live in the unsigned 16-bit range; subtraction
// results are clamped back into it.
const (
	sampleMin = 0.0
	sampleMax = 65535.0
)

// A Precalibrator applies the configured pedestal or bias-frame
// subtraction to a loaded pixel grid before it enters combination.
// It is purely numeric and knows nothing about grouping.
type Precalibrator struct {
	mode     string
	pedestal float64
	calFrame *fgrid.Grid
}

// NewPrecalibrator resolves the config, loading the calibration frame
// once if one is named.
func NewPrecalibrator(cfg PrecalConfig) (*Precalibrator, error) {
	p := &Precalibrator{mode: cfg.Mode, pedestal: cfg.Pedestal}

	if cfg.Mode == PrecalBiasFile {
		fr, err := fits.Describe(cfg.BiasPath)
		if err != nil {
			return nil, fmt.Errorf("precalibration frame: %w", err)
		}
		g, err := fr.Pixels()
		if err != nil {
			return nil, fmt.Errorf("precalibration frame: %w", err)
		}
		p.calFrame = g
	}

	return p, nil
}

// Apply subtracts in place. Fails only when a calibration frame's
// dimensions differ from the target grid's.
func (p *Precalibrator)Apply(g *fgrid.Grid) error {
	switch p.mode {
	case PrecalNone:
		return nil

	case PrecalPedestal:
		g.SubScalar(p.pedestal, sampleMin, sampleMax)
		return nil

	case PrecalBiasFile:
		if !g.SameSize(p.calFrame) {
			return fmt.Errorf("calibration frame is %dx%d, target is %dx%d: %w",
				p.calFrame.Dx(), p.calFrame.Dy(), g.Dx(), g.Dy(), ErrDimensionMismatch)
		}
		g.SubGrid(p.calFrame, sampleMin, sampleMax)
		return nil
	}

	return fmt.Errorf("no precalibration mode named '%s'", p.mode)
}
