package fgrid

import(
	"fmt"
	"math"
	"sort"
)

// A Grid is a 2-D field of float64 pixel samples, stored row-major.
// Integer sensor data is promoted to float64 when a grid is filled, so
// every downstream reduction runs at full precision.
type Grid struct {
	stride int
	values []float64
}

func New(w, h int) *Grid {
	return &Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g *Grid)Set(x, y int, v float64) { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64    { return g.values[g.stride*y + x] }
func (g *Grid)Dx() int                 { return g.stride }
func (g *Grid)Dy() int                 { return len(g.values) / g.stride }

// Values exposes the backing slice, row-major. Loaders and writers
// use it to avoid an (x,y) loop per sample.
func (g *Grid)Values() []float64 { return g.values }

func (g1 *Grid)Copy() *Grid {
	g2 := Grid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

func (g1 *Grid)SameSize(g2 *Grid) bool {
	return g1.Dx() == g2.Dx() && g1.Dy() == g2.Dy()
}

// SubScalar subtracts `v` from every sample in place, clamping the
// result to [lo,hi].
func (g *Grid)SubScalar(v, lo, hi float64) {
	for i := range g.values {
		g.values[i] = clamp(g.values[i]-v, lo, hi)
	}
}

// SubGrid subtracts `o` element-wise in place, clamping to [lo,hi].
// The grids must be the same size; callers check with SameSize.
func (g *Grid)SubGrid(o *Grid, lo, hi float64) {
	for i := range g.values {
		g.values[i] = clamp(g.values[i]-o.values[i], lo, hi)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo { return lo }
	if v > hi { return hi }
	return v
}

// PercentileRange returns the sample values at the given percentiles
// (each in [0,1]), used to pick a display stretch for previews.
func (g *Grid)PercentileRange(minPrct, maxPrct float64) (float64, float64) {
	vals := make([]float64, len(g.values))
	copy(vals, g.values)
	sort.Float64s(vals)

	iMin := int(minPrct * float64(len(vals)))
	iMax := int(maxPrct * float64(len(vals)))
	if iMin < 0          { iMin = 0 }
	if iMax >= len(vals) { iMax = len(vals)-1 }

	return vals[iMin], vals[iMax]
}

func (g *Grid)Stats() string {
	min := math.MaxFloat64
	max := -1.0 * min

	for i := 0; i < len(g.values); i++ {
		if g.values[i] > max { max = g.values[i] }
		if g.values[i] < min { min = g.values[i] }
	}
	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}]", g.Dx(), g.Dy(), min, max)
}
