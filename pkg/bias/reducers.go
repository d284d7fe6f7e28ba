package bias

import(
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// A ReducerFunc collapses one pixel position's sample vector (one
// value per source frame) into a single output value. Reducers never
// mutate the vector they are given.
type ReducerFunc func(samples []float64, cfg CombineConfig) float64

// {{{ ReduceMean

func ReduceMean(samples []float64, cfg CombineConfig) float64 {
	return stat.Mean(samples, nil)
}

// }}}
// {{{ ReduceMedian

func ReduceMedian(samples []float64, cfg CombineConfig) float64 {
	sorted := append([]float64{}, samples...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// }}}
// {{{ ReduceMinMaxClip

// ReduceMinMaxClip sorts the vector, drops the lowest and highest
// ClipCount values, and means the remainder. When 2k >= N the drop
// count is reduced until samples remain, bottoming out at a plain
// mean; there is never a negative-count selection.
func ReduceMinMaxClip(samples []float64, cfg CombineConfig) float64 {
	n := len(samples)
	k := cfg.ClipCount
	if k < 0 {
		k = 0
	}
	for k > 0 && 2*k >= n {
		k--
	}

	sorted := append([]float64{}, samples...)
	sort.Float64s(sorted)
	return stat.Mean(sorted[k:n-k], nil)
}

// }}}
// {{{ ReduceSigmaClip

// ReduceSigmaClip rejects samples more than SigmaThreshold population
// standard deviations from the vector mean, then means the remainder.
// A degenerate vector (all values equal, or everything rejected)
// falls back to the unfiltered mean.
func ReduceSigmaClip(samples []float64, cfg CombineConfig) float64 {
	mu := stat.Mean(samples, nil)
	sd := stat.PopStdDev(samples, nil)
	if sd == 0 {
		return mu
	}

	kept := make([]float64, 0, len(samples))
	for _, v := range samples {
		if math.Abs(v-mu) <= cfg.SigmaThreshold*sd {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return mu
	}
	return stat.Mean(kept, nil)
}

// }}}

// {{{ -------------------------={ E N D }=----------------------------------

// Local variables:
// folded-file: t
// end:

// }}}
