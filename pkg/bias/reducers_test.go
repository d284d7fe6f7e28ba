package bias

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var outlierVector = []float64{1, 2, 3, 4, 100}

func TestReduceMean(t *testing.T) {
	assert.InDelta(t, 22.0, ReduceMean(outlierVector, CombineConfig{}), 1e-9)
}

func TestReduceMedian(t *testing.T) {
	assert.InDelta(t, 3.0, ReduceMedian(outlierVector, CombineConfig{}), 1e-9)

	// Even N averages the two middle order statistics.
	assert.InDelta(t, 2.5, ReduceMedian([]float64{4, 1, 3, 2}, CombineConfig{}), 1e-9)
}

func TestReduceMinMaxClip(t *testing.T) {
	cfg := CombineConfig{ClipCount: 1}
	assert.InDelta(t, 3.0, ReduceMinMaxClip(outlierVector, cfg), 1e-9,
		"drop 1 and 100, mean of {2,3,4}")
}

func TestReduceMinMaxClipDegradesGracefully(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		clip    int
		want    float64
	}{
		{"clip exceeds half", []float64{1, 2, 3}, 2, 2.0},          // k drops to 1, middle value
		{"clip equals half", []float64{1, 2, 3, 4}, 2, 2.5},        // k drops to 1, mean of middle two
		{"single sample", []float64{7}, 5, 7.0},                    // k drops to 0
		{"zero clip is plain mean", []float64{1, 2, 3, 4}, 0, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ReduceMinMaxClip(tt.samples, CombineConfig{ClipCount: tt.clip}), 1e-9)
		})
	}
}

func TestReduceSigmaClip(t *testing.T) {
	cfg := CombineConfig{SigmaThreshold: 1.0}
	// The 100 is well past one sigma from the mean; the rest survive.
	assert.InDelta(t, 2.5, ReduceSigmaClip(outlierVector, cfg), 1e-9)
}

func TestReduceSigmaClipDegenerate(t *testing.T) {
	cfg := CombineConfig{SigmaThreshold: 2.0}

	// All-equal vector has zero deviation; fall back to the mean.
	assert.InDelta(t, 5.0, ReduceSigmaClip([]float64{5, 5, 5, 5}, cfg), 1e-9)
}

func TestReducersOrderInvariant(t *testing.T) {
	reducers := map[string]ReducerFunc{
		"mean":   ReduceMean,
		"median": ReduceMedian,
		"minmax": ReduceMinMaxClip,
		"sigma":  ReduceSigmaClip,
	}
	cfg := CombineConfig{ClipCount: 1, SigmaThreshold: 2.0}

	rng := rand.New(rand.NewSource(42))
	samples := make([]float64, 17)
	for i := range samples {
		samples[i] = rng.Float64() * 65535
	}

	for name, reduce := range reducers {
		want := reduce(samples, cfg)
		for trial := 0; trial < 10; trial++ {
			shuffled := append([]float64{}, samples...)
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			assert.InDelta(t, want, reduce(shuffled, cfg), 1e-9, "reducer %s", name)
		}
	}
}

func TestReducersDoNotMutateInput(t *testing.T) {
	cfg := CombineConfig{ClipCount: 1, SigmaThreshold: 2.0}
	samples := []float64{5, 1, 4, 2, 3}
	want := append([]float64{}, samples...)

	ReduceMean(samples, cfg)
	ReduceMedian(samples, cfg)
	ReduceMinMaxClip(samples, cfg)
	ReduceSigmaClip(samples, cfg)

	assert.Equal(t, want, samples)
}
