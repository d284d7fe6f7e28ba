package bias

import(
	"fmt"
	"strings"
	"time"

	"github.com/openastro/masterbias/pkg/fits"
)

// FilterPlaceholder replaces the %f token when a frame has no usable
// filter name, so templates never leave a literal token in a path.
const FilterPlaceholder = "NoFilter"

// SubstituteTokens expands the name-template tokens: %d date, %t time
// (both from `now`), %f filter name.
func SubstituteTokens(template string, now time.Time, filterName string) string {
	if filterName == "" || filterName == fits.UnknownFilter {
		filterName = FilterPlaceholder
	}

	r := strings.NewReplacer(
		"%d", now.Format("20060102"),
		"%t", now.Format("1504"),
		"%f", sanitizeNamePart(filterName),
	)
	return r.Replace(template)
}

// MethodLabel is the human-readable method name used in file names
// and output headers.
func MethodLabel(method string) string {
	switch method {
	case MethodMean:   return "Mean"
	case MethodMedian: return "Median"
	case MethodMinMax: return "MinMaxClip"
	case MethodSigma:  return "SigmaClip"
	}
	return method
}

// DefaultMasterName builds the standard output file name for a group,
// of the form BIAS-Mean-20260824-1130-0.000s--10.0C-1024x1024-2x2.fit.
// The sample frame supplies exposure, temperature, size and binning.
func DefaultMasterName(method string, sample *fits.Frame, now time.Time) string {
	return fmt.Sprintf("BIAS-%s-%s-%.3fs-%.1fC-%dx%d-%dx%d.fit",
		MethodLabel(method),
		now.Format("20060102-1504"),
		sample.ExposureSec,
		sample.Temperature,
		sample.Width, sample.Height,
		sample.Binning, sample.Binning)
}

func sanitizeNamePart(s string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return r.Replace(s)
}
