package fits

import(
	"fmt"
	"io"
	"math"

	"github.com/astrogo/fitsio"

	"github.com/openastro/masterbias/pkg/fgrid"
)

// Master holds the combined output of one group plus the metadata that
// goes into its header.
type Master struct {
	Pixels *fgrid.Grid

	Method         string // Mean, Median, MinMaxClip, SigmaClip
	Comment        string // e.g. "Master Bias MEAN combined"
	SourceCount    int
	ClipCount      int     // MinMaxClip only
	SigmaThreshold float64 // SigmaClip only

	ExposureSec float64 // mean over the source frames
	Temperature float64 // mean over the source frames
	FilterName  string
	Binning     int
}

// WriteMaster encodes a master frame as 16-bit FITS (BZERO 32768, the
// usual unsigned-range convention). Samples are rounded and clamped to
// [0,65535].
func WriteMaster(w io.Writer, m *Master) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("fits create: %w", err)
	}
	defer f.Close()

	width, height := m.Pixels.Dx(), m.Pixels.Dy()
	img := fitsio.NewImage(16, []int{width, height})
	defer img.Close()

	cards := []fitsio.Card{
		{Name: "BZERO", Value: 32768.0, Comment: "offset for unsigned 16-bit data"},
		{Name: "BSCALE", Value: 1.0},
		{Name: "IMAGETYP", Value: "Bias Frame"},
		{Name: "FILTER", Value: m.FilterName},
		{Name: "EXPTIME", Value: m.ExposureSec, Comment: "mean of source frames, seconds"},
		{Name: "CCD-TEMP", Value: m.Temperature, Comment: "mean of source frames, degrees C"},
		{Name: "XBINNING", Value: m.Binning},
		{Name: "YBINNING", Value: m.Binning},
		{Name: "NCOMBINE", Value: m.SourceCount, Comment: "number of source frames combined"},
		{Name: "COMBMETH", Value: m.Method, Comment: "combination method"},
	}
	switch m.Method {
	case "MinMaxClip":
		cards = append(cards, fitsio.Card{Name: "NCLIP", Value: m.ClipCount, Comment: "values clipped per extreme"})
	case "SigmaClip":
		cards = append(cards, fitsio.Card{Name: "SIGCLIP", Value: m.SigmaThreshold, Comment: "sigma rejection threshold"})
	}
	if m.Comment != "" {
		cards = append(cards, fitsio.Card{Name: "COMMENT", Value: m.Comment})
	}
	if err := img.Header().Append(cards...); err != nil {
		return fmt.Errorf("fits header: %w", err)
	}

	vals := m.Pixels.Values()
	raw := make([]int16, len(vals))
	for i, v := range vals {
		p := math.Round(v)
		if p < 0 { p = 0 }
		if p > 65535 { p = 65535 }
		raw[i] = int16(p - 32768)
	}

	if err := img.Write(&raw); err != nil {
		return fmt.Errorf("fits data: %w", err)
	}
	if err := f.Write(img); err != nil {
		return fmt.Errorf("fits write: %w", err)
	}
	return nil
}
