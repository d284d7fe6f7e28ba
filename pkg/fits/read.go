package fits

import(
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/openastro/masterbias/pkg/fgrid"
)

// Describe reads a frame's metadata from the primary header without
// touching the pixel data. Dimensions are mandatory; temperature,
// filter, exposure and type are optional with defaults.
func Describe(path string) (*Frame, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, ErrUnreadable, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", path, ErrUnreadable, err)
	}
	defer f.Close()

	hdr := f.HDU(0).Header()
	axes := hdr.Axes()
	if len(axes) < 2 || axes[0] <= 0 || axes[1] <= 0 {
		return nil, fmt.Errorf("%s: %w: no usable NAXIS1/NAXIS2", path, ErrIncompleteMetadata)
	}

	fr := &Frame{
		Path:       path,
		Width:      axes[0],
		Height:     axes[1],
		Binning:    1,
		FilterName: UnknownFilter,
		Bitpix:     hdr.Bitpix(),
	}

	if v, ok := cardInt(hdr, "XBINNING"); ok && v >= 1 {
		fr.Binning = v
	}
	if v, ok := cardString(hdr, "FILTER"); ok && v != "" {
		fr.FilterName = v
	}
	if v, ok := cardFloat(hdr, "EXPOSURE"); ok {
		fr.ExposureSec = v
	} else if v, ok := cardFloat(hdr, "EXPTIME"); ok {
		fr.ExposureSec = v
	}
	if v, ok := cardFloat(hdr, "CCD-TEMP"); ok {
		fr.Temperature = v
		fr.HasTemperature = true
	}

	imagetyp, _ := cardString(hdr, "IMAGETYP")
	fr.Type = categorize(imagetyp, path)

	return fr, nil
}

// readGrid loads the primary HDU's sample grid, promoted to float64
// with BSCALE/BZERO applied. The dimensions must match what Describe
// reported earlier.
func readGrid(path string, wantW, wantH int) (*fgrid.Grid, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, ErrUnreadable, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", path, ErrUnreadable, err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%s: %w: primary HDU is not an image", path, ErrUnreadable)
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 2 {
		return nil, fmt.Errorf("%s: %w: no usable NAXIS1/NAXIS2", path, ErrIncompleteMetadata)
	}
	w, h := axes[0], axes[1]
	if w != wantW || h != wantH {
		return nil, fmt.Errorf("%s: %w: dimensions changed since scan (%dx%d -> %dx%d)",
			path, ErrUnreadable, wantW, wantH, w, h)
	}

	bzero := 0.0
	bscale := 1.0
	if v, ok := cardFloat(hdr, "BZERO"); ok {
		bzero = v
	}
	if v, ok := cardFloat(hdr, "BSCALE"); ok && v != 0 {
		bscale = v
	}

	g := fgrid.New(w, h)
	vals := g.Values()

	// fitsio reads into the caller's slice, which must already have
	// room for every pixel.
	switch hdr.Bitpix() {
	case 8:
		raw := make([]int8, w*h)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("read %s: %w: %v", path, ErrUnreadable, err)
		}
		for i, v := range raw { vals[i] = float64(v)*bscale + bzero }
	case 16:
		raw := make([]int16, w*h)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("read %s: %w: %v", path, ErrUnreadable, err)
		}
		for i, v := range raw { vals[i] = float64(v)*bscale + bzero }
	case 32:
		raw := make([]int32, w*h)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("read %s: %w: %v", path, ErrUnreadable, err)
		}
		for i, v := range raw { vals[i] = float64(v)*bscale + bzero }
	case 64:
		raw := make([]int64, w*h)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("read %s: %w: %v", path, ErrUnreadable, err)
		}
		for i, v := range raw { vals[i] = float64(v)*bscale + bzero }
	case -32:
		raw := make([]float32, w*h)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("read %s: %w: %v", path, ErrUnreadable, err)
		}
		for i, v := range raw { vals[i] = float64(v)*bscale + bzero }
	case -64:
		raw := make([]float64, w*h)
		if err := img.Read(&raw); err != nil {
			return nil, fmt.Errorf("read %s: %w: %v", path, ErrUnreadable, err)
		}
		for i, v := range raw { vals[i] = v*bscale + bzero }
	default:
		return nil, fmt.Errorf("%s: %w: unsupported BITPIX %d", path, ErrUnreadable, hdr.Bitpix())
	}

	return g, nil
}

func cardInt(hdr *fitsio.Header, name string) (int, bool) {
	c := hdr.Get(name)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case int:     return v, true
	case int64:   return int(v), true
	case float64: return int(v), true
	}
	return 0, false
}

func cardFloat(hdr *fitsio.Header, name string) (float64, bool) {
	c := hdr.Get(name)
	if c == nil {
		return 0, false
	}
	switch v := c.Value.(type) {
	case float64: return v, true
	case int:     return float64(v), true
	case int64:   return float64(v), true
	}
	return 0, false
}

func cardString(hdr *fitsio.Header, name string) (string, bool) {
	c := hdr.Get(name)
	if c == nil {
		return "", false
	}
	if v, ok := c.Value.(string); ok {
		return v, true
	}
	return "", false
}
