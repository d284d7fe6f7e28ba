package fits

import(
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openastro/masterbias/pkg/fgrid"
)

var(
	// ErrUnreadable means the file could not be parsed as FITS at all.
	ErrUnreadable = errors.New("unreadable FITS file")
	// ErrIncompleteMetadata means a mandatory header field (the image
	// dimensions) is missing.
	ErrIncompleteMetadata = errors.New("incomplete FITS metadata")
)

// FrameType is the acquisition kind recorded in (or guessed for) a
// frame. The values match the common ccdsoftImageFrame numbering.
type FrameType int

const (
	TypeUnknown FrameType = iota
	TypeLight
	TypeBias
	TypeDark
	TypeFlat
)

func (t FrameType)String() string {
	switch t {
	case TypeLight: return "Light"
	case TypeBias:  return "Bias"
	case TypeDark:  return "Dark"
	case TypeFlat:  return "Flat"
	}
	return "Unknown"
}

// UnknownFilter is the filter name used when a frame has none.
const UnknownFilter = "(unknown)"

// A Frame is one input image: its acquisition attributes, read from
// the header, and (on demand) its pixel data. Pixel data is loaded
// lazily since most frames are inspected long before they are
// combined, and dropped once the consuming group has been processed.
type Frame struct {
	Path           string
	Width          int
	Height         int
	Binning        int
	Type           FrameType
	FilterName     string
	ExposureSec    float64
	Temperature    float64
	HasTemperature bool
	Bitpix         int

	pixels *fgrid.Grid
}

func (f *Frame)Name() string { return filepath.Base(f.Path) }

// SizeKey is the exact-match part of a grouping key.
func (f *Frame)SizeKey() string {
	return fmt.Sprintf("%dx%d bin %d", f.Width, f.Height, f.Binning)
}

func (f *Frame)String() string {
	return fmt.Sprintf("%s: %s %s %.3fs %.1fC filter %q",
		f.Name(), f.Type, f.SizeKey(), f.ExposureSec, f.Temperature, f.FilterName)
}

// Pixels loads (and caches) the frame's sample grid.
func (f *Frame)Pixels() (*fgrid.Grid, error) {
	if f.pixels != nil {
		return f.pixels, nil
	}
	g, err := readGrid(f.Path, f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	f.pixels = g
	return g, nil
}

// DropPixels releases the cached grid once a group has consumed it.
func (f *Frame)DropPixels() { f.pixels = nil }

// lightKeywords mark a filename as a light frame when the header
// carries no IMAGETYP card.
var lightKeywords = []string{"LIGHT", "LUM", "RED", "GREEN", "BLUE", "HA"}

// categorize guesses the frame type: the IMAGETYP header card when
// present, telltale words in the file name otherwise.
func categorize(imagetyp, path string) FrameType {
	if imagetyp != "" {
		return typeFromTag(strings.ToUpper(imagetyp))
	}

	fnUpper := strings.ToUpper(filepath.Base(path))
	if t := typeFromTag(fnUpper); t != TypeUnknown {
		return t
	}
	for _, kw := range lightKeywords {
		if strings.Contains(fnUpper, kw) {
			return TypeLight
		}
	}
	return TypeUnknown
}

func typeFromTag(tag string) FrameType {
	switch {
	case strings.Contains(tag, "BIAS"):  return TypeBias
	case strings.Contains(tag, "DARK"):  return TypeDark
	case strings.Contains(tag, "FLAT"):  return TypeFlat
	case strings.Contains(tag, "LIGHT"): return TypeLight
	}
	return TypeUnknown
}
