package bias

import(
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/openastro/masterbias/pkg/fits"
)

// A Writer persists master frames and remembers every path produced
// during the run, so a later group resolving to the same path gets
// ErrWriteConflict instead of clobbering the earlier output.
type Writer struct {
	preview bool

	mu      sync.Mutex
	claimed map[string]bool
}

func NewWriter(cfg OutputConfig) *Writer {
	return &Writer{
		preview: cfg.PreviewPNG,
		claimed: map[string]bool{},
	}
}

func (w *Writer)claim(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	clean := filepath.Clean(path)
	if w.claimed[clean] {
		return fmt.Errorf("%s: %w", path, ErrWriteConflict)
	}
	w.claimed[clean] = true
	return nil
}

func (w *Writer)release(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.claimed, filepath.Clean(path))
}

// WriteMaster writes the master frame to `path`, creating intermediate
// directories as needed. The write is atomic: the FITS file is built
// in a temp file in the target directory and renamed into place, so a
// failed or cancelled write never leaves a partial output. A claim is
// held only while the output exists; a failed write releases it, so
// only paths actually produced this run can conflict.
func (w *Writer)WriteMaster(path string, m *fits.Master) error {
	if err := w.claim(path); err != nil {
		return err
	}
	if err := w.writeAtomically(path, m); err != nil {
		w.release(path)
		return err
	}

	logger.Info().Str("path", path).Int("sources", m.SourceCount).Str("method", m.Method).
		Msg("master frame written")

	if w.preview {
		preview := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
		title := fmt.Sprintf("%s of %d frames", m.Method, m.SourceCount)
		if err := m.Pixels.WritePreviewPNG(title, preview); err != nil {
			// Previews are advisory; a failed one never fails the group.
			logger.Warn().Str("path", preview).Err(err).Msg("preview render failed")
		}
	}

	return nil
}

func (w *Writer)writeAtomically(path string, m *fits.Master) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w: %v", dir, ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(dir, ".masterbias-*.tmp")
	if err != nil {
		return fmt.Errorf("tempfile in %s: %w: %v", dir, ErrIOFailure, err)
	}
	tmpName := tmp.Name()

	if err := fits.WriteMaster(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode %s: %w: %v", path, ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w: %v", tmpName, ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w: %v", path, ErrIOFailure, err)
	}
	return nil
}
