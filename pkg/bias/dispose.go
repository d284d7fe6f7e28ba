package bias

import(
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// A DispositionResult reports what happened to one input file after
// its group's master was written.
type DispositionResult struct {
	Path    string
	MovedTo string // empty when the file was left in place or the move failed
	Err     error
}

// DisposeGroup puts away a group's input files according to the
// disposition config. It runs only after the group's output was
// written successfully. Moves are per-file and are not rolled back:
// a failure part-way leaves earlier moves done and is reported
// per-file in the results.
func DisposeGroup(g *Group, cfg DispositionConfig, now time.Time) []DispositionResult {
	if !cfg.MoveToSubfolder {
		return nil
	}

	folder := SubstituteTokens(cfg.SubfolderName, now, g.MostCommonFilter())

	var paths []string
	for _, fr := range g.Frames {
		paths = append(paths, fr.Path)
	}
	dir := filepath.Join(commonParentDir(paths), folder)

	results := make([]DispositionResult, 0, len(g.Frames))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		mkErr := fmt.Errorf("mkdir %s: %w: %v", dir, ErrIOFailure, err)
		for _, fr := range g.Frames {
			results = append(results, DispositionResult{Path: fr.Path, Err: mkErr})
		}
		return results
	}

	for _, fr := range g.Frames {
		dest := filepath.Join(dir, fr.Name())
		if err := os.Rename(fr.Path, dest); err != nil {
			logger.Warn().Str("file", fr.Path).Err(err).Msg("disposition move failed")
			results = append(results, DispositionResult{
				Path: fr.Path,
				Err:  fmt.Errorf("move %s: %w: %v", fr.Path, ErrIOFailure, err),
			})
			continue
		}
		results = append(results, DispositionResult{Path: fr.Path, MovedTo: dest})
	}

	logger.Info().Str("folder", dir).Int("files", len(g.Frames)).Msg("input files put away")
	return results
}

// commonParentDir finds the deepest directory containing every path.
func commonParentDir(paths []string) string {
	if len(paths) == 0 {
		return "."
	}

	common := splitPath(filepath.Dir(paths[0]))
	for _, p := range paths[1:] {
		parts := splitPath(filepath.Dir(p))
		n := len(common)
		if len(parts) < n {
			n = len(parts)
		}
		matched := 0
		for i := 0; i < n && common[i] == parts[i]; i++ {
			matched++
		}
		common = common[:matched]
	}

	if len(common) == 0 {
		return string(filepath.Separator)
	}
	return filepath.Join(common...)
}

func splitPath(p string) []string {
	p = filepath.Clean(p)
	parts := strings.Split(p, string(filepath.Separator))
	if filepath.IsAbs(p) {
		// Keep a leading separator so Join rebuilds an absolute path.
		parts[0] = string(filepath.Separator) + parts[0]
	}
	return parts
}
