package bias

import(
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openastro/masterbias/pkg/fgrid"
	"github.com/openastro/masterbias/pkg/fits"
)

// A FileError records a per-file failure that the run recovered from.
type FileError struct {
	Path string
	Err  error
}

// A GroupResult is the outcome for one group: either the path its
// master was written to, or the error that aborted it. Disposition
// results are attached when input files were put away.
type GroupResult struct {
	Key          GroupKey
	FrameCount   int
	OutputPath   string
	Err          error
	Dispositions []DispositionResult
}

// A RunOutcome is the structured result of one run. Front-ends render
// it; the core never prints.
type RunOutcome struct {
	FilesExamined int
	Unreadable    []FileError // could not be parsed, or missing dimensions
	Excluded      []FileError // rejected by type/filter screening
	Groups        []GroupResult
	GroupsDropped []GroupResult // under the minimum group size; no output attempted
	FramesDropped int
}

// Succeeded counts the groups whose master frame was written.
func (o *RunOutcome)Succeeded() int {
	n := 0
	for _, g := range o.Groups {
		if g.Err == nil {
			n++
		}
	}
	return n
}

// Run is the whole batch combination engine: describe the candidate
// files, screen and group them, then combine each surviving group and
// put its inputs away. Groups are processed by a bounded worker pool,
// each worker owning its group end to end. Cancellation is checked at
// group boundaries only; an in-flight reduction finishes and its
// output is either fully written or not written at all.
//
// The run fails outright only for zero usable inputs (ErrEmptyInput,
// before the filesystem is touched) or when no group survives
// screening and grouping (ErrNoGroupsSurvived). Everything else is
// recorded per-file or per-group in the outcome.
func Run(ctx context.Context, inputFiles []string, cfg Config) (*RunOutcome, error) {
	if cfg.Combine.Reducer == nil {
		if err := (&cfg).Finalize(); err != nil {
			return nil, err
		}
	}

	outcome := &RunOutcome{FilesExamined: len(inputFiles)}
	if len(inputFiles) == 0 {
		return outcome, ErrEmptyInput
	}

	frames := describeAll(inputFiles, outcome)
	frames = screenFrames(frames, cfg, outcome)
	if len(frames) == 0 {
		return outcome, fmt.Errorf("all %d input files rejected: %w", len(inputFiles), ErrEmptyInput)
	}

	groups, droppedGroups := PartitionFrames(frames, cfg.Grouping)
	for _, g := range droppedGroups {
		logger.Info().Str("group", g.Key.String()).Int("frames", len(g.Frames)).
			Msg("group below minimum size, dropped")
		outcome.GroupsDropped = append(outcome.GroupsDropped,
			GroupResult{Key: g.Key, FrameCount: len(g.Frames)})
		outcome.FramesDropped += len(g.Frames)
	}
	if len(groups) == 0 {
		return outcome, ErrNoGroupsSurvived
	}

	precal, err := NewPrecalibrator(cfg.Precal)
	if err != nil {
		return outcome, err
	}
	writer := NewWriter(cfg.Output)

	// One timestamp for the whole run keeps the date/time tokens
	// identical across groups.
	now := time.Now()

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcome.Groups = make([]GroupResult, len(groups))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcome.Groups[i] = GroupResult{Key: g.Key, FrameCount: len(g.Frames), Err: err}
				return err
			}
			outcome.Groups[i] = processGroup(g, cfg, precal, writer, now)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return outcome, err
	}

	return outcome, nil
}

func describeAll(paths []string, outcome *RunOutcome) []*fits.Frame {
	var frames []*fits.Frame
	for _, path := range paths {
		fr, err := fits.Describe(path)
		if err != nil {
			logger.Warn().Str("file", path).Err(err).Msg("skipping unreadable file")
			outcome.Unreadable = append(outcome.Unreadable, FileError{Path: path, Err: err})
			continue
		}
		frames = append(frames, fr)
	}
	return frames
}

// screenFrames drops frames that are not bias frames (unless types are
// ignored) and frames whose filter disagrees with the most common one
// (unless filters are ignored). Exclusions are recorded, never fatal.
func screenFrames(frames []*fits.Frame, cfg Config, outcome *RunOutcome) []*fits.Frame {
	if !cfg.IgnoreType {
		kept := frames[:0]
		for _, fr := range frames {
			if fr.Type != fits.TypeBias {
				outcome.Excluded = append(outcome.Excluded, FileError{
					Path: fr.Path,
					Err:  fmt.Errorf("frame type is %s, not Bias", fr.Type),
				})
				continue
			}
			kept = append(kept, fr)
		}
		frames = kept
	}

	if !cfg.IgnoreFilter && len(frames) > 0 {
		want := mostCommonFilter(frames)
		kept := frames[:0]
		for _, fr := range frames {
			if fr.FilterName != want {
				outcome.Excluded = append(outcome.Excluded, FileError{
					Path: fr.Path,
					Err:  fmt.Errorf("filter %q differs from the set's %q", fr.FilterName, want),
				})
				continue
			}
			kept = append(kept, fr)
		}
		frames = kept
	}

	return frames
}

func processGroup(g *Group, cfg Config, precal *Precalibrator, writer *Writer, now time.Time) GroupResult {
	res := GroupResult{Key: g.Key, FrameCount: len(g.Frames)}
	logger.Info().Str("group", g.Key.String()).Int("frames", len(g.Frames)).Msg("processing group")

	defer func() {
		for _, fr := range g.Frames {
			fr.DropPixels()
		}
	}()

	grids := make([]*fgrid.Grid, 0, len(g.Frames))
	for _, fr := range g.Frames {
		grid, err := fr.Pixels()
		if err != nil {
			res.Err = err
			return res
		}
		if err := precal.Apply(grid); err != nil {
			res.Err = fmt.Errorf("%s: %w", fr.Name(), err)
			return res
		}
		grids = append(grids, grid)
	}

	combined, err := Combine(grids, cfg.Combine)
	if err != nil {
		res.Err = err
		return res
	}

	master := &fits.Master{
		Pixels:         combined,
		Method:         MethodLabel(cfg.Combine.Method),
		Comment:        masterComment(cfg.Combine),
		SourceCount:    len(g.Frames),
		ClipCount:      cfg.Combine.ClipCount,
		SigmaThreshold: cfg.Combine.SigmaThreshold,
		ExposureSec:    g.MeanExposure(),
		Temperature:    g.MeanTemperature(),
		FilterName:     g.MostCommonFilter(),
		Binning:        g.Key.Binning,
	}

	path := resolveOutputPath(g, cfg, now)
	if err := writer.WriteMaster(path, master); err != nil {
		res.Err = err
		return res
	}
	res.OutputPath = path

	res.Dispositions = DisposeGroup(g, cfg.Disposition, now)
	return res
}

func masterComment(cfg CombineConfig) string {
	switch cfg.Method {
	case MethodMinMax:
		return fmt.Sprintf("Master Bias Min/Max Clipped (drop %d) Mean combined", cfg.ClipCount)
	case MethodSigma:
		return fmt.Sprintf("Master Bias Sigma Clipped (threshold %g) Mean combined", cfg.SigmaThreshold)
	}
	return fmt.Sprintf("Master Bias %s combined", MethodLabel(cfg.Method))
}

// resolveOutputPath picks the output location for one group: the
// single explicit path when one was given and grouping is off,
// otherwise a (possibly templated) name under the output directory,
// defaulting to the directory of the group's first input.
func resolveOutputPath(g *Group, cfg Config, now time.Time) string {
	if cfg.Output.Path != "" && !cfg.Grouping.Active() {
		return cfg.Output.Path
	}

	dir := cfg.Output.Directory
	if dir == "" {
		dir = filepath.Dir(g.Frames[0].Path)
	}

	name := ""
	if cfg.Output.NameTemplate != "" {
		name = SubstituteTokens(cfg.Output.NameTemplate, now, g.MostCommonFilter())
	} else {
		name = DefaultMasterName(cfg.Combine.Method, g.Frames[0], now)
	}

	return filepath.Join(dir, name)
}
