package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/openastro/masterbias/pkg/bias"
)

const longHelp = `Combine astronomical bias frames into master calibration frames.

Candidate files are screened, grouped by geometry and (optionally)
sensor temperature, reduced per pixel with a selectable statistical
algorithm, and written out as 16-bit FITS masters. Input files can be
moved into a dated subfolder afterwards.`

const exampleUsage = `  masterbias --median bias/*.fit
  masterbias --sigma 3.0 --group-size --group-temp 1.0 --min-group 5 --outdir masters bias/*.fit
  masterbias --minmax 2 --move-inputs 'originals-%d-%t' --out master-bias.fit bias/*.fit`

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// flagValues holds every flag locally so a --config file can replace
// the whole Config first, with explicitly-set flags applied on top.
type flagValues struct {
	cfgPath   string
	useMean   bool
	useMedian bool
	minmax    int
	sigma     float64

	groupSize bool
	groupTemp float64
	minGroup  int

	pedestal float64
	biasFile string

	outPath  string
	outDir   string
	template string
	preview  bool

	ignoreType   bool
	ignoreFilter bool
	moveTmpl     string
	workers      int
}

func (fv *flagValues)apply(cfg *bias.Config, changed map[string]bool) {
	switch {
	case changed["mean"] && fv.useMean:
		cfg.Combine.Method = bias.MethodMean
	case changed["median"] && fv.useMedian:
		cfg.Combine.Method = bias.MethodMedian
	case changed["minmax"]:
		cfg.Combine.Method = bias.MethodMinMax
		cfg.Combine.ClipCount = fv.minmax
	case changed["sigma"]:
		cfg.Combine.Method = bias.MethodSigma
		cfg.Combine.SigmaThreshold = fv.sigma
	}

	if changed["group-size"] {
		cfg.Grouping.BySize = fv.groupSize
	}
	if changed["group-temp"] {
		cfg.Grouping.ByTemperature = true
		cfg.Grouping.TemperatureBandwidth = fv.groupTemp
	}
	if changed["min-group"] {
		cfg.Grouping.MinimumGroupSize = fv.minGroup
	}

	if changed["pedestal"] {
		cfg.Precal.Mode = bias.PrecalPedestal
		cfg.Precal.Pedestal = fv.pedestal
	}
	if changed["bias"] {
		cfg.Precal.Mode = bias.PrecalBiasFile
		cfg.Precal.BiasPath = fv.biasFile
	}

	if changed["out"] {
		cfg.Output.Path = fv.outPath
	}
	if changed["outdir"] {
		cfg.Output.Directory = fv.outDir
	}
	if changed["template"] {
		cfg.Output.NameTemplate = fv.template
	}
	if changed["preview"] {
		cfg.Output.PreviewPNG = fv.preview
	}

	if changed["ignore-type"] {
		cfg.IgnoreType = fv.ignoreType
	}
	if changed["ignore-filter"] {
		cfg.IgnoreFilter = fv.ignoreFilter
	}
	if changed["move-inputs"] {
		cfg.Disposition.MoveToSubfolder = true
		if fv.moveTmpl != "" {
			cfg.Disposition.SubfolderName = fv.moveTmpl
		}
	}
	if changed["workers"] {
		cfg.Workers = fv.workers
	}
}

func main() {
	log := bias.Logger()
	var fv flagValues

	root := &cobra.Command{
		Use:     "masterbias [flags] file...",
		Short:   "Combine bias frames into master calibration frames",
		Long:    longHelp,
		Example: exampleUsage,
		Args:    cobra.ArbitraryArgs,
		Version: getVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := bias.NewConfig()
			if fv.cfgPath != "" {
				fc, err := bias.LoadConfig(fv.cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = fc
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			fv.apply(&cfg, changed)

			if err := cfg.Finalize(); err != nil {
				return err
			}
			log.Debug().Str("config", cfg.AsYaml()).Msg("effective configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			outcome, err := bias.Run(ctx, args, cfg)
			if outcome != nil {
				report(outcome)
			}
			if err != nil {
				return err
			}
			if failed := len(outcome.Groups) - outcome.Succeeded(); failed > 0 {
				return fmt.Errorf("%d of %d groups failed", failed, len(outcome.Groups))
			}
			return nil
		},
	}

	f := root.Flags()
	f.StringVar(&fv.cfgPath, "config", "", "YAML config file with run defaults")

	f.BoolVar(&fv.useMean, "mean", false, "combine with a simple mean")
	f.BoolVar(&fv.useMedian, "median", false, "combine with a median")
	f.IntVar(&fv.minmax, "minmax", 2, "combine with a min/max-clipped mean, dropping this many extremes per end")
	f.Float64Var(&fv.sigma, "sigma", 3.0, "combine with a sigma-clipped mean at this threshold")

	f.BoolVar(&fv.groupSize, "group-size", false, "group files by dimensions and binning")
	f.Float64Var(&fv.groupTemp, "group-temp", 1.0, "group files by temperature within this bandwidth, degrees")
	f.IntVar(&fv.minGroup, "min-group", 1, "ignore groups with fewer files than this")

	f.Float64Var(&fv.pedestal, "pedestal", 0, "subtract this pedestal value from every frame before combining")
	f.StringVar(&fv.biasFile, "bias", "", "subtract this bias frame from every frame before combining")

	f.StringVar(&fv.outPath, "out", "", "output file path (single-group runs)")
	f.StringVar(&fv.outDir, "outdir", "", "output directory for per-group masters")
	f.StringVar(&fv.template, "template", "", "output name template; %d date, %t time, %f filter")
	f.BoolVar(&fv.preview, "preview", false, "also write a stretched PNG preview per master")

	f.BoolVar(&fv.ignoreType, "ignore-type", false, "accept frames whose type tag is not Bias")
	f.BoolVar(&fv.ignoreFilter, "ignore-filter", false, "accept frames whose filter differs from the rest")
	f.StringVar(&fv.moveTmpl, "move-inputs", "", "after combining, move input files into this subfolder (tokens as in --template)")
	f.IntVar(&fv.workers, "workers", 0, "parallel group workers, 0 for one per core")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

// report renders the structured outcome on stdout; the core itself
// never prints.
func report(o *bias.RunOutcome) {
	for _, fe := range o.Unreadable {
		fmt.Printf("skipped (unreadable): %s: %v\n", fe.Path, fe.Err)
	}
	for _, fe := range o.Excluded {
		fmt.Printf("excluded: %s: %v\n", fe.Path, fe.Err)
	}
	for _, g := range o.GroupsDropped {
		fmt.Printf("dropped group %s: only %d files\n", g.Key, g.FrameCount)
	}
	for _, g := range o.Groups {
		if g.Err != nil {
			fmt.Printf("group %s (%d files): FAILED: %v\n", g.Key, g.FrameCount, g.Err)
			continue
		}
		fmt.Printf("group %s (%d files) -> %s\n", g.Key, g.FrameCount, g.OutputPath)
		for _, d := range g.Dispositions {
			if d.Err != nil {
				fmt.Printf("  move failed: %s: %v\n", d.Path, d.Err)
			} else {
				fmt.Printf("  moved: %s -> %s\n", d.Path, d.MovedTo)
			}
		}
	}
	fmt.Printf("%d of %d groups combined, %d frames dropped\n",
		o.Succeeded(), len(o.Groups), o.FramesDropped)
}
