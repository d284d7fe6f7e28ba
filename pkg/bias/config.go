package bias

import(
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

/* Example config file ...

combine:
  method: sigma
  sigmathreshold: 3.0

grouping:
  bysize: true
  bytemperature: true
  temperaturebandwidth: 1.0
  minimumgroupsize: 5

output:
  directory: /data/masters
  nametemplate: master-bias-%d-%t-%f.fit

disposition:
  movetosubfolder: true
  subfoldername: originals-%d-%t

*/

// Combination method names accepted in config.
const (
	MethodMean   = "mean"
	MethodMedian = "median"
	MethodMinMax = "minmax"
	MethodSigma  = "sigma"
)

// CombineConfig selects the reduction algorithm and its parameters.
type CombineConfig struct {
	Method         string  `yaml:"method"`
	ClipCount      int     `yaml:"clipcount"`      // minmax: values dropped per extreme
	SigmaThreshold float64 `yaml:"sigmathreshold"` // sigma: rejection threshold

	// Derived by Finalize
	Reducer ReducerFunc `yaml:"-"`
}

// GroupingConfig controls how candidate frames are partitioned.
type GroupingConfig struct {
	BySize               bool    `yaml:"bysize"`
	ByTemperature        bool    `yaml:"bytemperature"`
	TemperatureBandwidth float64 `yaml:"temperaturebandwidth"` // degrees
	MinimumGroupSize     int     `yaml:"minimumgroupsize"`
}

func (g GroupingConfig)Active() bool { return g.BySize || g.ByTemperature }

// Precalibration modes.
const (
	PrecalNone     = "none"
	PrecalPedestal = "pedestal"
	PrecalBiasFile = "biasfile"
)

type PrecalConfig struct {
	Mode     string  `yaml:"mode"`
	Pedestal float64 `yaml:"pedestal"`
	BiasPath string  `yaml:"biaspath"`
}

type OutputConfig struct {
	Path         string `yaml:"path"`         // single-output mode
	Directory    string `yaml:"directory"`    // per-group mode
	NameTemplate string `yaml:"nametemplate"` // %d date, %t time, %f filter; empty uses the default scheme
	PreviewPNG   bool   `yaml:"previewpng"`
}

type DispositionConfig struct {
	MoveToSubfolder bool   `yaml:"movetosubfolder"`
	SubfolderName   string `yaml:"subfoldername"`
}

// Config is the whole immutable configuration for one run. It is
// passed by value into Run and never mutated afterwards.
type Config struct {
	Combine      CombineConfig     `yaml:"combine"`
	Grouping     GroupingConfig    `yaml:"grouping"`
	Precal       PrecalConfig      `yaml:"precalibration"`
	Output       OutputConfig      `yaml:"output"`
	Disposition  DispositionConfig `yaml:"disposition"`
	IgnoreType   bool              `yaml:"ignoretype"`
	IgnoreFilter bool              `yaml:"ignorefilter"`
	Workers      int               `yaml:"workers"` // 0 means GOMAXPROCS
}

func NewConfig() Config {
	return Config{
		Combine: CombineConfig{
			Method:         MethodSigma,
			ClipCount:      2,
			SigmaThreshold: 3.0,
		},
		Grouping: GroupingConfig{
			TemperatureBandwidth: 1.0,
			MinimumGroupSize:     1,
		},
		Precal: PrecalConfig{Mode: PrecalNone},
		Disposition: DispositionConfig{
			SubfolderName: "originals-%d-%t",
		},
	}
}

func LoadConfig(filename string) (Config, error) {
	c := NewConfig()

	contents, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config marshal failed: %v", err)
	}
	return string(b)
}

// Finalize does sanity checks and resolves the combination method name
// to its reducer.
func (c *Config)Finalize() error {
	if c.Combine.Method == "" {
		c.Combine.Method = MethodSigma
	}
	c.Combine.Method = strings.ToLower(c.Combine.Method)

	switch c.Combine.Method {
	case MethodMean:   c.Combine.Reducer = ReduceMean
	case MethodMedian: c.Combine.Reducer = ReduceMedian
	case MethodMinMax: c.Combine.Reducer = ReduceMinMaxClip
	case MethodSigma:  c.Combine.Reducer = ReduceSigmaClip
	default:
		return fmt.Errorf("no combination method named '%s'", c.Combine.Method)
	}

	if c.Combine.ClipCount < 0 {
		return fmt.Errorf("minmax clip count must be >= 0, not %d", c.Combine.ClipCount)
	}
	if c.Combine.Method == MethodSigma && c.Combine.SigmaThreshold <= 0 {
		return fmt.Errorf("sigma threshold must be > 0, not %g", c.Combine.SigmaThreshold)
	}

	if c.Grouping.ByTemperature && c.Grouping.TemperatureBandwidth <= 0 {
		return fmt.Errorf("temperature bandwidth must be > 0, not %g", c.Grouping.TemperatureBandwidth)
	}
	if c.Grouping.MinimumGroupSize < 0 {
		return fmt.Errorf("minimum group size must be >= 0, not %d", c.Grouping.MinimumGroupSize)
	}
	if c.Grouping.Active() && c.Output.Directory == "" && c.Output.Path != "" {
		return fmt.Errorf("grouping produces multiple outputs; use an output directory, not a single path")
	}

	switch c.Precal.Mode {
	case "", PrecalNone:
		c.Precal.Mode = PrecalNone
	case PrecalPedestal, PrecalBiasFile:
	default:
		return fmt.Errorf("no precalibration mode named '%s'", c.Precal.Mode)
	}
	if c.Precal.Mode == PrecalBiasFile && c.Precal.BiasPath == "" {
		return fmt.Errorf("precalibration mode %s needs a bias file path", PrecalBiasFile)
	}

	return nil
}
