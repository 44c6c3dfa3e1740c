// Package config loads and validates the engine's YAML configuration. A bad
// configuration is fatal at startup: every field is checked before any model
// is built, and the frozen configuration is stored with each run.
package config

// #region imports
import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sszproject/ssz-validation/go-engine/internal/metric"
	"github.com/sszproject/ssz-validation/go-engine/internal/stats"
)

// #endregion

// #region error
// Error reports an invalid configuration field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// #endregion error

// #region config
// Config is the full engine configuration.
type Config struct {
	Precision struct {
		// Digits is the decimal precision of the redshift kernel.
		Digits int `yaml:"digits"`
	} `yaml:"precision"`

	Model struct {
		Calibration   metric.Calibration `yaml:"calibration"`
		Saturation    metric.Saturation  `yaml:"saturation"`
		InteriorBlend bool               `yaml:"interior_blend"`
		BlendWidth    float64            `yaml:"blend_width"`
	} `yaml:"model"`

	Rootfind struct {
		Tolerance     float64 `yaml:"tolerance"`
		MaxIterations int     `yaml:"max_iterations"`
	} `yaml:"rootfind"`

	Geodesic struct {
		RelTol          float64 `yaml:"rel_tol"`
		MaxSubdivisions int     `yaml:"max_subdivisions"`
		// CrossCheck additionally integrates the deflection angle for each
		// case and degrades it when the quadrature loses confidence.
		CrossCheck bool `yaml:"cross_check"`
	} `yaml:"geodesic"`

	Stats struct {
		Resamples   int               `yaml:"resamples"`
		Seed        int64             `yaml:"seed"`
		Alternative stats.Alternative `yaml:"alternative"`
		Confidence  float64           `yaml:"confidence"`
		// StrataCutoffs are ascending r/r_s band boundaries.
		StrataCutoffs []float64 `yaml:"strata_cutoffs"`
	} `yaml:"stats"`

	Run struct {
		// Workers caps the evaluation pool; zero means one per CPU.
		Workers int `yaml:"workers"`
		// CaseTimeoutMillis bounds each observation's evaluation.
		CaseTimeoutMillis int `yaml:"case_timeout_millis"`
		// CacheSize is the model evaluation LRU capacity.
		CacheSize int `yaml:"cache_size"`
	} `yaml:"run"`

	Paths struct {
		ObservationsDB string `yaml:"observations_db"`
		ResultsDB      string `yaml:"results_db"`
	} `yaml:"paths"`
}

// #endregion config

// #region defaults
// Default returns the configuration used when a field is unset.
func Default() Config {
	var cfg Config
	cfg.Precision.Digits = 50
	cfg.Model.Calibration = metric.Calibration2PN
	cfg.Model.Saturation = metric.SaturationExp
	cfg.Model.BlendWidth = metric.DefaultBlendWidth
	cfg.Rootfind.Tolerance = 1e-12
	cfg.Rootfind.MaxIterations = 200
	cfg.Geodesic.RelTol = 1e-8
	cfg.Geodesic.MaxSubdivisions = 200
	cfg.Stats.Resamples = 2000
	cfg.Stats.Seed = 1
	cfg.Stats.Alternative = stats.TwoSided
	cfg.Stats.Confidence = 0.95
	cfg.Stats.StrataCutoffs = append([]float64(nil), stats.DefaultCutoffs...)
	cfg.Run.CaseTimeoutMillis = 30000
	cfg.Run.CacheSize = 1024
	cfg.Paths.ObservationsDB = "observations.db"
	cfg.Paths.ResultsDB = "results.db"
	return cfg
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Precision.Digits == 0 {
		c.Precision.Digits = def.Precision.Digits
	}
	if c.Model.Calibration == "" {
		c.Model.Calibration = def.Model.Calibration
	}
	if c.Model.Saturation == "" {
		c.Model.Saturation = def.Model.Saturation
	}
	if c.Model.BlendWidth == 0 {
		c.Model.BlendWidth = def.Model.BlendWidth
	}
	if c.Rootfind.Tolerance == 0 {
		c.Rootfind.Tolerance = def.Rootfind.Tolerance
	}
	if c.Rootfind.MaxIterations == 0 {
		c.Rootfind.MaxIterations = def.Rootfind.MaxIterations
	}
	if c.Geodesic.RelTol == 0 {
		c.Geodesic.RelTol = def.Geodesic.RelTol
	}
	if c.Geodesic.MaxSubdivisions == 0 {
		c.Geodesic.MaxSubdivisions = def.Geodesic.MaxSubdivisions
	}
	if c.Stats.Resamples == 0 {
		c.Stats.Resamples = def.Stats.Resamples
	}
	if c.Stats.Seed == 0 {
		c.Stats.Seed = def.Stats.Seed
	}
	if c.Stats.Alternative == "" {
		c.Stats.Alternative = def.Stats.Alternative
	}
	if c.Stats.Confidence == 0 {
		c.Stats.Confidence = def.Stats.Confidence
	}
	if c.Stats.StrataCutoffs == nil {
		c.Stats.StrataCutoffs = def.Stats.StrataCutoffs
	}
	if c.Run.CaseTimeoutMillis == 0 {
		c.Run.CaseTimeoutMillis = def.Run.CaseTimeoutMillis
	}
	if c.Run.CacheSize == 0 {
		c.Run.CacheSize = def.Run.CacheSize
	}
	if c.Paths.ObservationsDB == "" {
		c.Paths.ObservationsDB = def.Paths.ObservationsDB
	}
	if c.Paths.ResultsDB == "" {
		c.Paths.ResultsDB = def.Paths.ResultsDB
	}
}

// #endregion defaults

// #region validate
// Validate checks every field after defaults were applied.
func (c *Config) Validate() error {
	if c.Precision.Digits < 1 || c.Precision.Digits > 1000 {
		return &Error{Field: "precision.digits", Reason: fmt.Sprintf("%d outside [1, 1000]", c.Precision.Digits)}
	}
	switch c.Model.Calibration {
	case metric.Calibration1PN, metric.Calibration2PN:
	default:
		return &Error{Field: "model.calibration", Reason: fmt.Sprintf("unknown value %q", c.Model.Calibration)}
	}
	switch c.Model.Saturation {
	case metric.SaturationExp, metric.SaturationRational:
	default:
		return &Error{Field: "model.saturation", Reason: fmt.Sprintf("unknown value %q", c.Model.Saturation)}
	}
	if c.Model.BlendWidth <= 0 || c.Model.BlendWidth > 1 {
		return &Error{Field: "model.blend_width", Reason: fmt.Sprintf("%g outside (0, 1]", c.Model.BlendWidth)}
	}
	if c.Rootfind.Tolerance <= 0 {
		return &Error{Field: "rootfind.tolerance", Reason: "must be positive"}
	}
	if c.Rootfind.MaxIterations < 1 {
		return &Error{Field: "rootfind.max_iterations", Reason: "must be at least 1"}
	}
	if c.Geodesic.RelTol <= 0 {
		return &Error{Field: "geodesic.rel_tol", Reason: "must be positive"}
	}
	if c.Geodesic.MaxSubdivisions < 1 {
		return &Error{Field: "geodesic.max_subdivisions", Reason: "must be at least 1"}
	}
	if c.Stats.Resamples < 1 {
		return &Error{Field: "stats.resamples", Reason: "must be at least 1"}
	}
	switch c.Stats.Alternative {
	case stats.TwoSided, stats.Greater, stats.Less:
	default:
		return &Error{Field: "stats.alternative", Reason: fmt.Sprintf("unknown value %q", c.Stats.Alternative)}
	}
	if c.Stats.Confidence <= 0 || c.Stats.Confidence >= 1 {
		return &Error{Field: "stats.confidence", Reason: fmt.Sprintf("%g outside (0, 1)", c.Stats.Confidence)}
	}
	for i := 1; i < len(c.Stats.StrataCutoffs); i++ {
		if c.Stats.StrataCutoffs[i] <= c.Stats.StrataCutoffs[i-1] {
			return &Error{Field: "stats.strata_cutoffs", Reason: "must be strictly ascending"}
		}
	}
	if len(c.Stats.StrataCutoffs) > 0 && c.Stats.StrataCutoffs[0] <= 0 {
		return &Error{Field: "stats.strata_cutoffs", Reason: "cutoffs must be positive"}
	}
	if c.Run.Workers < 0 {
		return &Error{Field: "run.workers", Reason: "must not be negative"}
	}
	if c.Run.CaseTimeoutMillis < 1 {
		return &Error{Field: "run.case_timeout_millis", Reason: "must be at least 1"}
	}
	if c.Run.CacheSize < 1 {
		return &Error{Field: "run.cache_size", Reason: "must be at least 1"}
	}
	if c.Paths.ObservationsDB == "" {
		return &Error{Field: "paths.observations_db", Reason: "is required"}
	}
	if c.Paths.ResultsDB == "" {
		return &Error{Field: "paths.results_db", Reason: "is required"}
	}
	return nil
}

// #endregion validate

// #region load
// Load reads a YAML configuration file, applies defaults and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals YAML configuration bytes, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load
