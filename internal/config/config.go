package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

type Config struct {
	Universe       []string             `mapstructure:"universe"`
	Data           DataConfig           `mapstructure:"data"`
	Risk           RiskConfig           `mapstructure:"risk"`
	BlackLitterman BlackLittermanConfig `mapstructure:"black_litterman"`
	Optimizer      OptimizerConfig      `mapstructure:"optimizer"`
	RiskFreeRate   float64              `mapstructure:"risk_free_rate"`
	Output         OutputConfig         `mapstructure:"output"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

// DataConfig selects the price source and the history window.
type DataConfig struct {
	Provider string `mapstructure:"provider"` // "yahoo" or "csv"
	Start    string `mapstructure:"start"`    // YYYY-MM-DD, inclusive
	End      string `mapstructure:"end"`      // YYYY-MM-DD, exclusive
	Interval string `mapstructure:"interval"`
	CSVDir   string `mapstructure:"csv_dir"`
}

// StartTime parses Start.
func (d DataConfig) StartTime() (time.Time, error) {
	return time.Parse(time.DateOnly, d.Start)
}

// EndTime parses End.
func (d DataConfig) EndTime() (time.Time, error) {
	return time.Parse(time.DateOnly, d.End)
}

type RiskConfig struct {
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
	Shrinkage      float64 `mapstructure:"shrinkage"`
}

type BlackLittermanConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	RiskAversion float64           `mapstructure:"risk_aversion"`
	Tau          float64           `mapstructure:"tau"`
	MarketCaps   []MarketCapConfig `mapstructure:"market_caps"`
	Views        []ViewConfig      `mapstructure:"views"`
}

// MarketCapConfig is one ticker's capitalisation. Tickers contain dots, so
// they cannot be viper map keys.
type MarketCapConfig struct {
	Asset string  `mapstructure:"asset"`
	Cap   float64 `mapstructure:"cap"`
}

// Caps returns the market capitalisations keyed by ticker.
func (b BlackLittermanConfig) Caps() map[string]float64 {
	caps := make(map[string]float64, len(b.MarketCaps))
	for _, mc := range b.MarketCaps {
		caps[mc.Asset] = mc.Cap
	}
	return caps
}

// ViewConfig is one investor view. Relative views name the outperformed
// asset in Over.
type ViewConfig struct {
	Kind   string  `mapstructure:"kind"`
	Asset  string  `mapstructure:"asset"`
	Over   string  `mapstructure:"over"`
	Return float64 `mapstructure:"return"`
}

type OptimizerConfig struct {
	MinWeight      float64 `mapstructure:"min_weight"`
	MaxWeight      float64 `mapstructure:"max_weight"`
	FrontierPoints int     `mapstructure:"frontier_points"`
	MaxIterations  int     `mapstructure:"max_iterations"`
	Tolerance      float64 `mapstructure:"tolerance"`
	Workers        int     `mapstructure:"workers"` // 0 = GOMAXPROCS
}

// OutputConfig selects where published runs go.
type OutputConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from file on top of Defaults. A .env file in the
// working directory is loaded first so ${VAR} references can use it.
func Load(path string) (*Config, error) {
	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	// collections in the file replace the defaults instead of merging
	if v.IsSet("universe") {
		cfg.Universe = nil
	}
	if v.IsSet("black_litterman.market_caps") {
		cfg.BlackLitterman.MarketCaps = nil
	}
	if v.IsSet("black_litterman.views") {
		cfg.BlackLitterman.Views = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

// Defaults returns the six-stock NSE setup with the two sample views.
func Defaults() *Config {
	return &Config{
		Universe: []string{"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "ICICIBANK.NS", "HINDUNILVR.NS"},
		Data: DataConfig{
			Provider: "yahoo",
			Start:    "2020-01-01",
			End:      "2024-12-31",
			Interval: "1d",
			CSVDir:   "data",
		},
		Risk: RiskConfig{
			PeriodsPerYear: 252,
		},
		BlackLitterman: BlackLittermanConfig{
			Enabled:      false,
			RiskAversion: 2.5,
			Tau:          0.05,
			MarketCaps: []MarketCapConfig{
				{Asset: "RELIANCE.NS", Cap: 1900000},
				{Asset: "TCS.NS", Cap: 1400000},
				{Asset: "HDFCBANK.NS", Cap: 1100000},
				{Asset: "INFY.NS", Cap: 650000},
				{Asset: "ICICIBANK.NS", Cap: 780000},
				{Asset: "HINDUNILVR.NS", Cap: 550000},
			},
			Views: []ViewConfig{
				{Kind: "relative", Asset: "TCS.NS", Over: "INFY.NS", Return: 0.04},
				{Kind: "absolute", Asset: "RELIANCE.NS", Return: 0.15},
			},
		},
		Optimizer: OptimizerConfig{
			MinWeight:      0.05,
			MaxWeight:      0.25,
			FrontierPoints: 100,
			MaxIterations:  5000,
			Tolerance:      1e-9,
		},
		RiskFreeRate: 0.07,
		Output: OutputConfig{
			Type: "localfs",
			Path: "runs",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}

func missing(format string, args ...any) error {
	return core.WrapError(core.ErrConfigMissing, fmt.Errorf(format, args...))
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Universe validation
	if len(c.Universe) == 0 {
		return missing("universe must list at least one asset")
	}
	seen := make(map[string]struct{}, len(c.Universe))
	for _, a := range c.Universe {
		if strings.TrimSpace(a) == "" {
			return invalid("universe contains an empty ticker")
		}
		if _, dup := seen[a]; dup {
			return invalid("duplicate ticker %s in universe", a)
		}
		seen[a] = struct{}{}
	}

	// Data validation
	switch c.Data.Provider {
	case "yahoo":
	case "csv":
		if c.Data.CSVDir == "" {
			return missing("data.csv_dir required when provider is csv")
		}
	default:
		return invalid("unknown data provider %q", c.Data.Provider)
	}
	start, err := c.Data.StartTime()
	if err != nil {
		return invalid("data.start: %v", err)
	}
	end, err := c.Data.EndTime()
	if err != nil {
		return invalid("data.end: %v", err)
	}
	if !start.Before(end) {
		return invalid("data.start %s must be before data.end %s", c.Data.Start, c.Data.End)
	}

	// Risk validation
	if c.Risk.PeriodsPerYear < 0 {
		return invalid("periods_per_year cannot be negative, got %d", c.Risk.PeriodsPerYear)
	}
	if c.Risk.Shrinkage < 0 || c.Risk.Shrinkage > 1 {
		return invalid("shrinkage must be between 0 and 1, got %f", c.Risk.Shrinkage)
	}

	// Black-Litterman validation
	bl := c.BlackLitterman
	if bl.RiskAversion <= 0 {
		return invalid("risk_aversion must be positive, got %f", bl.RiskAversion)
	}
	if bl.Tau <= 0 {
		return invalid("tau must be positive, got %f", bl.Tau)
	}
	for i, mc := range bl.MarketCaps {
		if mc.Asset == "" || !(mc.Cap > 0) {
			return invalid("market cap %d must name an asset and be positive", i)
		}
	}
	if bl.Enabled {
		caps := bl.Caps()
		for _, a := range c.Universe {
			if _, ok := caps[a]; !ok {
				return missing("market cap for %s required when black_litterman is enabled", a)
			}
		}
		if len(bl.Views) == 0 {
			return missing("at least one view required when black_litterman is enabled")
		}
	}
	for i, v := range bl.Views {
		switch v.Kind {
		case "absolute":
			if v.Over != "" {
				return invalid("view %d: absolute view cannot set over", i)
			}
		case "relative":
			if v.Over == "" {
				return invalid("view %d: relative view needs over", i)
			}
		default:
			return invalid("view %d: kind must be absolute or relative, got %q", i, v.Kind)
		}
	}

	// Optimizer validation
	o := c.Optimizer
	if o.MinWeight < 0 || o.MaxWeight <= 0 || o.MinWeight > o.MaxWeight {
		return invalid("weight bounds [%g, %g] are invalid", o.MinWeight, o.MaxWeight)
	}
	if o.FrontierPoints < 1 {
		return invalid("frontier_points must be at least 1, got %d", o.FrontierPoints)
	}
	if o.MaxIterations < 0 || o.Tolerance < 0 || o.Workers < 0 {
		return invalid("optimizer max_iterations, tolerance and workers cannot be negative")
	}

	// Output validation
	switch c.Output.Type {
	case "":
	case "localfs":
		if c.Output.Path == "" {
			return missing("output.path required for localfs output")
		}
	case "s3":
		if c.Output.S3.Bucket == "" {
			return missing("output.s3.bucket required for s3 output")
		}
	default:
		return invalid("unknown output type %q", c.Output.Type)
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return missing("metrics.textfile required when metrics are enabled")
	}

	return nil
}
