// Package config loads the analysis pipeline configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Data struct {
		Path        string `yaml:"path"`
		DateColumn  string `yaml:"date_column"`
		ValueColumn string `yaml:"value_column"`
		DateFormat  string `yaml:"date_format"`
	} `yaml:"data"`
	Transform struct {
		BoxCox bool    `yaml:"box_cox"`
		Lambda string  `yaml:"lambda"` // "auto" or a fixed value
		Fixed  float64 `yaml:"-"`
	} `yaml:"transform"`
	Model struct {
		D        int  `yaml:"d"`
		Seasonal bool `yaml:"seasonal"`
		SD       int  `yaml:"seasonal_d"`
		Period   int  `yaml:"period"`
		Search   struct {
			Strategy string `yaml:"strategy"` // "stepwise" or "exhaustive"
			MaxP     int    `yaml:"max_p"`
			MaxQ     int    `yaml:"max_q"`
			MaxSP    int    `yaml:"max_seasonal_p"`
			MaxSQ    int    `yaml:"max_seasonal_q"`
		} `yaml:"search"`
		Fixed []struct {
			P  int `yaml:"p"`
			D  int `yaml:"d"`
			Q  int `yaml:"q"`
			SP int `yaml:"seasonal_p"`
			SD int `yaml:"seasonal_d"`
			SQ int `yaml:"seasonal_q"`
		} `yaml:"fixed_orders"`
	} `yaml:"model"`
	Eval struct {
		TrainFraction float64 `yaml:"train_fraction"`
		Level         float64 `yaml:"confidence_level"`
		LjungBoxLags  int     `yaml:"ljung_box_lags"`
	} `yaml:"eval"`
	Output struct {
		JSONPath string `yaml:"json_path"`
		CSVPath  string `yaml:"csv_path"`
	} `yaml:"output"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file, applying defaults and
// validating required fields.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Data.DateColumn == "" {
		c.Data.DateColumn = "date"
	}
	if c.Data.ValueColumn == "" {
		c.Data.ValueColumn = "value"
	}
	if c.Data.DateFormat == "" {
		c.Data.DateFormat = "2006-01-02"
	}
	if c.Transform.Lambda == "" {
		c.Transform.Lambda = "auto"
	}
	if c.Model.Period == 0 {
		c.Model.Period = 12
	}
	if c.Model.Search.Strategy == "" {
		c.Model.Search.Strategy = "stepwise"
	}
	if c.Model.Search.MaxP == 0 {
		c.Model.Search.MaxP = 5
	}
	if c.Model.Search.MaxQ == 0 {
		c.Model.Search.MaxQ = 5
	}
	if c.Model.Search.MaxSP == 0 {
		c.Model.Search.MaxSP = 2
	}
	if c.Model.Search.MaxSQ == 0 {
		c.Model.Search.MaxSQ = 2
	}
	if c.Eval.TrainFraction == 0 {
		c.Eval.TrainFraction = 0.8
	}
	if c.Eval.Level == 0 {
		c.Eval.Level = 0.80
	}
	if c.Eval.LjungBoxLags == 0 {
		c.Eval.LjungBoxLags = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if c.Transform.Lambda != "auto" {
		if _, err := fmt.Sscanf(c.Transform.Lambda, "%f", &c.Transform.Fixed); err != nil {
			return fmt.Errorf("transform.lambda must be \"auto\" or a number, got %q", c.Transform.Lambda)
		}
	}
	if c.Model.D < 0 || c.Model.D > 2 {
		return fmt.Errorf("model.d must be in [0,2], got %d", c.Model.D)
	}
	if c.Model.SD < 0 || c.Model.SD > 1 {
		return fmt.Errorf("model.seasonal_d must be 0 or 1, got %d", c.Model.SD)
	}
	if c.Model.Seasonal && c.Model.Period < 2 {
		return fmt.Errorf("model.period must be at least 2 for seasonal models, got %d", c.Model.Period)
	}
	switch c.Model.Search.Strategy {
	case "stepwise", "exhaustive":
	default:
		return fmt.Errorf("model.search.strategy must be \"stepwise\" or \"exhaustive\", got %q", c.Model.Search.Strategy)
	}
	if c.Eval.TrainFraction <= 0 || c.Eval.TrainFraction >= 1 {
		return fmt.Errorf("eval.train_fraction must be in (0,1), got %v", c.Eval.TrainFraction)
	}
	if c.Eval.Level <= 0 || c.Eval.Level >= 1 {
		return fmt.Errorf("eval.confidence_level must be in (0,1), got %v", c.Eval.Level)
	}
	if c.Eval.LjungBoxLags < 1 {
		return fmt.Errorf("eval.ljung_box_lags must be positive, got %d", c.Eval.LjungBoxLags)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be \"console\" or \"json\", got %q", c.Log.Format)
	}
	return nil
}

// AutoLambda reports whether the Box-Cox lambda should be estimated from
// the data.
func (c *Config) AutoLambda() bool {
	return c.Transform.Lambda == "auto"
}
