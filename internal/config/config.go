package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/zonemap/internal/geo"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Assign  AssignConfig  `yaml:"assign" mapstructure:"assign"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Preview PreviewConfig `yaml:"preview" mapstructure:"preview"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend. An empty driver disables
// persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Enabled reports whether runs should be persisted.
func (s StoreConfig) Enabled() bool {
	return s.Driver != ""
}

// AssignConfig configures parcel-to-district assignment.
type AssignConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// MapConfig configures choropleth rendering.
type MapConfig struct {
	K        int     `yaml:"k" mapstructure:"k"`
	Colormap string  `yaml:"colormap" mapstructure:"colormap"`
	Output   string  `yaml:"output" mapstructure:"output"`
	WidthIn  float64 `yaml:"width_in" mapstructure:"width_in"`
}

// PreviewConfig configures the terminal preview.
type PreviewConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Width   int  `yaml:"width" mapstructure:"width"`
	Height  int  `yaml:"height" mapstructure:"height"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from zonemap.yaml (optional), ZONEMAP_* env vars
// and defaults, in decreasing precedence: env, file, defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("zonemap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ZONEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("assign.policy", "largest")
	v.SetDefault("map.k", 5)
	v.SetDefault("map.colormap", "Blues")
	v.SetDefault("map.output", "../output/choropleth_map.pdf")
	v.SetDefault("map.width_in", 10.0)
	v.SetDefault("preview.enabled", true)
	v.SetDefault("preview.width", 80)
	v.SetDefault("preview.height", 32)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is "assign",
// "map" or "store".
func (c *Config) Validate(mode string) error {
	var (
		problems []string
		cause    error
	)

	switch mode {
	case "assign":
		if _, err := geo.ParsePolicy(c.Assign.Policy); err != nil {
			cause = err
			problems = append(problems, fmt.Sprintf("assign.policy must be 'largest' or 'first', got %q", c.Assign.Policy))
		}
		problems = append(problems, c.storeProblems()...)
	case "map":
		if c.Map.K <= 0 {
			problems = append(problems, "map.k must be positive")
		}
		if c.Map.WidthIn <= 0 {
			problems = append(problems, "map.width_in must be positive")
		}
		if c.Preview.Enabled && (c.Preview.Width <= 0 || c.Preview.Height <= 0) {
			problems = append(problems, "preview.width and preview.height must be positive")
		}
	case "store":
		if !c.Store.Enabled() {
			problems = append(problems, "store.driver is required")
		}
		problems = append(problems, c.storeProblems()...)
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		msg := "config: " + strings.Join(problems, "; ")
		if cause != nil {
			return eris.Wrap(cause, msg)
		}
		return eris.New(msg)
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "":
		return nil
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("store.driver must be 'postgres' or 'sqlite', got %q", c.Store.Driver)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
