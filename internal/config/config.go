package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. APIGW_LOCAL_PORT.
const EnvPrefix = "APIGW_LOCAL"

const (
	LoaderExec     = "exec"
	LoaderRegistry = "registry"
)

// Config holds all configuration for the tool
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	// AdminPort serves /__local/. Zero disables the admin surface.
	AdminPort     int           `mapstructure:"admin_port" validate:"min=0,max=65535"`
	ConfigFile    string        `mapstructure:"config" validate:"required"`
	ServicePath   string        `mapstructure:"service_path"`
	Stage         string        `mapstructure:"stage"`
	Region        string        `mapstructure:"region"`
	Loader        string        `mapstructure:"loader" validate:"oneof=exec registry"`
	Offline       bool          `mapstructure:"offline"`
	FailurePolicy string        `mapstructure:"failure_policy" validate:"oneof=result-wins failure-wins"`
	Log           LogConfig     `mapstructure:"log"`
	Journal       JournalConfig `mapstructure:"journal"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// JournalConfig holds invocation journal configuration. An empty path
// disables the journal.
type JournalConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"host":           "host",
	"port":           "port",
	"admin-port":     "admin_port",
	"config":         "config",
	"service-path":   "service_path",
	"stage":          "stage",
	"region":         "region",
	"loader":         "loader",
	"offline":        "offline",
	"failure-policy": "failure_policy",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"journal":        "journal.path",
	"metrics":        "metrics.enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 3000)
	v.SetDefault("admin_port", 3001)
	v.SetDefault("config", "serverless.yml")
	v.SetDefault("service_path", "")
	v.SetDefault("stage", "")
	v.SetDefault("region", "")
	v.SetDefault("loader", LoaderExec)
	v.SetDefault("offline", true)
	v.SetDefault("failure_policy", "result-wins")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.retention", "24h")
	v.SetDefault("metrics.enabled", true)
}

// Load loads configuration from defaults, a .env file, environment
// variables and the given flags, in increasing precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// resolvePaths makes the service path absolute and resolves a relative
// service description against it.
func (c *Config) resolvePaths() error {
	if c.ServicePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		c.ServicePath = wd
	}

	abs, err := filepath.Abs(c.ServicePath)
	if err != nil {
		return fmt.Errorf("failed to resolve service path: %w", err)
	}
	c.ServicePath = abs

	if c.ConfigFile != "" && !filepath.IsAbs(c.ConfigFile) {
		c.ConfigFile = filepath.Join(c.ServicePath, c.ConfigFile)
	}
	return nil
}

// Validate checks the struct tags and returns readable messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Namespace(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Address returns the gateway listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AdminAddress returns the admin listen address, or "" when disabled.
func (c *Config) AdminAddress() string {
	if c.AdminPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.AdminPort)
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
