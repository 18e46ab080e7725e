// Package config loads the runtime configuration from a JSON or YAML file
// with environment-variable overrides (prefix CRMGEN).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jinzhu/configor"

	"crmgen/catalog"
	"crmgen/logging"
)

// Duration is a time.Duration that unmarshals from the "15s" string form used
// in config files, alongside plain nanosecond numbers.
type Duration time.Duration

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON renders the duration in its string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a duration string or a nanosecond number.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

// UnmarshalYAML accepts the same forms from YAML sources, including the
// default struct tags configor applies through YAML.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	case int:
		*d = Duration(time.Duration(v))
	case int64:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("config: invalid duration value %v (%T)", raw, raw)
	}
	return nil
}

// AdapterConfig carries the websocket session parameters for the CRM adapter.
type AdapterConfig struct {
	URL         string   `json:"url" yaml:"url" default:"ws://127.0.0.1:8190/ws"`
	DialTimeout Duration `json:"dialTimeout" yaml:"dialTimeout" default:"5s"`
	CallTimeout Duration `json:"callTimeout" yaml:"callTimeout" default:"15s"`
}

// CatalogConfig names the entity definition files to load, in override order.
type CatalogConfig struct {
	Paths []string `json:"paths" yaml:"paths"`
}

// LoggingConfig mirrors logging.Config in file-friendly form.
type LoggingConfig struct {
	Sinks            []string `json:"sinks" yaml:"sinks"`
	BufferSize       int      `json:"bufferSize" yaml:"bufferSize" default:"512"`
	MinimumSeverity  string   `json:"minimumSeverity" yaml:"minimumSeverity" default:"info"`
	JSONFilePath     string   `json:"jsonFilePath" yaml:"jsonFilePath"`
	UseColor         bool     `json:"useColor" yaml:"useColor"`
	DropWarnInterval Duration `json:"dropWarnInterval" yaml:"dropWarnInterval" default:"5s"`
}

// Config is the root runtime configuration.
type Config struct {
	Adapter AdapterConfig `json:"adapter" yaml:"adapter"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// Load reads the configuration file at path. An empty path yields the
// defaults. Environment variables prefixed with CRMGEN override file values.
func Load(path string) (Config, error) {
	var cfg Config
	loader := configor.New(&configor.Config{ENVPrefix: "CRMGEN"})
	var err error
	if path == "" {
		err = loader.Load(&cfg)
	} else {
		// configor only logs when a named file is absent; a path the caller
		// asked for must exist.
		if _, statErr := os.Stat(path); statErr != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, statErr)
		}
		err = loader.Load(&cfg, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if len(cfg.Catalog.Paths) == 0 {
		cfg.Catalog.Paths = catalog.DefaultPaths()
	}
	if len(cfg.Logging.Sinks) == 0 {
		cfg.Logging.Sinks = []string{"console"}
	}
	return cfg, nil
}

// LoggingConfig converts the file form into the router configuration.
func (c Config) LoggingConfig() (logging.Config, error) {
	severity, err := parseSeverity(c.Logging.MinimumSeverity)
	if err != nil {
		return logging.Config{}, err
	}
	out := logging.DefaultConfig()
	out.EnabledSinks = append([]string(nil), c.Logging.Sinks...)
	out.MinimumSeverity = severity
	if c.Logging.BufferSize > 0 {
		out.BufferSize = c.Logging.BufferSize
	}
	if c.Logging.DropWarnInterval > 0 {
		out.DropWarnInterval = c.Logging.DropWarnInterval.Std()
	}
	out.JSON.FilePath = c.Logging.JSONFilePath
	out.Console.UseColor = c.Logging.UseColor
	return out, nil
}

func parseSeverity(name string) (logging.Severity, error) {
	switch name {
	case "", "info":
		return logging.SeverityInfo, nil
	case "debug":
		return logging.SeverityDebug, nil
	case "warn":
		return logging.SeverityWarn, nil
	case "error":
		return logging.SeverityError, nil
	default:
		return 0, fmt.Errorf("config: unknown severity %q", name)
	}
}
