package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/maxmartens/k2-creek/k2"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "k2-creek.yaml"

// Config represents a k2-creek.yaml configuration file.
// All values are optional. CLI flags always override config values.
type Config struct {
	K2      K2Config      `yaml:"k2"`
	Output  OutputConfig  `yaml:"output"`
	Mirror  MirrorConfig  `yaml:"mirror"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// K2Config locates the K2 card data endpoint.
type K2Config struct {
	Scheme  string   `yaml:"scheme"`
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	Path    string   `yaml:"path"`
	Timeout Duration `yaml:"timeout"`
}

// OutputConfig holds the artifact directory.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// MirrorConfig holds the optional Lode mirror settings.
// The mirror is disabled when Backend is empty.
type MirrorConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Dataset     string `yaml:"dataset"`
	Source      string `yaml:"source"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds the optional notification settings.
// Notification is disabled when Type is empty.
type AdapterConfig struct {
	Type         string            `yaml:"type"`
	URL          string            `yaml:"url"`
	Channel      string            `yaml:"channel,omitempty"`
	Encoding     string            `yaml:"encoding,omitempty"`
	LastEventKey string            `yaml:"last_event_key,omitempty"`
	LastEventTTL Duration          `yaml:"last_event_ttl,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty"`
	Retries      *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills every unset K2 and output field.
func (c *Config) applyDefaults() {
	if c.K2.Scheme == "" {
		c.K2.Scheme = "http"
	}
	if c.K2.Host == "" {
		c.K2.Host = "localhost"
	}
	if c.K2.Port == 0 {
		c.K2.Port = 8089
	}
	if c.K2.Path == "" {
		c.K2.Path = "/k2/public/api/1/carddata"
	}
	if c.Output.Path == "" {
		c.Output.Path = "."
	}
	if c.Mirror.Backend != "" && c.Mirror.Dataset == "" {
		c.Mirror.Dataset = "k2-creek"
	}
}

// Endpoint converts the K2 section to a client config.
func (c *Config) Endpoint() k2.Config {
	return k2.Config{
		Scheme:  c.K2.Scheme,
		Host:    c.K2.Host,
		Port:    c.K2.Port,
		Path:    c.K2.Path,
		Timeout: c.K2.Timeout.Duration,
	}
}

// SetK2URL overrides scheme, host, port and path from a full URL.
// A URL without a port keeps the scheme's default port.
func (c *Config) SetK2URL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid k2 url %q: %w", raw, err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid k2 url %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid k2 url %q: query and fragment are not supported", raw)
	}

	port := 80
	if u.Scheme == "https" {
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid k2 url %q: bad port: %w", raw, err)
		}
	}

	c.K2.Scheme = u.Scheme
	c.K2.Host = u.Hostname()
	c.K2.Port = port
	c.K2.Path = u.EscapedPath()
	return nil
}

// Validate checks the configuration for values the run cannot use.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Endpoint().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Output.Path == "" {
		errs = append(errs, errors.New("output path is required"))
	}

	switch c.Mirror.Backend {
	case "":
	case "fs", "s3":
		if c.Mirror.Path == "" {
			errs = append(errs, fmt.Errorf("mirror path is required for backend %s", c.Mirror.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mirror backend %q (must be fs or s3)", c.Mirror.Backend))
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter url is required for type %s", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter retries must be >= 0, got %d", *c.Adapter.Retries))
	}

	return errors.Join(errs...)
}
