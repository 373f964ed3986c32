// Package config loads service configuration from an optional YAML or TOML
// file, then applies RESULTSDASH_* environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ansel1/merry"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// DefaultSourceURL is the Explore Education Statistics A-level results file.
const DefaultSourceURL = "https://explore-education-statistics.service.gov.uk/data-catalogue/data-set/45add44a-3cfd-4616-b108-e1f94792ef16/csv"

// Source drivers.
const (
	DriverHTTP     = "http"
	DriverFS       = "fs"
	DriverS3       = "s3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Source formats for byte-oriented drivers.
const (
	FormatAuto    = "auto"
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Config is the complete service configuration.
type Config struct {
	Addr    string  `yaml:"addr"`
	Source  Source  `yaml:"source"`
	Blob    Blob    `yaml:"blob"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Source describes where the results table is fetched from.
type Source struct {
	Driver  string `yaml:"driver"`
	URL     string `yaml:"url"`
	Key     string `yaml:"key"`
	Format  string `yaml:"format"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Timeout string `yaml:"timeout"`
}

// Blob configures the object store used by the fs, memory and s3 drivers.
type Blob struct {
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 holds S3 / MinIO settings. Credentials fall back to the default AWS chain.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Log configures structlog output.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file or environment is provided.
func Default() Config {
	return Config{
		Addr: ":8000",
		Source: Source{
			Driver:  DriverHTTP,
			URL:     DefaultSourceURL,
			Format:  FormatAuto,
			Table:   "alevel_results",
			Timeout: "60s",
		},
		Blob: Blob{FSRoot: "./data"},
		Log:  Log{Level: "inf", Format: "text"},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and validates.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return merry.Prepend(err, "read config")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".toml":
		// Round-trip through YAML so keys absent from the file keep their defaults.
		var tree *toml.Tree
		if tree, err = toml.LoadBytes(b); err == nil {
			var y []byte
			if y, err = yaml.Marshal(tree.ToMap()); err == nil {
				err = yaml.Unmarshal(y, cfg)
			}
		}
	default:
		return merry.Errorf("config %s: unsupported extension (want .yaml, .yml or .toml)", path)
	}
	if err != nil {
		return merry.Prependf(err, "decode config %s", path)
	}
	return nil
}

// applyEnv overlays RESULTSDASH_* variables. PORT is honoured for hosting
// platforms that only hand out a port number.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return merry.Errorf("PORT %q is not a number", port)
		}
		cfg.Addr = ":" + port
	}
	str("RESULTSDASH_ADDR", &cfg.Addr)
	str("RESULTSDASH_SOURCE_DRIVER", &cfg.Source.Driver)
	str("RESULTSDASH_SOURCE_URL", &cfg.Source.URL)
	str("RESULTSDASH_SOURCE_KEY", &cfg.Source.Key)
	str("RESULTSDASH_SOURCE_FORMAT", &cfg.Source.Format)
	str("RESULTSDASH_SOURCE_DSN", &cfg.Source.DSN)
	str("RESULTSDASH_SOURCE_TABLE", &cfg.Source.Table)
	str("RESULTSDASH_SOURCE_TIMEOUT", &cfg.Source.Timeout)
	str("RESULTSDASH_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("RESULTSDASH_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("RESULTSDASH_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("RESULTSDASH_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("RESULTSDASH_LOG_LEVEL", &cfg.Log.Level)
	str("RESULTSDASH_LOG_FORMAT", &cfg.Log.Format)
	str("RESULTSDASH_METRICS_PATH", &cfg.Metrics.Path)
	if v := strings.TrimSpace(getenv("RESULTSDASH_BLOB_S3_PATH_STYLE")); v != "" {
		cfg.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(getenv("RESULTSDASH_METRICS_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return merry.Errorf("RESULTSDASH_METRICS_ENABLED %q is not a boolean", v)
		}
		cfg.Metrics.Enabled = enabled
	}
	return nil
}

// Validate rejects unknown drivers and formats and missing driver settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return merry.New("addr required")
	}
	switch c.Source.Driver {
	case DriverHTTP:
		if c.Source.URL == "" {
			return merry.New("source.url required for http driver")
		}
	case DriverFS:
		if c.Source.Key == "" {
			return merry.New("source.key required for fs driver")
		}
	case DriverS3:
		if c.Source.Key == "" {
			return merry.New("source.key required for s3 driver")
		}
		if c.Blob.S3.Bucket == "" {
			return merry.New("blob.s3.bucket required for s3 driver")
		}
	case DriverSQLite:
		if c.Source.DSN == "" {
			return merry.New("source.dsn required for sqlite driver")
		}
	case DriverPostgres:
	default:
		return merry.Errorf("unknown source driver %q", c.Source.Driver)
	}
	switch c.Source.Format {
	case FormatAuto, FormatCSV, FormatParquet:
	default:
		return merry.Errorf("unknown source format %q", c.Source.Format)
	}
	if _, err := c.SourceTimeout(); err != nil {
		return err
	}
	switch c.Log.Level {
	case "err", "wrn", "inf", "dbg":
	default:
		return merry.Errorf("unknown log level %q (want err, wrn, inf or dbg)", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return merry.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	if c.Metrics.Enabled {
		if err := checkMetricsPath(c.Metrics.Path); err != nil {
			return err
		}
	}
	return nil
}

// dashboardRoutes are served by the dashboard handler, which also accepts
// them with a trailing slash.
var dashboardRoutes = []string{"/healthz", "/api/v1/options", "/api/v1/summary", "/api/v1/timeseries"}

// checkMetricsPath rejects paths the HTTP mux cannot register next to the
// dashboard: the root, a dashboard route, or a subtree containing one.
func checkMetricsPath(p string) error {
	if !strings.HasPrefix(p, "/") || strings.ContainsAny(p, " \t{}") {
		return merry.Errorf("metrics.path %q must be a plain path starting with /", p)
	}
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return merry.Errorf("metrics.path %q would shadow the dashboard", p)
	}
	for _, route := range dashboardRoutes {
		if trimmed == route || (strings.HasSuffix(p, "/") && strings.HasPrefix(route, p)) {
			return merry.Errorf("metrics.path %q overlaps dashboard route %s", p, route)
		}
	}
	return nil
}

// SourceTimeout parses Source.Timeout; empty means no limit.
func (c Config) SourceTimeout() (time.Duration, error) {
	if c.Source.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 0, merry.Prependf(err, "source.timeout %q", c.Source.Timeout)
	}
	if d < 0 {
		return 0, merry.Errorf("source.timeout %q must not be negative", c.Source.Timeout)
	}
	return d, nil
}
