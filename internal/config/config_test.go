package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8000" || cfg.Source.Driver != DriverHTTP || cfg.Source.URL != DefaultSourceURL {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	d, err := cfg.SourceTimeout()
	if err != nil || d != time.Minute {
		t.Fatalf("unexpected timeout %v %v", d, err)
	}
}

func TestLoadYAMLKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultsdash.yaml")
	body := "source:\n  driver: fs\n  key: results.csv\nblob:\n  fs_root: /srv/data\nlog:\n  level: dbg\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := load(path, envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Driver != DriverFS || cfg.Source.Key != "results.csv" || cfg.Blob.FSRoot != "/srv/data" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.Addr != ":8000" || cfg.Source.Format != FormatAuto || cfg.Log.Level != "dbg" || !cfg.Metrics.Enabled {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadTOMLKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultsdash.toml")
	body := "addr = \":9090\"\n\n[source]\ndriver = \"s3\"\nkey = \"alevels/results.parquet\"\n\n[blob.s3]\nbucket = \"stats\"\npath_style = true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := load(path, envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Source.Driver != DriverS3 || cfg.Blob.S3.Bucket != "stats" || !cfg.Blob.S3.PathStyle {
		t.Fatalf("toml values not applied: %+v", cfg)
	}
	if cfg.Source.Timeout != "60s" || cfg.Metrics.Path != "/metrics" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultsdash.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := load(path, envMap(nil)); err == nil || !strings.Contains(err.Error(), "unsupported extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil)); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := load("", envMap(map[string]string{
		"PORT":                           "8080",
		"RESULTSDASH_SOURCE_DRIVER":      "sqlite",
		"RESULTSDASH_SOURCE_DSN":         "file:results.db",
		"RESULTSDASH_BLOB_S3_PATH_STYLE": "TRUE",
		"RESULTSDASH_METRICS_ENABLED":    "false",
		"RESULTSDASH_LOG_FORMAT":         "json",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Source.Driver != DriverSQLite || cfg.Source.DSN != "file:results.db" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.Blob.S3.PathStyle || cfg.Metrics.Enabled || cfg.Log.Format != "json" {
		t.Fatalf("env flags not applied: %+v", cfg)
	}
}

func TestEnvAddrWinsOverPort(t *testing.T) {
	cfg, err := load("", envMap(map[string]string{"PORT": "8080", "RESULTSDASH_ADDR": "127.0.0.1:7000"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Fatalf("unexpected addr %s", cfg.Addr)
	}
}

func TestEnvErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"port":    {"PORT": "eighty"},
		"metrics": {"RESULTSDASH_METRICS_ENABLED": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := load("", envMap(env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"unknown driver", func(c *Config) { c.Source.Driver = "ftp" }},
		{"http without url", func(c *Config) { c.Source.URL = "" }},
		{"fs without key", func(c *Config) { c.Source.Driver = DriverFS }},
		{"s3 without bucket", func(c *Config) { c.Source.Driver = DriverS3; c.Source.Key = "k" }},
		{"sqlite without dsn", func(c *Config) { c.Source.Driver = DriverSQLite }},
		{"unknown format", func(c *Config) { c.Source.Format = "xlsx" }},
		{"bad timeout", func(c *Config) { c.Source.Timeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Source.Timeout = "-1s" }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"memory driver", func(c *Config) { c.Source.Driver = "memory"; c.Source.Key = "results.csv" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	cfg := Default()
	cfg.Source.Driver = DriverPostgres
	if err := cfg.Validate(); err != nil {
		t.Fatalf("postgres falls back to the default dsn: %v", err)
	}
}

func TestValidateMetricsPath(t *testing.T) {
	cases := map[string]bool{
		"/metrics":            true,
		"/internal/metrics/":  true,
		"/api":                true,
		"/":                   false,
		"//":                  false,
		"/healthz":            false,
		"/healthz/":           false,
		"/api/":               false,
		"/api/v1/":            false,
		"/api/v1/summary":     false,
		"/api/v1/timeseries/": false,
		"/metrics/{id}":       false,
		"/my metrics":         false,
		"GET /metrics":        false,
	}
	for path, ok := range cases {
		t.Run(path, func(t *testing.T) {
			cfg := Default()
			cfg.Metrics.Path = path
			if err := cfg.Validate(); (err == nil) != ok {
				t.Fatalf("metrics.path %q: valid=%v, got err %v", path, ok, err)
			}
		})
	}

	cfg := Default()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Path = "/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled metrics path is not checked: %v", err)
	}
}

func TestEnvMetricsPathValidated(t *testing.T) {
	if _, err := load("", envMap(map[string]string{"RESULTSDASH_METRICS_PATH": "/"})); err == nil {
		t.Fatalf("expected root metrics path to be rejected")
	}
}
