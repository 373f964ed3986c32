// Package logging configures the process-wide structlog defaults.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/powerman/structlog"

	"resultsdash/internal/config"
)

// The key layout can only be set before DefaultLogger first logs.
func init() {
	structlog.DefaultLogger.
		SetPrefixKeys(
			structlog.KeyApp, structlog.KeyPID, structlog.KeyLevel, structlog.KeyUnit, structlog.KeyTime,
		).
		SetDefaultKeyvals(
			structlog.KeyApp, filepath.Base(os.Args[0]),
			structlog.KeySource, structlog.Auto,
		).
		SetSuffixKeys(structlog.KeySource, structlog.KeyStack).
		SetKeysFormat(map[string]string{
			structlog.KeyTime:   " %[2]s",
			structlog.KeySource: " %6[2]s",
			structlog.KeyUnit:   " %6[2]s",
		}).
		SetTimeFormat("15:04:05.000")
}

// Configure applies level and format to structlog.DefaultLogger and may be
// called any number of times. Loggers created afterwards inherit the settings.
// A nil w keeps the current output.
func Configure(cfg config.Log, w io.Writer) {
	l := structlog.DefaultLogger.SetLogLevel(structlog.ParseLevel(cfg.Level))
	if cfg.Format == "json" {
		l.SetLogFormat(structlog.JSON)
	} else {
		l.SetLogFormat(structlog.Text)
	}
	if w != nil {
		l.SetOutput(w)
	}
}

// New returns a logger tagged with unit.
func New(unit string) *structlog.Logger {
	return structlog.New(structlog.KeyUnit, unit)
}
