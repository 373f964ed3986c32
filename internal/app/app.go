// Package app wires configuration, the source loader and dataset preparation
// shared by the service and the report CLI.
package app

import (
	"context"
	"time"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"

	"resultsdash/internal/config"
	"resultsdash/internal/dataset"
	"resultsdash/internal/source"
)

// LoadDataset fetches the configured source once and prepares it. Any error
// is startup-fatal for the caller.
func LoadDataset(ctx context.Context, cfg config.Config, log *structlog.Logger) (*dataset.Dataset, error) {
	timeout, err := cfg.SourceTimeout()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	loader, err := source.Open(ctx, cfg, dataset.RequiredColumns())
	if err != nil {
		return nil, merry.Prepend(err, "open source")
	}
	defer log.ErrIfFail(loader.Close)

	started := time.Now()
	log.Debug("loading dataset", "from", loader.Describe())
	table, err := loader.Load(ctx)
	if err != nil {
		return nil, merry.Prependf(err, "load %s", loader.Describe())
	}
	ds, err := dataset.Prepare(table)
	if err != nil {
		return nil, merry.Prependf(err, "prepare %s", loader.Describe())
	}
	log.Info("dataset loaded",
		"from", loader.Describe(),
		"rows", ds.Len(),
		"subjects", len(ds.Subjects()),
		"years", len(ds.Years()),
		"took", time.Since(started).Round(time.Millisecond),
	)
	return ds, nil
}
