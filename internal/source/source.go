// Package source fetches the raw results table exactly once at startup. The
// table can come from an HTTP URL, a blob store key (fs, s3) or a SQL
// table (sqlite, postgres); byte-oriented sources are decoded as CSV or Parquet.
package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"resultsdash/internal/blob"
	"resultsdash/internal/config"
	"resultsdash/internal/dataset"
)

// Record and Table alias the dataset types so loaders hand their output
// straight to dataset.Prepare.
type (
	Record = dataset.Record
	Table  = dataset.Table
)

// Loader fetches the source table.
type Loader interface {
	Load(ctx context.Context) (Table, error)
	// Describe names the source for logs.
	Describe() string
	Close() error
}

// Open builds the Loader for cfg.Source. columns lists the columns SQL
// drivers select; byte-oriented drivers return every column in the file.
func Open(ctx context.Context, cfg config.Config, columns []string) (Loader, error) {
	src := cfg.Source
	switch src.Driver {
	case config.DriverHTTP:
		return NewHTTPLoader(src.URL, src.Format, nil), nil
	case config.DriverFS, config.DriverS3:
		store, err := blob.Open(ctx, src.Driver, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return NewBlobLoader(store, src.Key, src.Format), nil
	case config.DriverSQLite, config.DriverPostgres:
		return OpenSQL(ctx, src.Driver, src.DSN, src.Table, columns)
	default:
		return nil, fmt.Errorf("unknown source driver %q", src.Driver)
	}
}

// formatCell renders a decoded scalar the way it would appear in a CSV export.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
