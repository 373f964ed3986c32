package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"resultsdash/internal/config"
)

const defaultPostgresDSN = "postgres://localhost/resultsdash?sslmode=disable"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// sqlOpen is swapped in tests.
var sqlOpen = sqlx.Open

// SQLLoader selects the required columns from a single table.
type SQLLoader struct {
	db      *sqlx.DB
	driver  string
	table   string
	columns []string
}

// OpenSQL connects to a sqlite or postgres database and verifies the connection.
// An empty postgres DSN falls back to a local default.
func OpenSQL(ctx context.Context, driver, dsn, table string, columns []string) (*SQLLoader, error) {
	var driverName string
	switch driver {
	case config.DriverSQLite:
		driverName = "sqlite"
	case config.DriverPostgres:
		driverName = "pgx"
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns to select")
	}
	for _, c := range columns {
		if !identPattern.MatchString(c) {
			return nil, fmt.Errorf("invalid column name %q", c)
		}
	}
	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &SQLLoader{db: db, driver: driver, table: table, columns: columns}, nil
}

// Load reads every row in storage order. NULL cells become empty strings.
func (l *SQLLoader) Load(ctx context.Context) (Table, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(l.columns, ", "), l.table)
	rows, err := l.db.QueryxContext(ctx, query)
	if err != nil {
		return Table{}, fmt.Errorf("select from %s: %w", l.table, err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return Table{}, fmt.Errorf("scan %s: %w", l.table, err)
		}
		rec := make(Record, len(l.columns))
		for i, c := range l.columns {
			rec[c] = strings.TrimSpace(formatCell(vals[i]))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("iterate %s: %w", l.table, err)
	}
	cols := make([]string, len(l.columns))
	copy(cols, l.columns)
	return Table{Columns: cols, Records: records}, nil
}

// Describe implements Loader.
func (l *SQLLoader) Describe() string { return l.driver + " table " + l.table }

// Close releases the connection pool.
func (l *SQLLoader) Close() error { return l.db.Close() }
