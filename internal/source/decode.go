package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/segmentio/parquet-go"

	"resultsdash/internal/config"
)

// resolveFormat maps "auto" to a concrete format using the name's extension.
// Names without a recognised extension (the EES download URL ends in /csv)
// decode as CSV.
func resolveFormat(format, name string) string {
	if format != "" && format != config.FormatAuto {
		return format
	}
	if strings.EqualFold(path.Ext(name), ".parquet") {
		return config.FormatParquet
	}
	return config.FormatCSV
}

// Decode parses data in the given concrete format.
func Decode(format string, data []byte) (Table, error) {
	switch format {
	case config.FormatCSV:
		return DecodeCSV(bytes.NewReader(data))
	case config.FormatParquet:
		return DecodeParquet(data)
	default:
		return Table{}, fmt.Errorf("unsupported source format %q", format)
	}
}

// DecodeCSV reads a header row followed by data rows. Header names and cells
// are trimmed; a leading UTF-8 byte order mark is dropped.
func DecodeCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("csv source is empty")
	}
	if err != nil {
		return Table{}, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv row: %w", err)
		}
		rec := make(Record, len(columns))
		for i, val := range row {
			rec[columns[i]] = strings.TrimSpace(val)
		}
		records = append(records, rec)
	}
	return Table{Columns: columns, Records: records}, nil
}

// DecodeParquet reads every row of a Parquet file held in memory. Cells are
// stringified so the preparer applies the same coercion rules as for CSV.
func DecodeParquet(data []byte) (Table, error) {
	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Table{}, fmt.Errorf("open parquet: %w", err)
	}
	fields := pqFile.Schema().Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
	}

	reader := parquet.NewReader(pqFile)
	defer func() { _ = reader.Close() }()

	var records []Record
	for {
		row := make(map[string]interface{})
		if err := reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Table{}, fmt.Errorf("read parquet row: %w", err)
		}
		rec := make(Record, len(columns))
		for _, c := range columns {
			rec[c] = strings.TrimSpace(formatCell(row[c]))
		}
		records = append(records, rec)
	}
	return Table{Columns: columns, Records: records}, nil
}
