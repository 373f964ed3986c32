// Package dataset turns the raw results table into immutable typed rows.
// Preparation runs once at startup; the resulting Dataset is shared read-only.
package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ansel1/merry"
)

// Source column names.
const (
	ColumnSubject        = "subject_name"
	ColumnCharacteristic = "characteristic_value"
	ColumnTimePeriod     = "time_period"
	ColumnEntryCount     = "entry_count"
)

// DefaultCharacteristic is the aggregate cohort selected when none is given.
const DefaultCharacteristic = "All Students"

// RequiredColumns lists every column Prepare reads, in a stable order.
func RequiredColumns() []string {
	cols := []string{ColumnTimePeriod, ColumnSubject, ColumnCharacteristic, ColumnEntryCount}
	for _, b := range Bands() {
		cols = append(cols, b.PercentageColumn())
	}
	return cols
}

// Row is one prepared examination result record.
type Row struct {
	Subject             string
	Characteristic      string
	TimePeriod          string
	FormattedTimePeriod string
	StartYear           int
	EntryCount          int64
	Percentages         [NumBands]Measure
	Absolutes           [NumBands]Measure
}

// Percentage returns the band percentage.
func (r Row) Percentage(b GradeBand) Measure { return r.Percentages[b] }

// Absolute returns the estimated count for the band.
func (r Row) Absolute(b GradeBand) Measure { return r.Absolutes[b] }

// Defaults are the filter values applied when a caller leaves a field unset.
type Defaults struct {
	StartYear      int      `json:"start_year"`
	EndYear        int      `json:"end_year"`
	Characteristic string   `json:"characteristic"`
	Subjects       []string `json:"subjects"`
}

// Dataset is the prepared, read-only row set.
type Dataset struct {
	rows            []Row
	years           []int
	subjects        []string
	characteristics []string
}

// Prepare validates the table and derives typed rows. Missing columns, a
// malformed time_period or a non-integer entry_count are errors; a
// non-numeric percentage becomes a missing value.
func Prepare(table Table) (*Dataset, error) {
	var missing []string
	for _, col := range RequiredColumns() {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, merry.Errorf("source is missing required columns: %s", strings.Join(missing, ", "))
	}

	ds := &Dataset{rows: make([]Row, 0, len(table.Records))}
	seenYear := map[int]bool{}
	seenSubject := map[string]bool{}
	seenCharacteristic := map[string]bool{}
	for i, rec := range table.Records {
		row, err := prepareRow(rec)
		if err != nil {
			return nil, merry.Prependf(err, "row %d", i+1)
		}
		ds.rows = append(ds.rows, row)
		if !seenYear[row.StartYear] {
			seenYear[row.StartYear] = true
			ds.years = append(ds.years, row.StartYear)
		}
		if !seenSubject[row.Subject] {
			seenSubject[row.Subject] = true
			ds.subjects = append(ds.subjects, row.Subject)
		}
		if !seenCharacteristic[row.Characteristic] {
			seenCharacteristic[row.Characteristic] = true
			ds.characteristics = append(ds.characteristics, row.Characteristic)
		}
	}
	sort.Ints(ds.years)
	return ds, nil
}

func prepareRow(rec Record) (Row, error) {
	period := strings.TrimSpace(rec[ColumnTimePeriod])
	year, err := parseStartYear(period)
	if err != nil {
		return Row{}, err
	}
	entries, err := parseEntryCount(rec[ColumnEntryCount])
	if err != nil {
		return Row{}, err
	}
	row := Row{
		Subject:             rec[ColumnSubject],
		Characteristic:      rec[ColumnCharacteristic],
		TimePeriod:          period,
		FormattedTimePeriod: period[:4] + "/" + period[4:],
		StartYear:           year,
		EntryCount:          entries,
	}
	for _, b := range Bands() {
		perc := parsePercentage(rec[b.PercentageColumn()])
		row.Percentages[b] = perc
		if perc.Valid {
			row.Absolutes[b] = Some(perc.Value / 100 * float64(entries))
		}
	}
	return row, nil
}

func parseStartYear(period string) (int, error) {
	if len(period) < 4 {
		return 0, merry.Errorf("time_period %q is shorter than four characters", period)
	}
	for _, c := range period[:4] {
		if c < '0' || c > '9' {
			return 0, merry.Errorf("time_period %q does not start with a year", period)
		}
	}
	year, err := strconv.Atoi(period[:4])
	if err != nil {
		return 0, merry.Prependf(err, "time_period %q", period)
	}
	return year, nil
}

// parseEntryCount accepts integers and floats with no fractional part ("120.0").
func parseEntryCount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, merry.Errorf("entry_count %q is not an integer", raw)
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, merry.Errorf("entry_count %d is negative", n)
	}
	return n, nil
}

func parsePercentage(raw string) Measure {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Measure{}
	}
	return Some(f)
}

// Len is the number of prepared rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Rows exposes the prepared rows in source order. Callers must not modify
// the returned slice.
func (d *Dataset) Rows() []Row { return d.rows }

// Row returns the i-th row by value.
func (d *Dataset) Row(i int) Row { return d.rows[i] }

// Years returns the distinct start years in ascending order.
func (d *Dataset) Years() []int { return append([]int{}, d.years...) }

// Subjects returns the distinct subjects in first-seen order.
func (d *Dataset) Subjects() []string { return append([]string{}, d.subjects...) }

// Characteristics returns the distinct characteristics in first-seen order.
func (d *Dataset) Characteristics() []string {
	return append([]string{}, d.characteristics...)
}

// Defaults spans the full year range for the aggregate cohort and the first
// subject in the source.
func (d *Dataset) Defaults() Defaults {
	def := Defaults{Characteristic: DefaultCharacteristic, Subjects: []string{}}
	if len(d.years) > 0 {
		def.StartYear = d.years[0]
		def.EndYear = d.years[len(d.years)-1]
	}
	if len(d.subjects) > 0 {
		def.Subjects = []string{d.subjects[0]}
	}
	return def
}
