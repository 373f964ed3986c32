// Package query filters and aggregates the prepared dataset. Every operation
// is a pure function of the dataset and its parameters, so an Engine is safe
// for concurrent use without locking.
package query

import (
	"fmt"
	"sort"
	"strconv"

	"resultsdash/internal/dataset"
)

// Chart metadata for the time series view.
const (
	ChartXAxisTitle = "Year"
	ChartYAxisTitle = "Entry Count"
	ChartType       = "line"
	ChartTemplate   = "plotly_white"
	IndicatorColumn = "Indicator"
)

// Engine answers queries over one prepared dataset.
type Engine struct {
	ds *dataset.Dataset
}

// NewEngine binds an engine to ds. The dataset must not be modified afterwards.
func NewEngine(ds *dataset.Dataset) *Engine {
	return &Engine{ds: ds}
}

// Dataset returns the dataset the engine reads.
func (e *Engine) Dataset() *dataset.Dataset { return e.ds }

// SummaryTable is the pivoted report: one row per indicator, one column per
// year. Cells[i][j] is the mean of Indicators[i] over Years[j].
type SummaryTable struct {
	Indicators []string
	Years      []string
	Cells      [][]dataset.Measure
}

// Columns returns the column descriptors: Indicator followed by the years.
func (t SummaryTable) Columns() []string {
	return append([]string{IndicatorColumn}, t.Years...)
}

// Empty reports whether no row matched.
func (t SummaryTable) Empty() bool { return len(t.Years) == 0 }

// Point is the summed entry count for one year.
type Point struct {
	Year    int   `json:"year"`
	Entries int64 `json:"entries"`
}

// Series is one subject's entries over time.
type Series struct {
	Subject string  `json:"subject"`
	Label   string  `json:"label"`
	Points  []Point `json:"points"`
}

// TimeSeries holds one series per requested subject plus chart metadata.
type TimeSeries struct {
	Title          string   `json:"title"`
	XAxisTitle     string   `json:"x_axis_title"`
	YAxisTitle     string   `json:"y_axis_title"`
	Characteristic string   `json:"characteristic"`
	Series         []Series `json:"series"`
}

// HasPoints reports whether any series carries at least one point.
func (ts TimeSeries) HasPoints() bool {
	for _, s := range ts.Series {
		if len(s.Points) > 0 {
			return true
		}
	}
	return false
}

// BuildSummaryTable averages each indicator per start year over the rows
// matching p, ignoring missing values. Invalid parameters yield the indicator
// rows with no year columns.
func (e *Engine) BuildSummaryTable(p Params) SummaryTable {
	indicators := IndicatorColumns(p.Mode)
	table := SummaryTable{Indicators: indicators, Years: []string{}, Cells: make([][]dataset.Measure, len(indicators))}
	for i := range table.Cells {
		table.Cells[i] = []dataset.Measure{}
	}
	if !p.valid() {
		return table
	}

	type acc struct {
		sum   [dataset.NumBands + 1]float64
		count [dataset.NumBands + 1]int
	}
	byYear := map[int]*acc{}
	subjects := p.subjectSet()
	for _, row := range e.ds.Rows() {
		if !p.matches(row, subjects) {
			continue
		}
		a := byYear[row.StartYear]
		if a == nil {
			a = &acc{}
			byYear[row.StartYear] = a
		}
		a.sum[0] += float64(row.EntryCount)
		a.count[0]++
		for _, b := range dataset.Bands() {
			m := row.Percentage(b)
			if p.Mode == ModeAbsolute {
				m = row.Absolute(b)
			}
			if m.Valid {
				a.sum[int(b)+1] += m.Value
				a.count[int(b)+1]++
			}
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		table.Years = append(table.Years, strconv.Itoa(y))
		a := byYear[y]
		for i := range indicators {
			var m dataset.Measure
			if a.count[i] > 0 {
				m = dataset.Some(a.sum[i] / float64(a.count[i]))
			}
			table.Cells[i] = append(table.Cells[i], m)
		}
	}
	return table
}

// BuildTimeSeries sums entry counts per start year for each requested subject,
// in request order. A subject without matching rows gets a series with no points.
func (e *Engine) BuildTimeSeries(p Params) TimeSeries {
	ts := TimeSeries{
		Title:          fmt.Sprintf("Entries Count Over Time for Selected Subjects (%s)", p.Characteristic),
		XAxisTitle:     ChartXAxisTitle,
		YAxisTitle:     ChartYAxisTitle,
		Characteristic: p.Characteristic,
		Series:         []Series{},
	}
	if len(p.Subjects) == 0 {
		return ts
	}

	totals := map[string]map[int]int64{}
	if p.StartYear <= p.EndYear {
		subjects := p.subjectSet()
		for _, row := range e.ds.Rows() {
			if !p.matches(row, subjects) {
				continue
			}
			perYear := totals[row.Subject]
			if perYear == nil {
				perYear = map[int]int64{}
				totals[row.Subject] = perYear
			}
			perYear[row.StartYear] += row.EntryCount
		}
	}

	for _, subject := range p.Subjects {
		s := Series{
			Subject: subject,
			Label:   fmt.Sprintf("%s (%s)", subject, p.Characteristic),
			Points:  []Point{},
		}
		for year, n := range totals[subject] {
			s.Points = append(s.Points, Point{Year: year, Entries: n})
		}
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Year < s.Points[j].Year })
		ts.Series = append(ts.Series, s)
	}
	return ts
}

// Defaults are the filter values used for unset parameters.
type Defaults struct {
	StartYear      int      `json:"start_year"`
	EndYear        int      `json:"end_year"`
	Mode           Mode     `json:"mode"`
	Characteristic string   `json:"characteristic"`
	Subjects       []string `json:"subjects"`
}

// Params converts the defaults into a query.
func (d Defaults) Params() Params {
	return Params{
		StartYear:      d.StartYear,
		EndYear:        d.EndYear,
		Mode:           d.Mode,
		Characteristic: d.Characteristic,
		Subjects:       append([]string(nil), d.Subjects...),
	}
}

// Options lists the values a caller may choose from.
type Options struct {
	Years           []int    `json:"years"`
	Characteristics []string `json:"characteristics"`
	Subjects        []string `json:"subjects"`
	Modes           []Mode   `json:"modes"`
	Defaults        Defaults `json:"defaults"`
}

// Options returns the filter choices present in the dataset.
func (e *Engine) Options() Options {
	def := e.ds.Defaults()
	return Options{
		Years:           e.ds.Years(),
		Characteristics: e.ds.Characteristics(),
		Subjects:        e.ds.Subjects(),
		Modes:           Modes(),
		Defaults: Defaults{
			StartYear:      def.StartYear,
			EndYear:        def.EndYear,
			Mode:           ModePercentage,
			Characteristic: def.Characteristic,
			Subjects:       def.Subjects,
		},
	}
}
