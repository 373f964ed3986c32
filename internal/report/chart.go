package report

import (
	"errors"
	"io"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"resultsdash/internal/query"
)

// ErrNothingToPlot is returned by WritePNG when no series has a point.
var ErrNothingToPlot = errors.New("report: nothing to plot")

// PNG dimensions.
const (
	ChartWidth  = 1024
	ChartHeight = 576
)

// Trace is one plotted series.
type Trace struct {
	X    []int   `json:"x"`
	Y    []int64 `json:"y"`
	Type string  `json:"type"`
	Name string  `json:"name"`
}

// Axis carries an axis title.
type Axis struct {
	Title string `json:"title"`
}

// Layout is the figure layout.
type Layout struct {
	Title    string `json:"title"`
	XAxis    Axis   `json:"xaxis"`
	YAxis    Axis   `json:"yaxis"`
	Template string `json:"template"`
}

// Figure is a line chart description a browser plotting library can draw directly.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// NewFigure converts a time series into a figure with one trace per series.
func NewFigure(ts query.TimeSeries) Figure {
	fig := Figure{
		Data: make([]Trace, 0, len(ts.Series)),
		Layout: Layout{
			Title:    ts.Title,
			XAxis:    Axis{Title: ts.XAxisTitle},
			YAxis:    Axis{Title: ts.YAxisTitle},
			Template: query.ChartTemplate,
		},
	}
	for _, s := range ts.Series {
		tr := Trace{X: make([]int, 0, len(s.Points)), Y: make([]int64, 0, len(s.Points)), Type: query.ChartType, Name: s.Label}
		for _, p := range s.Points {
			tr.X = append(tr.X, p.Year)
			tr.Y = append(tr.Y, p.Entries)
		}
		fig.Data = append(fig.Data, tr)
	}
	return fig
}

// WritePNG draws the time series as a line chart. Series without points are
// left out of the legend; if none remain ErrNothingToPlot is returned.
func WritePNG(w io.Writer, ts query.TimeSeries) error {
	var (
		series     []chart.Series
		minX, maxX int
		maxY       int64
		years      = map[int]bool{}
	)
	for _, s := range ts.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, len(s.Points))
		ys := make([]float64, len(s.Points))
		for i, p := range s.Points {
			xs[i], ys[i] = float64(p.Year), float64(p.Entries)
			if len(years) == 0 || p.Year < minX {
				minX = p.Year
			}
			if len(years) == 0 || p.Year > maxX {
				maxX = p.Year
			}
			if p.Entries > maxY {
				maxY = p.Entries
			}
			years[p.Year] = true
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeWidth: 2, DotWidth: 3},
		})
	}
	if len(series) == 0 {
		return ErrNothingToPlot
	}

	// go-chart derives the x range from the ticks, so a single year needs
	// unlabelled ticks either side of it.
	lo, hi := float64(minX), float64(maxX)
	ticks := make([]chart.Tick, 0, len(years)+2)
	if minX == maxX {
		lo, hi = lo-1, hi+1
		ticks = append(ticks, chart.Tick{Value: lo})
	}
	for y := minX; y <= maxX; y++ {
		if years[y] {
			ticks = append(ticks, chart.Tick{Value: float64(y), Label: strconv.Itoa(y)})
		}
	}
	if minX == maxX {
		ticks = append(ticks, chart.Tick{Value: hi})
	}
	top := float64(maxY) * 1.1
	if top <= 0 {
		top = 1
	}

	graph := chart.Chart{
		Title:      ts.Title,
		Width:      ChartWidth,
		Height:     ChartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: ts.XAxisTitle, Range: &chart.ContinuousRange{Min: lo, Max: hi}, Ticks: ticks},
		YAxis:      chart.YAxis{Name: ts.YAxisTitle, Range: &chart.ContinuousRange{Min: 0, Max: top}},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}
