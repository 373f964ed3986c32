// Package dashboard exposes the query engine over HTTP: filter options, the
// summary table and the entries time series.
package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/powerman/structlog"

	"resultsdash/internal/observability"
	"resultsdash/internal/query"
	"resultsdash/internal/report"
)

// Response formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
	FormatPNG  = "png"
)

// Handler serves the dashboard API.
type Handler struct {
	Engine  *query.Engine
	Metrics observability.MetricsRecorder
	Log     *structlog.Logger

	options query.Options
}

// NewHandler constructs a dashboard handler. A nil recorder disables metrics
// and a nil logger uses the structlog defaults.
func NewHandler(engine *query.Engine, metrics observability.MetricsRecorder, log *structlog.Logger) *Handler {
	if metrics == nil {
		metrics = observability.NoopRecorder{}
	}
	if log == nil {
		log = structlog.New(structlog.KeyUnit, "http")
	}
	return &Handler{Engine: engine, Metrics: metrics, Log: log, options: engine.Options()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch path {
	case "/healthz":
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": h.Engine.Dataset().Len()})
	case "/api/v1/options":
		if !allow(w, r, http.MethodGet) {
			return
		}
		start := time.Now()
		writeJSON(w, http.StatusOK, map[string]any{"options": h.options})
		h.Metrics.Observe(r.Context(), observability.OpOptions, true, time.Since(start))
	case "/api/v1/summary":
		if !allow(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		h.handleSummary(w, r)
	case "/api/v1/timeseries":
		if !allow(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		h.handleTimeSeries(w, r)
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
	}
}

type summaryResponse struct {
	Parameters query.Params     `json:"parameters"`
	Columns    []report.Column  `json:"columns"`
	Data       []map[string]any `json:"data"`
	Warnings   []string         `json:"warnings"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	format := negotiateFormat(r, FormatJSON, FormatCSV, FormatText)
	if format == "" {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}
	d, err := decodeParams(r, h.options)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid summary request payload")
		return
	}

	start := time.Now()
	table := h.Engine.BuildSummaryTable(d.summaryParams())
	h.Metrics.Observe(r.Context(), observability.OpSummary, !d.badYears && !d.badMode, time.Since(start))
	h.logWarnings(observability.OpSummary, d)

	setWarningHeaders(w, d.warnings)
	switch format {
	case FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=\"summary-%d-%d.csv\"", d.params.StartYear, d.params.EndYear))
		if err := report.WriteCSV(w, table); err != nil {
			h.Log.Warn("write csv", "err", err)
		}
	case FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.WriteText(w, table)
	default:
		payload := report.Table(table)
		writeJSON(w, http.StatusOK, summaryResponse{
			Parameters: d.params,
			Columns:    payload.Columns,
			Data:       payload.Data,
			Warnings:   warnings(d),
		})
	}
}

type timeSeriesResponse struct {
	Parameters query.Params   `json:"parameters"`
	Figure     report.Figure  `json:"figure"`
	Series     []query.Series `json:"series"`
	Warnings   []string       `json:"warnings"`
}

func (h *Handler) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	format := negotiateFormat(r, FormatJSON, FormatPNG)
	if format == "" {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}
	d, err := decodeParams(r, h.options)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timeseries request payload")
		return
	}

	start := time.Now()
	ts := h.Engine.BuildTimeSeries(d.seriesParams())
	h.Metrics.Observe(r.Context(), observability.OpTimeSeries, !d.badYears, time.Since(start))
	h.logWarnings(observability.OpTimeSeries, d)

	if format == FormatPNG {
		var buf bytes.Buffer
		if err := report.WritePNG(&buf, ts); err != nil {
			if errors.Is(err, report.ErrNothingToPlot) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "nothing to plot", "warnings": warnings(d)})
				return
			}
			h.Log.PrintErr("render chart", "err", err)
			writeError(w, http.StatusInternalServerError, "render chart failed")
			return
		}
		setWarningHeaders(w, d.warnings)
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
		return
	}

	setWarningHeaders(w, d.warnings)
	writeJSON(w, http.StatusOK, timeSeriesResponse{
		Parameters: d.params,
		Figure:     report.NewFigure(ts),
		Series:     ts.Series,
		Warnings:   warnings(d),
	})
}

func (h *Handler) logWarnings(op string, d decoded) {
	if len(d.warnings) > 0 {
		h.Log.Debug("degraded query", "op", op, "warnings", strings.Join(d.warnings, "; "))
	}
}

func warnings(d decoded) []string {
	if d.warnings == nil {
		return []string{}
	}
	return d.warnings
}

func setWarningHeaders(w http.ResponseWriter, msgs []string) {
	for _, m := range msgs {
		w.Header().Add("X-Query-Warning", m)
	}
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// negotiateFormat picks ?format= or, failing that, the Accept header. The
// first supported format is the default. An unsupported ?format= yields "".
func negotiateFormat(r *http.Request, supported ...string) string {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	explicit := wanted != ""
	if !explicit {
		accept := r.Header.Get("Accept")
		switch {
		case strings.Contains(accept, "text/csv"):
			wanted = FormatCSV
		case strings.Contains(accept, "image/png"):
			wanted = FormatPNG
		case strings.Contains(accept, "text/plain"):
			wanted = FormatText
		}
	}
	for _, candidate := range supported {
		if candidate == wanted {
			return wanted
		}
	}
	if explicit {
		return ""
	}
	return supported[0]
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
