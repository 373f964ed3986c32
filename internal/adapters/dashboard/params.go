package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"resultsdash/internal/query"
)

const maxBodyBytes = 1 << 20

// paramsRequest is the POST body. Absent fields take the defaults; an
// explicit empty subjects list stays empty.
type paramsRequest struct {
	StartYear      json.RawMessage `json:"start_year"`
	EndYear        json.RawMessage `json:"end_year"`
	Mode           json.RawMessage `json:"mode"`
	Characteristic *string         `json:"characteristic"`
	Subjects       *[]string       `json:"subjects"`
}

// decoded is a filter selection plus what went wrong while reading it.
type decoded struct {
	params   query.Params
	warnings []string
	badYears bool
	badMode  bool
}

func (d *decoded) warn(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// decodeParams reads filters from the query string (GET) or JSON body (POST).
// Only an unreadable body is an error; bad values become warnings.
func decodeParams(r *http.Request, opts query.Options) (decoded, error) {
	d := decoded{params: opts.Defaults.Params()}
	if r.Method == http.MethodPost {
		var req paramsRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			return decoded{}, err
		}
		if len(req.StartYear) > 0 && string(req.StartYear) != "null" {
			d.params.StartYear = d.rawYear("start_year", req.StartYear, d.params.StartYear)
		}
		if len(req.EndYear) > 0 && string(req.EndYear) != "null" {
			d.params.EndYear = d.rawYear("end_year", req.EndYear, d.params.EndYear)
		}
		if len(req.Mode) > 0 && string(req.Mode) != "null" {
			var s string
			if err := json.Unmarshal(req.Mode, &s); err != nil {
				d.badMode = true
				d.warn("mode %s is not a string", req.Mode)
			} else {
				d.params.Mode = d.mode(s)
			}
		}
		if req.Characteristic != nil {
			d.params.Characteristic = *req.Characteristic
		}
		if req.Subjects != nil {
			d.params.Subjects = nonEmpty(*req.Subjects)
		}
	} else {
		q := r.URL.Query()
		if v, ok := q["start"]; ok {
			d.params.StartYear = d.year("start", v[0], d.params.StartYear)
		}
		if v, ok := q["end"]; ok {
			d.params.EndYear = d.year("end", v[0], d.params.EndYear)
		}
		if v, ok := q["mode"]; ok {
			d.params.Mode = d.mode(v[0])
		}
		if v, ok := q["characteristic"]; ok {
			d.params.Characteristic = v[0]
		}
		if v, ok := q["subject"]; ok {
			d.params.Subjects = nonEmpty(v)
		}
	}
	d.check(opts)
	return d, nil
}

func (d *decoded) year(name, raw string, fallback int) int {
	y, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		d.badYears = true
		d.warn("%s %q is not a year", name, raw)
		return fallback
	}
	return y
}

// rawYear accepts a JSON number or a numeric string.
func (d *decoded) rawYear(name string, raw json.RawMessage, fallback int) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return d.year(name, s, fallback)
	}
	d.badYears = true
	d.warn("%s %s is not a year", name, raw)
	return fallback
}

func (d *decoded) mode(raw string) query.Mode {
	m, ok := query.ParseMode(raw)
	if !ok {
		d.badMode = true
		d.warn("mode %q is not one of percentage, absolute", raw)
		return query.Mode(raw)
	}
	return m
}

// check adds warnings for selections that cannot match any row.
func (d *decoded) check(opts query.Options) {
	p := d.params
	if len(p.Subjects) == 0 {
		d.warn("no subjects selected")
	}
	if !d.badYears && p.StartYear > p.EndYear {
		d.warn("start year %d is after end year %d", p.StartYear, p.EndYear)
	}
	if !contains(opts.Characteristics, p.Characteristic) {
		d.warn("characteristic %q not found", p.Characteristic)
	}
	for _, s := range p.Subjects {
		if !contains(opts.Subjects, s) {
			d.warn("subject %q not found", s)
		}
	}
}

// summaryParams is the query actually run for the table; malformed years or
// mode degrade it to an empty selection.
func (d decoded) summaryParams() query.Params {
	p := d.params
	if d.badYears || d.badMode {
		p.Subjects = nil
	}
	return p
}

// seriesParams ignores the mode, which the time series does not use.
func (d decoded) seriesParams() query.Params {
	p := d.params
	if d.badYears {
		p.Subjects = nil
	}
	return p
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
