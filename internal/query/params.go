package query

import (
	"strings"

	"resultsdash/internal/dataset"
)

// Mode selects which grade-band indicators the summary table reports.
type Mode string

// Indicator modes.
const (
	ModePercentage Mode = "percentage"
	ModeAbsolute   Mode = "absolute"
)

// Modes lists the supported modes, default first.
func Modes() []Mode { return []Mode{ModePercentage, ModeAbsolute} }

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePercentage:
		return ModePercentage, true
	case ModeAbsolute:
		return ModeAbsolute, true
	default:
		return "", false
	}
}

// Params is one filter selection. Subjects keeps request order; duplicates
// are not removed.
type Params struct {
	StartYear      int      `json:"start_year"`
	EndYear        int      `json:"end_year"`
	Mode           Mode     `json:"mode"`
	Characteristic string   `json:"characteristic"`
	Subjects       []string `json:"subjects"`
}

// IndicatorColumns returns entry_count followed by the six band columns for
// mode. Unknown modes report the percentage columns.
func IndicatorColumns(mode Mode) []string {
	cols := make([]string, 0, dataset.NumBands+1)
	cols = append(cols, dataset.ColumnEntryCount)
	for _, b := range dataset.Bands() {
		if mode == ModeAbsolute {
			cols = append(cols, b.AbsoluteColumn())
		} else {
			cols = append(cols, b.PercentageColumn())
		}
	}
	return cols
}

// valid reports whether p can match any row at all.
func (p Params) valid() bool {
	if len(p.Subjects) == 0 || p.StartYear > p.EndYear {
		return false
	}
	_, ok := ParseMode(string(p.Mode))
	return ok
}

func (p Params) subjectSet() map[string]bool {
	set := make(map[string]bool, len(p.Subjects))
	for _, s := range p.Subjects {
		set[s] = true
	}
	return set
}

func (p Params) matches(row dataset.Row, subjects map[string]bool) bool {
	return row.StartYear >= p.StartYear &&
		row.StartYear <= p.EndYear &&
		row.Characteristic == p.Characteristic &&
		subjects[row.Subject]
}
