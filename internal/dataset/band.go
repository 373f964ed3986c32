package dataset

import (
	"encoding/json"
	"strings"
)

// GradeBand identifies a cumulative attainment threshold. Each band includes
// every higher band, so A*-C counts A*, A, B and C grades.
type GradeBand int

// Grade bands in reporting order.
const (
	BandAStar GradeBand = iota
	BandAStarA
	BandAStarB
	BandAStarC
	BandAStarD
	BandAStarE
)

// NumBands is the number of grade bands carried per row.
const NumBands = 6

var bandNames = [NumBands]struct{ label, perc string }{
	{"A*", "perc_astar_grade_achieved"},
	{"A*-A", "perc_astar_a_grade_achieved"},
	{"A*-B", "perc_astar_b_grade_achieved"},
	{"A*-C", "perc_astar_c_grade_achieved"},
	{"A*-D", "perc_astar_d_grade_achieved"},
	{"A*-E", "perc_astar_e_grade_achieved"},
}

// Bands lists every grade band in reporting order.
func Bands() [NumBands]GradeBand {
	return [NumBands]GradeBand{BandAStar, BandAStarA, BandAStarB, BandAStarC, BandAStarD, BandAStarE}
}

// Valid reports whether b is a known band.
func (b GradeBand) Valid() bool { return b >= 0 && int(b) < NumBands }

// Label is the human readable threshold, e.g. "A*-B".
func (b GradeBand) Label() string {
	if !b.Valid() {
		return ""
	}
	return bandNames[b].label
}

// PercentageColumn is the source column holding the band percentage.
func (b GradeBand) PercentageColumn() string {
	if !b.Valid() {
		return ""
	}
	return bandNames[b].perc
}

// AbsoluteColumn is the derived column name: the percentage column with its
// perc_ prefix replaced by abs_.
func (b GradeBand) AbsoluteColumn() string {
	if !b.Valid() {
		return ""
	}
	return "abs_" + strings.TrimPrefix(bandNames[b].perc, "perc_")
}

func (b GradeBand) String() string { return b.Label() }

// Measure is an optional number. The zero value is missing.
type Measure struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) Measure { return Measure{Value: v, Valid: true} }

// MarshalJSON renders missing values as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}
