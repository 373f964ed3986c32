package dataset

// Record is one raw row keyed by column name. Cells are untyped strings;
// Prepare does the typing.
type Record map[string]string

// Table is a decoded source: column names in source order plus rows in
// source order.
type Table struct {
	Columns []string
	Records []Record
}

// HasColumn reports whether the table header contains name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
