package host

import "strings"

// ViewColumn is a panel placement target.
type ViewColumn string

// Placement targets.
const (
	ColumnActive ViewColumn = "Active"
	ColumnBeside ViewColumn = "Beside"
	ColumnOne    ViewColumn = "One"
	ColumnTwo    ViewColumn = "Two"
	ColumnThree  ViewColumn = "Three"
	ColumnFour   ViewColumn = "Four"
	ColumnFive   ViewColumn = "Five"
	ColumnSix    ViewColumn = "Six"
	ColumnSeven  ViewColumn = "Seven"
	ColumnEight  ViewColumn = "Eight"
	ColumnNine   ViewColumn = "Nine"
)

var columns = []ViewColumn{
	ColumnActive, ColumnBeside, ColumnOne, ColumnTwo, ColumnThree,
	ColumnFour, ColumnFive, ColumnSix, ColumnSeven, ColumnEight, ColumnNine,
}

// ViewColumns lists every placement target.
func ViewColumns() []ViewColumn {
	out := make([]ViewColumn, len(columns))
	copy(out, columns)
	return out
}

// ParseViewColumn maps a name (case-insensitive) to a column. Unknown names
// yield ColumnBeside.
func ParseViewColumn(s string) ViewColumn {
	for _, c := range columns {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c
		}
	}
	return ColumnBeside
}
