package collectors

import (
	"strconv"

	"sfmon_exporter/internal/salesforce"
)

// rowFloat parses a numeric log column, treating blanks and garbage as 0.
// Event log CSVs routinely leave numeric columns empty.
func rowFloat(row salesforce.Row, col string) float64 {
	v, err := strconv.ParseFloat(row.Get(col), 64)
	if err != nil {
		return 0
	}
	return v
}

// rowInt parses an integer log column, treating blanks and garbage as 0.
func rowInt(row salesforce.Row, col string) int {
	v, err := strconv.Atoi(row.Get(col))
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
