package google

import (
	"fmt"
	"strings"

	"hesabdar/internal/report"
)

var summaryHeader = []any{"Month", "Income", "Expense", "Net"}

// summaryRows lays a monthly series out as a header, one row per month and a
// total row.
func summaryRows(s report.Series) ([][]any, error) {
	n := len(s.Labels)
	if len(s.Income) != n || len(s.Expense) != n {
		return nil, fmt.Errorf("misaligned series: %d labels, %d income, %d expense", n, len(s.Income), len(s.Expense))
	}

	rows := make([][]any, 0, n+2)
	rows = append(rows, summaryHeader)
	var income, expense int64
	for i, label := range s.Labels {
		rows = append(rows, []any{label, s.Income[i], s.Expense[i], s.Income[i] - s.Expense[i]})
		income += s.Income[i]
		expense += s.Expense[i]
	}
	rows = append(rows, []any{"Total", income, expense, income - expense})
	return rows, nil
}

// sheetTitle is "<base> <tenant> <year>".
func sheetTitle(base string, tenantID int64, year int) string {
	return fmt.Sprintf("%s %d %d", strings.TrimSpace(base), tenantID, year)
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
