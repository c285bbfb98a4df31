package google

import (
	"context"
	"strings"
	"testing"

	"hesabdar/internal/report"
)

func TestSummaryRows(t *testing.T) {
	s := report.Series{
		Labels:  []string{"Farvardin", "Ordibehesht", "Khordad"},
		Income:  []int64{1000, 0, 250},
		Expense: []int64{400, 50, 0},
	}
	rows, err := summaryRows(s)
	if err != nil {
		t.Fatalf("summaryRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want header + 3 + total", len(rows))
	}
	if rows[0][0] != "Month" {
		t.Errorf("header = %v", rows[0])
	}
	if got := rows[2]; got[0] != "Ordibehesht" || got[3] != int64(-50) {
		t.Errorf("second month row = %v", got)
	}
	total := rows[4]
	if total[0] != "Total" || total[1] != int64(1250) || total[2] != int64(450) || total[3] != int64(800) {
		t.Errorf("total row = %v", total)
	}
}

func TestSummaryRowsMisaligned(t *testing.T) {
	_, err := summaryRows(report.Series{Labels: []string{"a"}, Income: []int64{1}})
	if err == nil || !strings.Contains(err.Error(), "misaligned") {
		t.Errorf("err = %v, want misaligned series error", err)
	}
}

func TestSheetNaming(t *testing.T) {
	tests := []struct {
		base   string
		tenant int64
		year   int
		want   string
		quoted string
	}{
		{"Report", 7, 1403, "Report 7 1403", "'Report 7 1403'"},
		{" Hesab ", 12, 1399, "Hesab 12 1399", "'Hesab 12 1399'"},
		{"Ali's", 1, 1404, "Ali's 1 1404", "'Ali''s 1 1404'"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := sheetTitle(tt.base, tt.tenant, tt.year)
			if got != tt.want {
				t.Errorf("sheetTitle = %q, want %q", got, tt.want)
			}
			if q := quoteSheet(got); q != tt.quoted {
				t.Errorf("quoteSheet = %q, want %q", q, tt.quoted)
			}
		})
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Options{SpreadsheetID: "  "}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestExportYear_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Report", known: map[string]bool{}}
	if err := c.ExportYear(context.Background(), 1, report.Series{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}
