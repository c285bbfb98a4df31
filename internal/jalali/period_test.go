package jalali

import (
	"testing"
	"time"
)

func TestPeriodRangeLengths(t *testing.T) {
	for year := 1400; year <= 1410; year++ {
		for month := 1; month <= 12; month++ {
			start, end, err := PeriodRange(year, month)
			if err != nil {
				t.Fatalf("PeriodRange(%d, %d): %v", year, month, err)
			}
			days := int(end.Sub(start).Hours() / 24)
			if days != MonthLength(year, month) {
				t.Errorf("PeriodRange(%d, %d) spans %d days, want %d", year, month, days, MonthLength(year, month))
			}
		}
		start, end, err := PeriodRange(year, 0)
		if err != nil {
			t.Fatal(err)
		}
		days := int(end.Sub(start).Hours() / 24)
		want := 365
		if IsLeap(year) {
			want = 366
		}
		if days != want {
			t.Errorf("year %d spans %d days, want %d", year, days, want)
		}
	}
}

func TestPeriodRangeAdjacency(t *testing.T) {
	p := MonthPeriod(1400, 1)
	for i := 0; i < 12*10; i++ {
		_, end, err := p.Range()
		if err != nil {
			t.Fatal(err)
		}
		next := p.Next()
		nextStart, _, err := next.Range()
		if err != nil {
			t.Fatal(err)
		}
		if !end.Equal(nextStart) {
			t.Fatalf("end of %s (%s) != start of %s (%s)", p, end.Format(time.DateOnly), next, nextStart.Format(time.DateOnly))
		}
		p = next
	}
}

func TestPeriodRangeYearMatchesMonths(t *testing.T) {
	yStart, yEnd, err := PeriodRange(1403, 0)
	if err != nil {
		t.Fatal(err)
	}
	fStart, _, _ := PeriodRange(1403, 1)
	_, eEnd, _ := PeriodRange(1403, 12)
	if !yStart.Equal(fStart) || !yEnd.Equal(eEnd) {
		t.Errorf("year range [%s, %s) does not match Farvardin start %s and Esfand end %s",
			yStart.Format(time.DateOnly), yEnd.Format(time.DateOnly),
			fStart.Format(time.DateOnly), eEnd.Format(time.DateOnly))
	}
}

func TestPeriodRangeLeapEsfand(t *testing.T) {
	start, end, err := PeriodRange(1403, 12)
	if err != nil {
		t.Fatal(err)
	}
	if want := day(2025, time.February, 19); !start.Equal(want) {
		t.Errorf("start = %s, want %s", start.Format(time.DateOnly), want.Format(time.DateOnly))
	}
	if want := day(2025, time.March, 21); !end.Equal(want) {
		t.Errorf("end = %s, want %s", end.Format(time.DateOnly), want.Format(time.DateOnly))
	}
	if !MonthPeriod(1403, 12).Contains(day(2025, time.March, 20)) {
		t.Error("1403/12/30 should fall inside Esfand 1403")
	}
}

func TestPeriodRangeInvalid(t *testing.T) {
	tests := []struct{ year, month int }{
		{1403, 13},
		{1403, -1},
		{0, 1},
		{MaxYear + 1, 1},
	}
	for _, tt := range tests {
		if _, _, err := PeriodRange(tt.year, tt.month); err == nil {
			t.Errorf("PeriodRange(%d, %d) should fail", tt.year, tt.month)
		}
	}
}

func TestPeriodNavigation(t *testing.T) {
	tests := []struct {
		p          Period
		next, prev Period
	}{
		{MonthPeriod(1403, 12), MonthPeriod(1404, 1), MonthPeriod(1403, 11)},
		{MonthPeriod(1403, 1), MonthPeriod(1403, 2), MonthPeriod(1402, 12)},
		{YearPeriod(1403), YearPeriod(1404), YearPeriod(1402)},
	}
	for _, tt := range tests {
		if got := tt.p.Next(); got != tt.next {
			t.Errorf("%s.Next() = %s, want %s", tt.p, got, tt.next)
		}
		if got := tt.p.Prev(); got != tt.prev {
			t.Errorf("%s.Prev() = %s, want %s", tt.p, got, tt.prev)
		}
	}
}

func TestPeriodString(t *testing.T) {
	if got := MonthPeriod(1403, 1).String(); got != "1403/01" {
		t.Errorf("got %q", got)
	}
	if got := YearPeriod(1403).String(); got != "1403" {
		t.Errorf("got %q", got)
	}
}

func TestMonthName(t *testing.T) {
	if MonthName(1) != "Farvardin" || MonthName(12) != "Esfand" || MonthName(13) != "" {
		t.Error("unexpected month names")
	}
}
