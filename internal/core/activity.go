package core

import (
	"cmp"
	"slices"
	"time"
)

// ActivityItem is the feed projection shared by every record kind.
type ActivityItem struct {
	Kind      RecordKind
	ID        int64
	Date      Date
	Amount    Money
	Label     string
	CreatedAt time.Time
}

// Activity projects r into the activity feed.
func (r Record) Activity() ActivityItem {
	return ActivityItem{
		Kind:      r.Kind,
		ID:        r.ID,
		Date:      r.Date,
		Amount:    r.Amount,
		Label:     r.Category,
		CreatedAt: r.CreatedAt,
	}
}

// CompareActivity orders items newest first: by date, then creation time,
// then id, all descending. Unset dates sort last.
func CompareActivity(a, b ActivityItem) int {
	if c := compareDateDesc(a.Date, b.Date); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ID, a.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.Kind, b.Kind)
}

// SortActivity sorts items in place with CompareActivity.
func SortActivity(items []ActivityItem) {
	slices.SortFunc(items, CompareActivity)
}

func compareDateDesc(a, b Date) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return b.Time.Compare(a.Time)
}
