package report

import (
	"context"
	"fmt"

	"hesabdar/internal/core"
)

const DefaultActivityPageSize = 20

type ActivityPage struct {
	Items      []core.ActivityItem
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Activity returns one page of the merged feed of every record kind, newest
// first by core.CompareActivity. page is clamped into [1, TotalPages].
func (s *Service) Activity(ctx context.Context, tenantID int64, page, pageSize int) (ActivityPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultActivityPageSize
	}

	total := 0
	for _, kind := range core.Kinds() {
		n, err := s.repo.CountRecords(ctx, tenantID, kind)
		if err != nil {
			return ActivityPage{}, fmt.Errorf("count %s records: %w", kind, err)
		}
		total += n
	}

	pages := max(1, (total+pageSize-1)/pageSize)
	page = min(max(page, 1), pages)
	need := page * pageSize

	var items []core.ActivityItem
	for _, kind := range core.Kinds() {
		recs, err := s.repo.RecentRecords(ctx, tenantID, kind, need)
		if err != nil {
			return ActivityPage{}, fmt.Errorf("recent %s records: %w", kind, err)
		}
		for _, r := range recs {
			items = append(items, r.Activity())
		}
	}
	core.SortActivity(items)

	from := min((page-1)*pageSize, len(items))
	to := min(need, len(items))
	return ActivityPage{
		Items:      items[from:to],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: pages,
	}, nil
}
