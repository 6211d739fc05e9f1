package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"life-os/internal/model"
)

// Query loads the workbook for read-only aggregation.
type Query struct {
	wb     Workbook
	logger *zap.Logger
}

func NewQuery(wb Workbook, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query{wb: wb, logger: logger.With(zap.String("component", "query"))}
}

// Snapshot is a materialized copy of the typed collections. Its methods are
// pure and never touch the backend.
type Snapshot struct {
	Tasks     []model.StructuredItem
	Events    []model.StructuredItem
	Ideas     []model.StructuredItem
	Reference []model.StructuredItem
	Captures  []model.RawCapture
}

// Load reads every tab. Malformed rows are skipped with a warning.
func (q *Query) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	targets := []struct {
		tab  model.Tab
		dest *[]model.StructuredItem
	}{
		{model.TabTasks, &snap.Tasks},
		{model.TabEvents, &snap.Events},
		{model.TabIdeas, &snap.Ideas},
		{model.TabReference, &snap.Reference},
	}
	for _, t := range targets {
		items, err := q.items(ctx, t.tab)
		if err != nil {
			return nil, err
		}
		*t.dest = items
	}

	rows, err := q.wb.Rows(ctx, model.TabInbox)
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	for i, row := range rows {
		c, err := model.CaptureFromRow(row)
		if err != nil {
			q.logger.Warn("skipping malformed row", zap.String("tab", string(model.TabInbox)), zap.Int("row", i), zap.Error(err))
			continue
		}
		snap.Captures = append(snap.Captures, c)
	}
	return snap, nil
}

func (q *Query) items(ctx context.Context, tab model.Tab) ([]model.StructuredItem, error) {
	rows, err := q.wb.Rows(ctx, tab)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", tab, err)
	}
	items := make([]model.StructuredItem, 0, len(rows))
	for i, row := range rows {
		item, err := model.ItemFromRow(tab, row)
		if err != nil {
			q.logger.Warn("skipping malformed row", zap.String("tab", string(tab)), zap.Int("row", i), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// EventsForDate returns events on d by start time; untimed events come last.
func (s *Snapshot) EventsForDate(d time.Time) []model.StructuredItem {
	day := model.Date(d)
	var out []model.StructuredItem
	for _, e := range s.Events {
		if e.DueDate != nil && e.DueDate.Equal(day) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueTime, out[j].DueTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}

// TasksDueBy returns open tasks due on or before d, by date then urgency.
func (s *Snapshot) TasksDueBy(d time.Time) []model.StructuredItem {
	limit := model.Date(d)
	var out []model.StructuredItem
	for _, t := range s.Tasks {
		if t.Status.Closed() || t.DueDate == nil || t.DueDate.After(limit) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(*out[j].DueDate) {
			return out[i].DueDate.Before(*out[j].DueDate)
		}
		return out[i].Urgency.Rank() < out[j].Urgency.Rank()
	})
	return out
}

// HighUrgencyItems returns open HIGH tasks followed by HIGH events.
func (s *Snapshot) HighUrgencyItems() []model.StructuredItem {
	var out []model.StructuredItem
	for _, t := range s.Tasks {
		if t.Urgency == model.UrgencyHigh && !t.Status.Closed() {
			out = append(out, t)
		}
	}
	for _, e := range s.Events {
		if e.Urgency == model.UrgencyHigh {
			out = append(out, e)
		}
	}
	return out
}

// ItemsDueBetween returns open tasks and events dated within [start, end].
func (s *Snapshot) ItemsDueBetween(start, end time.Time) []model.StructuredItem {
	from, to := model.Date(start), model.Date(end)
	var out []model.StructuredItem
	for _, it := range s.openDated() {
		if !it.DueDate.Before(from) && !it.DueDate.After(to) {
			out = append(out, it)
		}
	}
	sortByDate(out)
	return out
}

// ItemsNeedingClarification returns open tasks and ideas flagged for follow-up.
func (s *Snapshot) ItemsNeedingClarification() []model.StructuredItem {
	var out []model.StructuredItem
	for _, t := range s.Tasks {
		if t.NeedsClarification && !t.Status.Closed() {
			out = append(out, t)
		}
	}
	for _, i := range s.Ideas {
		if i.NeedsClarification {
			out = append(out, i)
		}
	}
	return out
}

// ItemsWithConsequencesSoon returns open items with a consequence due within
// days of today. Overdue items are included.
func (s *Snapshot) ItemsWithConsequencesSoon(today time.Time, days int) []model.StructuredItem {
	limit := model.Date(today).AddDate(0, 0, days)
	var out []model.StructuredItem
	for _, it := range s.openDated() {
		if it.Consequence != "" && !it.DueDate.After(limit) {
			out = append(out, it)
		}
	}
	sortByDate(out)
	return out
}

// StaleCaptures returns unprocessed captures older than days.
func (s *Snapshot) StaleCaptures(now time.Time, days int) []model.RawCapture {
	age := time.Duration(days) * 24 * time.Hour
	var out []model.RawCapture
	for _, c := range s.Captures {
		if c.Stale(now, age) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Snapshot) openDated() []model.StructuredItem {
	var out []model.StructuredItem
	for _, t := range s.Tasks {
		if t.DueDate != nil && !t.Status.Closed() {
			out = append(out, t)
		}
	}
	for _, e := range s.Events {
		if e.DueDate != nil {
			out = append(out, e)
		}
	}
	return out
}

func sortByDate(items []model.StructuredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DueDate.Before(*items[j].DueDate)
	})
}
