package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"life-os/internal/calendar"
	"life-os/internal/model"
)

type appendedRow struct {
	tab model.Tab
	row []string
}

type fieldUpdate struct {
	tab    model.Tab
	itemID string
	field  string
	value  string
}

type fakeStore struct {
	mu sync.Mutex

	captures  []model.RawCapture
	appended  []appendedRow
	updates   []fieldUpdate
	processed map[string]int
	failed    map[string]string

	fetchErr   error
	appendErr  error
	markErr    error
	captureErr error
	updateErr  error
}

func newFakeStore(captures ...model.RawCapture) *fakeStore {
	return &fakeStore{captures: captures, processed: map[string]int{}, failed: map[string]string{}}
}

func (s *fakeStore) FetchUnprocessed(context.Context) ([]model.RawCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []model.RawCapture
	for _, c := range s.captures {
		if s.processed[c.ID] == 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) AppendCapture(_ context.Context, c model.RawCapture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.captureErr != nil {
		return s.captureErr
	}
	s.captures = append(s.captures, c)
	return nil
}

func (s *fakeStore) Append(_ context.Context, tab model.Tab, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, appendedRow{tab: tab, row: row})
	return nil
}

func (s *fakeStore) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.processed[id]++
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = errText
	return nil
}

func (s *fakeStore) UpdateField(_ context.Context, tab model.Tab, itemID, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, fieldUpdate{tab: tab, itemID: itemID, field: field, value: value})
	return nil
}

// fakeExtractor returns queued results per raw text, falling back to item.
type fakeExtractor struct {
	mu      sync.Mutex
	items   map[string]model.StructuredItem
	errs    map[string][]error
	calls   map[string]int
	nextID  int
	refDate time.Time
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{items: map[string]model.StructuredItem{}, errs: map[string][]error{}, calls: map[string]int{}}
}

func (f *fakeExtractor) on(text string, item model.StructuredItem, errs ...error) {
	f.items[text] = item
	f.errs[text] = errs
}

func (f *fakeExtractor) Extract(_ context.Context, text string, ref time.Time) (model.StructuredItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refDate = ref
	f.calls[text]++
	if queued := f.errs[text]; len(queued) > 0 {
		err := queued[0]
		f.errs[text] = queued[1:]
		return model.StructuredItem{}, err
	}
	item, ok := f.items[text]
	if !ok {
		return model.StructuredItem{}, errors.New("no canned item")
	}
	f.nextID++
	item.ID = fmt.Sprintf("item-%d", f.nextID)
	item.RawText = text
	item.ApplyDefaults()
	return item, nil
}

type fakeCalendar struct {
	created   []calendar.Artifact
	deleted   []string
	createErr error
	deleteErr error
}

func (c *fakeCalendar) CreateArtifact(_ context.Context, a calendar.Artifact) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, a)
	return fmt.Sprintf("cal-%d", len(c.created)), nil
}

func (c *fakeCalendar) DeleteArtifact(_ context.Context, id string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, id)
	return nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
