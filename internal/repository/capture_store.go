package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"life-os/internal/model"
)

// ErrItemNotFound is returned when no row carries the requested id.
var ErrItemNotFound = errors.New("item not found")

const maxErrorText = 500

// CaptureStore implements the pipeline's persistence on top of a Workbook.
type CaptureStore struct {
	wb     Workbook
	logger *zap.Logger
}

func NewCaptureStore(wb Workbook, logger *zap.Logger) *CaptureStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureStore{wb: wb, logger: logger.With(zap.String("component", "store"))}
}

// Captures returns every readable Inbox row in sheet order.
func (s *CaptureStore) Captures(ctx context.Context) ([]model.RawCapture, error) {
	rows, err := s.wb.Rows(ctx, model.TabInbox)
	if err != nil {
		return nil, err
	}
	captures := make([]model.RawCapture, 0, len(rows))
	for i, row := range rows {
		c, err := model.CaptureFromRow(row)
		if err != nil {
			s.logger.Warn("skipping malformed inbox row", zap.Int("row", i), zap.Error(err))
			continue
		}
		if c.Text == "" {
			s.logger.Warn("skipping empty capture", zap.String("capture_id", c.ID))
			continue
		}
		captures = append(captures, c)
	}
	return captures, nil
}

func (s *CaptureStore) FetchUnprocessed(ctx context.Context) ([]model.RawCapture, error) {
	all, err := s.Captures(ctx)
	if err != nil {
		return nil, err
	}
	var pending []model.RawCapture
	for _, c := range all {
		if !c.Processed {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

func (s *CaptureStore) AppendCapture(ctx context.Context, capture model.RawCapture) error {
	if capture.ID == "" || capture.Text == "" {
		return fmt.Errorf("capture needs an id and text")
	}
	return s.wb.AppendRow(ctx, model.TabInbox, model.CaptureRow(capture))
}

func (s *CaptureStore) Append(ctx context.Context, tab model.Tab, row []string) error {
	if want := len(model.Columns(tab)); want == 0 || len(row) != want {
		return fmt.Errorf("row for %s has %d cells, want %d", tab, len(row), want)
	}
	return s.wb.AppendRow(ctx, tab, row)
}

// MarkProcessed is idempotent and clears any failure marker.
func (s *CaptureStore) MarkProcessed(ctx context.Context, captureID string) error {
	idx, row, err := s.find(ctx, model.TabInbox, captureID)
	if err != nil {
		return err
	}
	processedCol, _ := model.ColumnIndex(model.TabInbox, "processed")
	errorCol, _ := model.ColumnIndex(model.TabInbox, "last_error")

	if !strings.EqualFold(cell(row, processedCol), "TRUE") {
		if err := s.wb.UpdateCell(ctx, model.TabInbox, idx, processedCol, "TRUE"); err != nil {
			return err
		}
	}
	if cell(row, errorCol) != "" {
		if err := s.wb.UpdateCell(ctx, model.TabInbox, idx, errorCol, ""); err != nil {
			return err
		}
	}
	return nil
}

// MarkFailed records errText on the capture and leaves it unprocessed.
func (s *CaptureStore) MarkFailed(ctx context.Context, captureID, errText string) error {
	idx, _, err := s.find(ctx, model.TabInbox, captureID)
	if err != nil {
		return err
	}
	if r := []rune(errText); len(r) > maxErrorText {
		errText = string(r[:maxErrorText])
	}
	col, _ := model.ColumnIndex(model.TabInbox, "last_error")
	return s.wb.UpdateCell(ctx, model.TabInbox, idx, col, errText)
}

func (s *CaptureStore) UpdateField(ctx context.Context, tab model.Tab, itemID, field, value string) error {
	col, ok := model.ColumnIndex(tab, field)
	if !ok {
		return fmt.Errorf("%s has no column %q", tab, field)
	}
	idx, _, err := s.find(ctx, tab, itemID)
	if err != nil {
		return err
	}
	return s.wb.UpdateCell(ctx, tab, idx, col, value)
}

// Item loads a single item by id.
func (s *CaptureStore) Item(ctx context.Context, tab model.Tab, itemID string) (model.StructuredItem, error) {
	_, row, err := s.find(ctx, tab, itemID)
	if err != nil {
		return model.StructuredItem{}, err
	}
	return model.ItemFromRow(tab, row)
}

func (s *CaptureStore) find(ctx context.Context, tab model.Tab, id string) (int, []string, error) {
	rows, err := s.wb.Rows(ctx, tab)
	if err != nil {
		return 0, nil, err
	}
	for i, row := range rows {
		if len(row) > 0 && row[0] == id {
			return i, row, nil
		}
	}
	return 0, nil, fmt.Errorf("%s %s: %w", tab, id, ErrItemNotFound)
}

func cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
