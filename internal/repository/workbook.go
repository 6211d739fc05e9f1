package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"

	"life-os/internal/model"
)

// Workbook is a spreadsheet of named tabs. Row indexes are zero-based and
// exclude the header row.
type Workbook interface {
	Rows(ctx context.Context, tab model.Tab) ([][]string, error)
	AppendRow(ctx context.Context, tab model.Tab, row []string) error
	UpdateCell(ctx context.Context, tab model.Tab, rowIndex, col int, value string) error
	Header(ctx context.Context, tab model.Tab) ([]string, error)
	SetHeader(ctx context.Context, tab model.Tab, header []string) error
}

// RetryingWorkbook retries transient backend failures with exponential backoff.
type RetryingWorkbook struct {
	delegate     Workbook
	buildBackoff func() backoff.BackOff
}

// NewRetryingWorkbook retries each operation at most maxRetries extra times,
// starting at initial delay.
func NewRetryingWorkbook(delegate Workbook, maxRetries int, initial time.Duration) *RetryingWorkbook {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initial <= 0 {
		initial = time.Second
	}
	return &RetryingWorkbook{
		delegate: delegate,
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxElapsedTime = 0
			return backoff.WithMaxRetries(b, uint64(maxRetries))
		},
	}
}

func (w *RetryingWorkbook) Rows(ctx context.Context, tab model.Tab) ([][]string, error) {
	var rows [][]string
	err := w.retry(ctx, func() error {
		var err error
		rows, err = w.delegate.Rows(ctx, tab)
		return err
	})
	return rows, err
}

func (w *RetryingWorkbook) AppendRow(ctx context.Context, tab model.Tab, row []string) error {
	return w.retry(ctx, func() error { return w.delegate.AppendRow(ctx, tab, row) })
}

func (w *RetryingWorkbook) UpdateCell(ctx context.Context, tab model.Tab, rowIndex, col int, value string) error {
	return w.retry(ctx, func() error { return w.delegate.UpdateCell(ctx, tab, rowIndex, col, value) })
}

func (w *RetryingWorkbook) Header(ctx context.Context, tab model.Tab) ([]string, error) {
	var header []string
	err := w.retry(ctx, func() error {
		var err error
		header, err = w.delegate.Header(ctx, tab)
		return err
	})
	return header, err
}

func (w *RetryingWorkbook) SetHeader(ctx context.Context, tab model.Tab, header []string) error {
	return w.retry(ctx, func() error { return w.delegate.SetHeader(ctx, tab, header) })
}

func (w *RetryingWorkbook) retry(ctx context.Context, fn func() error) error {
	op := func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(w.buildBackoff(), ctx))
}

// IsTransient reports whether err is worth retrying: rate limits, server
// errors, timeouts and a busy sqlite database.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy")
}

// EnsureHeaders writes the column header of every tab whose header is missing
// or shorter than the current layout.
func EnsureHeaders(ctx context.Context, wb Workbook) error {
	for _, tab := range model.Tabs {
		header, err := wb.Header(ctx, tab)
		if err != nil {
			return fmt.Errorf("read %s header: %w", tab, err)
		}
		if len(header) >= len(model.Columns(tab)) {
			continue
		}
		if err := wb.SetHeader(ctx, tab, model.Columns(tab)); err != nil {
			return fmt.Errorf("write %s header: %w", tab, err)
		}
	}
	return nil
}

var _ Workbook = (*RetryingWorkbook)(nil)
