package repository

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"life-os/internal/model"
)

func TestCaptureStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	wb := newTestWorkbook(t)
	store := NewCaptureStore(wb, nil)
	at := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendCapture(ctx, model.RawCapture{ID: "c1", Text: "buy milk", CapturedAt: at}))
	require.NoError(t, store.AppendCapture(ctx, model.RawCapture{ID: "c2", Text: "call dad", CapturedAt: at}))
	assert.Error(t, store.AppendCapture(ctx, model.RawCapture{ID: "c3"}))

	pending, err := store.FetchUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c1", pending[0].ID)
	assert.True(t, at.Equal(pending[0].CapturedAt))

	require.NoError(t, store.MarkFailed(ctx, "c1", "model timeout"))
	pending, err = store.FetchUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "model timeout", pending[0].LastError)

	require.NoError(t, store.MarkProcessed(ctx, "c1"))
	require.NoError(t, store.MarkProcessed(ctx, "c1"))

	pending, err = store.FetchUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].ID)

	all, err := store.Captures(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Processed)
	assert.Empty(t, all[0].LastError)

	assert.ErrorIs(t, store.MarkProcessed(ctx, "nope"), ErrItemNotFound)
}

func TestMarkFailedKeepsRunesWhole(t *testing.T) {
	ctx := context.Background()
	store := NewCaptureStore(newTestWorkbook(t), nil)
	require.NoError(t, store.AppendCapture(ctx, model.RawCapture{ID: "c1", Text: "x", CapturedAt: time.Now()}))

	require.NoError(t, store.MarkFailed(ctx, "c1", "a"+strings.Repeat("é", maxErrorText)))
	pending, err := store.FetchUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, utf8.ValidString(pending[0].LastError))
	assert.Equal(t, "a"+strings.Repeat("é", maxErrorText-1), pending[0].LastError)
}

func TestCaptureStoreAppendAndUpdateField(t *testing.T) {
	ctx := context.Background()
	store := NewCaptureStore(newTestWorkbook(t), nil)

	due := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	task := model.StructuredItem{ID: "t1", ItemType: model.ItemTask, Description: "Pay rent", Category: model.CategoryFinance, DueDate: &due}
	task.ApplyDefaults()

	require.NoError(t, store.Append(ctx, model.TabTasks, model.TaskRow(task)))
	assert.Error(t, store.Append(ctx, model.TabTasks, []string{"short"}))

	require.NoError(t, store.UpdateField(ctx, model.TabTasks, "t1", "calendar_event_id", "cal-7"))
	assert.Error(t, store.UpdateField(ctx, model.TabTasks, "t1", "pointer", "x"))
	assert.ErrorIs(t, store.UpdateField(ctx, model.TabTasks, "missing", "status", "completed"), ErrItemNotFound)

	got, err := store.Item(ctx, model.TabTasks, "t1")
	require.NoError(t, err)
	assert.Equal(t, "cal-7", got.CalendarEventID)
	assert.Equal(t, "Pay rent", got.Description)
}

func TestCaptureStoreSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	wb := newTestWorkbook(t)
	core, logs := observer.New(zap.WarnLevel)
	store := NewCaptureStore(wb, zap.New(core))

	require.NoError(t, wb.AppendRow(ctx, model.TabInbox, []string{"", "no id"}))
	require.NoError(t, wb.AppendRow(ctx, model.TabInbox, []string{"c1", "fine", "2025-01-10T08:00:00Z", "FALSE"}))
	require.NoError(t, wb.AppendRow(ctx, model.TabInbox, []string{"c2", "bad date", "yesterday", "FALSE"}))

	pending, err := store.FetchUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c1", pending[0].ID)
	assert.Equal(t, 2, logs.FilterMessage("skipping malformed inbox row").Len())
}
