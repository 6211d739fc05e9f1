package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"life-os/internal/model"
)

func dueItem(typ model.ItemType, withTime bool) model.StructuredItem {
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	item := model.StructuredItem{
		ID:          "it-1",
		ItemType:    typ,
		Description: "Dentist",
		Category:    model.CategoryHealth,
		DueDate:     &d,
		Consequence: "rebooking fee",
		Notes:       "bring x-rays",
		Location:    "clinic",
	}
	if withTime {
		tm := model.ClockTime(14, 30)
		item.DueTime = &tm
	}
	return item
}

func TestBuildArtifactEvent(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	item := dueItem(model.ItemEvent, true)
	item.NeedsClarification = true
	reminders := []model.ReminderOffset{{Method: "popup", MinutesBefore: 60}}

	a, err := BuildArtifact(item, loc, reminders)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", a.Summary)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, loc), a.Start)
	assert.Equal(t, time.Hour, a.End.Sub(a.Start))
	assert.Equal(t, "America/New_York", a.TimeZone)
	assert.Equal(t, "clinic", a.Location)
	assert.Equal(t, reminders, a.Reminders)
	assert.Equal(t, "Category: Health\nConsequence: rebooking fee\nNotes: bring x-rays\n⚠️ Needs clarification", a.Description)
}

func TestBuildArtifactTaskDefaults(t *testing.T) {
	a, err := BuildArtifact(dueItem(model.ItemTask, false), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, a.Start.Hour())
	assert.Equal(t, 30*time.Minute, a.End.Sub(a.Start))
	assert.Equal(t, "UTC", a.TimeZone)

	noDate := dueItem(model.ItemTask, false)
	noDate.DueDate = nil
	_, err = BuildArtifact(noDate, nil, nil)
	assert.Error(t, err)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.CalendarEvent{}))
	return db
}

func TestLocalCalendar(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cal := NewLocalCalendar(db)

	a, err := BuildArtifact(dueItem(model.ItemEvent, true), time.UTC, []model.ReminderOffset{
		{Method: "popup", MinutesBefore: 1440},
		{Method: "popup", MinutesBefore: 120},
	})
	require.NoError(t, err)

	id, err := cal.CreateArtifact(ctx, a)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var events []model.CalendarEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, "1440,120", events[0].Reminders)

	require.NoError(t, cal.DeleteArtifact(ctx, id))
	require.NoError(t, cal.DeleteArtifact(ctx, id))

	events = nil
	require.NoError(t, db.Find(&events).Error)
	assert.Empty(t, events)
}

func newTestGoogleCalendar(t *testing.T, handler http.HandlerFunc) *GoogleCalendar {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cal, err := NewGoogleCalendar(context.Background(), "cal@example.com", "",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()), option.WithoutAuthentication())
	require.NoError(t, err)
	return cal
}

func TestGoogleCalendarCreate(t *testing.T) {
	var body map[string]any
	cal := newTestGoogleCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-42"}`))
	})

	a, err := BuildArtifact(dueItem(model.ItemEvent, true), time.UTC, []model.ReminderOffset{{Method: "popup", MinutesBefore: 60}})
	require.NoError(t, err)

	id, err := cal.CreateArtifact(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "evt-42", id)

	reminders, ok := body["reminders"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, reminders["useDefault"])
	overrides := reminders["overrides"].([]any)
	require.Len(t, overrides, 1)
	assert.Equal(t, "popup", overrides[0].(map[string]any)["method"])
}

func TestGoogleCalendarDeleteToleratesMissing(t *testing.T) {
	cal := newTestGoogleCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	})
	assert.NoError(t, cal.DeleteArtifact(context.Background(), "gone"))

	failing := newTestGoogleCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Forbidden"}}`))
	})
	assert.Error(t, failing.DeleteArtifact(context.Background(), "x"))
}
